package audio

import "errors"

var (
	// ErrPermissionDenied indicates the user refused the capture grant.
	ErrPermissionDenied = errors.New("permission denied: allow audio capture to continue")

	// ErrNotSupported indicates the platform has no usable capture device.
	ErrNotSupported = errors.New("audio capture not supported on this platform")

	// ErrCancelled indicates the user dismissed the capture prompt.
	ErrCancelled = errors.New("audio capture was cancelled")

	// ErrAlreadyCapturing indicates StartCapture was called while a
	// capture session is running.
	ErrAlreadyCapturing = errors.New("capture already in progress")
)

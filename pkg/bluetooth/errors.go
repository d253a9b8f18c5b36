package bluetooth

import "errors"

var (
	// ErrNotFound indicates the device id is not in the expected set.
	ErrNotFound = errors.New("device not found")

	// ErrUnsupported indicates the platform has no Bluetooth capability.
	ErrUnsupported = errors.New("bluetooth not supported on this platform")

	// ErrNoDeviceFound indicates the scan completed without the user
	// picking a device.
	ErrNoDeviceFound = errors.New("no bluetooth devices found; make sure your audio devices are in pairing mode and nearby")

	// ErrPermissionDenied indicates the platform refused Bluetooth access.
	ErrPermissionDenied = errors.New("bluetooth access denied")

	// ErrConnectFailed indicates the transport-level connection failed.
	ErrConnectFailed = errors.New("failed to connect to device")

	// ErrScanInProgress indicates a scan was requested while one is running.
	ErrScanInProgress = errors.New("scan already in progress")
)

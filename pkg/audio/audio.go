package audio

import (
	"context"
	"time"
)

// Format describes the sample layout of a captured stream.
type Format struct {
	SampleRate int
	Channels   int
}

// Frame is one block of captured PCM, downmixed to mono float64 samples
// in [-1, 1].
type Frame struct {
	Samples   []float64
	Format    Format
	Timestamp time.Time
}

// Source is the platform capture boundary. A Source acquires an audio
// stream and delivers it as frames until the context is cancelled or
// Close is called. Implementations map platform errors onto this
// package's sentinel errors.
type Source interface {
	// Label describes where the audio is coming from (e.g. "system", "microphone").
	Label() string

	// Start acquires the stream and begins delivering frames. The
	// returned channel is closed when the stream ends.
	Start(ctx context.Context) (<-chan Frame, error)

	// Close releases the underlying stream and stops all tracks.
	// Safe to call more than once.
	Close() error
}

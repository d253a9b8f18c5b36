package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/mediadevices/pkg/wave"
	"github.com/rs/zerolog/log"

	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	_ "github.com/pion/mediadevices/pkg/driver/screen"
)

const captureSampleRate = 44100

// SystemSource captures system audio via display capture and falls back
// to the microphone when the display grant yields no audio track, which
// is the common case: screen drivers do not expose an audio line.
type SystemSource struct {
	mu     sync.Mutex
	stream mediadevices.MediaStream
	label  string
}

// NewSystemSource returns an unstarted system-audio source.
func NewSystemSource() *SystemSource {
	return &SystemSource{label: "system"}
}

// Label reports which capture path is active.
func (s *SystemSource) Label() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label
}

// Start acquires a stream and pumps mono frames until ctx is cancelled
// or the stream ends.
func (s *SystemSource) Start(ctx context.Context) (<-chan Frame, error) {
	stream, label, err := s.acquire()
	if err != nil {
		return nil, err
	}

	tracks := stream.GetAudioTracks()
	if len(tracks) == 0 {
		stopTracks(stream)
		return nil, ErrNotSupported
	}

	track, ok := tracks[0].(*mediadevices.AudioTrack)
	if !ok {
		stopTracks(stream)
		return nil, ErrNotSupported
	}

	s.mu.Lock()
	s.stream = stream
	s.label = label
	s.mu.Unlock()

	out := make(chan Frame, 32)
	go s.pump(ctx, track, out)
	return out, nil
}

// acquire tries display capture first, then the microphone.
func (s *SystemSource) acquire() (mediadevices.MediaStream, string, error) {
	display, err := mediadevices.GetDisplayMedia(mediadevices.MediaStreamConstraints{
		Audio: func(c *mediadevices.MediaTrackConstraints) {
			c.SampleRate = prop.Int(captureSampleRate)
		},
		Video: func(c *mediadevices.MediaTrackConstraints) {},
	})
	if err == nil {
		if len(display.GetAudioTracks()) > 0 {
			return display, "system", nil
		}
		// Display grant without audio: release it and fall back.
		stopTracks(display)
	} else {
		log.Debug().Err(err).Msg("Display capture unavailable, falling back to microphone")
	}

	mic, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Audio: func(c *mediadevices.MediaTrackConstraints) {
			c.SampleRate = prop.Int(captureSampleRate)
		},
	})
	if err != nil {
		return nil, "", mapCaptureError(err)
	}
	return mic, "microphone", nil
}

func (s *SystemSource) pump(ctx context.Context, track *mediadevices.AudioTrack, out chan<- Frame) {
	defer close(out)

	reader := track.NewReader(false)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		chunk, release, err := reader.Read()
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Warn().Err(err).Msg("Capture read error")
			}
			return
		}

		info := chunk.ChunkInfo()
		samples := make([]float64, info.Len)
		for i := 0; i < info.Len; i++ {
			var sum float64
			for ch := 0; ch < info.Channels; ch++ {
				f := wave.Float32SampleFormat.Convert(chunk.At(i, ch)).(wave.Float32Sample)
				sum += float64(f)
			}
			samples[i] = sum / float64(info.Channels)
		}
		release()

		frame := Frame{
			Samples:   samples,
			Format:    Format{SampleRate: info.SamplingRate, Channels: 1},
			Timestamp: time.Now(),
		}
		select {
		case out <- frame:
		case <-ctx.Done():
			return
		}
	}
}

// Close stops all tracks of the active stream.
func (s *SystemSource) Close() error {
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	if stream != nil {
		stopTracks(stream)
	}
	return nil
}

func stopTracks(stream mediadevices.MediaStream) {
	for _, t := range stream.GetTracks() {
		if err := t.Close(); err != nil {
			log.Debug().Err(err).Msg("Failed to close media track")
		}
	}
}

// mapCaptureError converts platform capture failures into this
// package's error taxonomy, keeping the original cause in the message.
func mapCaptureError(err error) error {
	if errors.Is(err, context.Canceled) {
		return ErrCancelled
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission") || strings.Contains(msg, "denied"):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, err)
	case strings.Contains(msg, "driver") || strings.Contains(msg, "not found") || strings.Contains(msg, "unsupported"):
		return fmt.Errorf("%w: %s", ErrNotSupported, err)
	default:
		return fmt.Errorf("failed to capture audio: %w", err)
	}
}

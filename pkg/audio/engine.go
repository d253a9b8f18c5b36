package audio

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// levelInterval approximates a display-refresh tick (~60Hz).
const levelInterval = 16 * time.Millisecond

// LevelCallback receives a loudness estimate in [0, 100]. Values carry
// arbitrary float precision; round for display.
type LevelCallback func(level float64)

// Engine owns one capture session at a time. It acquires a stream from
// its Source, runs it through the processing chain
// (source -> gain -> compressor -> analyser, with a direct
// source -> analyser tap for metering) and emits periodic level samples.
//
// The engine is either Idle or Capturing. A failed StartCapture leaves
// it Idle; StopCapture is idempotent.
type Engine struct {
	source Source

	mu        sync.Mutex
	capturing bool
	starting  bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	processed chan Frame
	onLevel   LevelCallback

	gain     *Gain
	comp     *Compressor
	analyser *Analyser

	levelBits atomic.Uint64
}

// NewEngine creates an engine around the given capture source.
func NewEngine(source Source) *Engine {
	return &Engine{
		source:   source,
		gain:     NewGain(),
		comp:     NewCompressor(),
		analyser: NewAnalyser(),
	}
}

// OnLevel registers the level-sample callback. Must be set before
// StartCapture; a nil callback disables emission.
func (e *Engine) OnLevel(cb LevelCallback) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onLevel = cb
}

// StartCapture acquires the stream and starts the processing chain and
// the level-sampling loop.
func (e *Engine) StartCapture(ctx context.Context) error {
	e.mu.Lock()
	if e.capturing || e.starting {
		e.mu.Unlock()
		return ErrAlreadyCapturing
	}
	e.starting = true
	e.mu.Unlock()

	// The session outlives the request that started it; only an
	// explicit StopCapture ends it.
	sessionCtx, cancel := context.WithCancel(context.Background())

	// The platform call can suspend on a pending capture grant; the
	// mutex is not held across it so state reads stay serviceable.
	frames, err := e.source.Start(sessionCtx)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.starting = false

	if err != nil {
		cancel()
		return err
	}

	e.analyser.Reset()
	e.comp.Reset()
	e.levelBits.Store(math.Float64bits(0))

	e.cancel = cancel
	e.processed = make(chan Frame, 8)
	e.capturing = true

	cb := e.onLevel
	e.wg.Add(2)
	go e.processLoop(frames, e.processed)
	go e.levelLoop(sessionCtx, cb)

	log.Info().Str("source", e.source.Label()).Msg("Audio capture started")
	return nil
}

// StopCapture tears the session down: stops the source tracks, cancels
// the level loop and waits for it, so no level callback fires after
// this returns. Safe to call when not capturing.
func (e *Engine) StopCapture() {
	e.mu.Lock()
	if !e.capturing {
		e.mu.Unlock()
		return
	}
	e.capturing = false
	cancel := e.cancel
	processed := e.processed
	e.cancel = nil
	e.mu.Unlock()

	cancel()
	if err := e.source.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close capture source")
	}
	e.wg.Wait()
	close(processed)

	e.levelBits.Store(math.Float64bits(0))
	log.Info().Msg("Audio capture stopped")
}

// Capturing reports whether a session is active.
func (e *Engine) Capturing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.capturing
}

// Level returns the most recent level sample (0-100).
func (e *Engine) Level() float64 {
	return math.Float64frombits(e.levelBits.Load())
}

// SetGain sets the master gain as a linear factor.
func (e *Engine) SetGain(v float64) {
	e.gain.Set(v)
}

// ProcessedStream returns the post-chain PCM tap. The channel is closed
// when capture stops; slow consumers miss frames rather than stalling
// the chain.
func (e *Engine) ProcessedStream() <-chan Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.processed
}

// SourceLabel reports where the captured audio comes from.
func (e *Engine) SourceLabel() string {
	return e.source.Label()
}

func (e *Engine) processLoop(frames <-chan Frame, processed chan<- Frame) {
	defer e.wg.Done()
	for f := range frames {
		// Metering tap sees the raw signal.
		e.analyser.Write(f.Samples)

		out := make([]float64, len(f.Samples))
		copy(out, f.Samples)
		e.gain.Apply(out)
		e.comp.Process(out, f.Format.SampleRate)
		e.analyser.Write(out)

		select {
		case processed <- Frame{Samples: out, Format: f.Format, Timestamp: f.Timestamp}:
		default:
		}
	}
}

func (e *Engine) levelLoop(ctx context.Context, cb LevelCallback) {
	defer e.wg.Done()
	ticker := time.NewTicker(levelInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			lvl := e.analyser.Level()
			e.levelBits.Store(math.Float64bits(lvl))
			if cb != nil {
				cb(lvl)
			}
		}
	}
}

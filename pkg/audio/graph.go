package audio

import (
	"math"
	"sync"
	"sync/atomic"
)

// Compressor parameters follow the capture chain's fixed tuning and are
// not configurable at this layer.
const (
	compThresholdDB = -24.0
	compKneeDB      = 30.0
	compRatio       = 12.0
	compAttackSec   = 0.003
	compReleaseSec  = 0.25
)

// Analyser parameters. Window size and smoothing match the metering tap
// of the capture chain; the decibel range is the conventional one for
// byte-scaled frequency data.
const (
	analyserWindow    = 256
	analyserBins      = analyserWindow / 2
	analyserSmoothing = 0.8
	analyserMinDB     = -100.0
	analyserMaxDB     = -30.0
)

// Gain scales samples by a linear factor. The factor may be changed
// concurrently with processing.
type Gain struct {
	bits atomic.Uint64
}

// NewGain returns a Gain at unity.
func NewGain() *Gain {
	g := &Gain{}
	g.Set(1.0)
	return g
}

// Set replaces the linear gain factor.
func (g *Gain) Set(v float64) {
	g.bits.Store(math.Float64bits(v))
}

// Value returns the current linear gain factor.
func (g *Gain) Value() float64 {
	return math.Float64frombits(g.bits.Load())
}

// Apply scales the samples in place and returns them.
func (g *Gain) Apply(samples []float64) []float64 {
	v := g.Value()
	if v == 1.0 {
		return samples
	}
	for i := range samples {
		samples[i] *= v
	}
	return samples
}

// Compressor is a feed-forward dynamics compressor with a soft knee and
// per-sample envelope smoothing.
type Compressor struct {
	sampleRate   int
	attackCoeff  float64
	releaseCoeff float64
	envelopeDB   float64
}

// NewCompressor returns a compressor with the fixed chain tuning.
func NewCompressor() *Compressor {
	return &Compressor{}
}

func (c *Compressor) configure(sampleRate int) {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	if c.sampleRate == sampleRate {
		return
	}
	c.sampleRate = sampleRate
	c.attackCoeff = math.Exp(-1.0 / (float64(sampleRate) * compAttackSec))
	c.releaseCoeff = math.Exp(-1.0 / (float64(sampleRate) * compReleaseSec))
}

// gainReductionDB computes the static curve: how many dB to remove for
// an input at the given level.
func gainReductionDB(levelDB float64) float64 {
	over := levelDB - compThresholdDB
	switch {
	case 2*over < -compKneeDB:
		return 0
	case 2*math.Abs(over) <= compKneeDB:
		knee := over + compKneeDB/2
		return (1/compRatio - 1) * knee * knee / (2 * compKneeDB) * -1
	default:
		return over - over/compRatio
	}
}

// Process compresses the samples in place and returns them.
func (c *Compressor) Process(samples []float64, sampleRate int) []float64 {
	c.configure(sampleRate)
	for i, s := range samples {
		levelDB := -120.0
		if a := math.Abs(s); a > 1e-6 {
			levelDB = 20 * math.Log10(a)
		}
		target := gainReductionDB(levelDB)
		coeff := c.releaseCoeff
		if target > c.envelopeDB {
			coeff = c.attackCoeff
		}
		c.envelopeDB = target + coeff*(c.envelopeDB-target)
		samples[i] = s * math.Pow(10, -c.envelopeDB/20)
	}
	return samples
}

// Reset clears the envelope state.
func (c *Compressor) Reset() {
	c.envelopeDB = 0
}

// Analyser keeps a sliding window of recent samples and exposes
// byte-scaled frequency-domain magnitudes (0-255 per bin) with
// time smoothing, the way level meters expect them.
type Analyser struct {
	mu       sync.Mutex
	window   [analyserWindow]float64
	pos      int
	filled   bool
	smoothed [analyserBins]float64
}

// NewAnalyser returns an empty analyser.
func NewAnalyser() *Analyser {
	return &Analyser{}
}

// Write feeds samples into the sliding window.
func (a *Analyser) Write(samples []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range samples {
		a.window[a.pos] = s
		a.pos++
		if a.pos == analyserWindow {
			a.pos = 0
			a.filled = true
		}
	}
}

// Bytes returns the current frequency magnitude buffer, one byte per
// bin. Smoothing is applied to the linear magnitudes before conversion
// to the decibel byte scale.
func (a *Analyser) Bytes() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Unroll the ring into time order with a Blackman window applied.
	var buf [analyserWindow]float64
	start := a.pos
	if !a.filled {
		start = 0
	}
	for i := 0; i < analyserWindow; i++ {
		w := 0.42 - 0.5*math.Cos(2*math.Pi*float64(i)/(analyserWindow-1)) +
			0.08*math.Cos(4*math.Pi*float64(i)/(analyserWindow-1))
		buf[i] = a.window[(start+i)%analyserWindow] * w
	}

	out := make([]byte, analyserBins)
	for k := 0; k < analyserBins; k++ {
		var re, im float64
		for n := 0; n < analyserWindow; n++ {
			phase := 2 * math.Pi * float64(k) * float64(n) / analyserWindow
			re += buf[n] * math.Cos(phase)
			im -= buf[n] * math.Sin(phase)
		}
		mag := math.Hypot(re, im) / analyserWindow

		a.smoothed[k] = analyserSmoothing*a.smoothed[k] + (1-analyserSmoothing)*mag

		db := analyserMinDB
		if a.smoothed[k] > 0 {
			db = 20 * math.Log10(a.smoothed[k])
		}
		scaled := 255 * (db - analyserMinDB) / (analyserMaxDB - analyserMinDB)
		if scaled < 0 {
			scaled = 0
		}
		if scaled > 255 {
			scaled = 255
		}
		out[k] = byte(scaled)
	}
	return out
}

// Level returns the mean of the magnitude buffer scaled to 0-100.
func (a *Analyser) Level() float64 {
	bins := a.Bytes()
	var sum float64
	for _, b := range bins {
		sum += float64(b)
	}
	mean := sum / float64(len(bins))
	return mean / 255 * 100
}

// Reset clears the window and the smoothing state.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.window = [analyserWindow]float64{}
	a.smoothed = [analyserBins]float64{}
	a.pos = 0
	a.filled = false
}

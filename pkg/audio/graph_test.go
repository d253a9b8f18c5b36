package audio

import (
	"math"
	"testing"
)

func TestGain_Apply(t *testing.T) {
	g := NewGain()
	g.Set(0.5)

	samples := []float64{1.0, -1.0, 0.5}
	g.Apply(samples)

	want := []float64{0.5, -0.5, 0.25}
	for i := range want {
		if math.Abs(samples[i]-want[i]) > 1e-9 {
			t.Errorf("samples[%d] = %v, want %v", i, samples[i], want[i])
		}
	}
}

func TestGain_UnityLeavesSignal(t *testing.T) {
	g := NewGain()
	samples := []float64{0.25, -0.75}
	g.Apply(samples)
	if samples[0] != 0.25 || samples[1] != -0.75 {
		t.Errorf("unity gain changed the signal: %v", samples)
	}
}

func TestCompressor_AttenuatesLoudSignal(t *testing.T) {
	c := NewCompressor()

	// 0 dBFS square wave is far above the -24 dB threshold.
	loud := make([]float64, 4096)
	for i := range loud {
		loud[i] = 1.0
	}
	c.Process(loud, 44100)

	// After the attack settles, output must be well below input.
	tail := loud[len(loud)-1]
	if tail >= 1.0 {
		t.Errorf("compressor did not attenuate: tail = %v", tail)
	}
	if tail <= 0 {
		t.Errorf("compressor inverted or silenced the signal: tail = %v", tail)
	}
}

func TestCompressor_LeavesQuietSignal(t *testing.T) {
	c := NewCompressor()

	// -60 dBFS is far below the knee; gain reduction must be ~none.
	quiet := make([]float64, 4096)
	for i := range quiet {
		quiet[i] = 0.001
	}
	c.Process(quiet, 44100)

	tail := quiet[len(quiet)-1]
	if math.Abs(tail-0.001) > 1e-4 {
		t.Errorf("compressor touched a quiet signal: tail = %v", tail)
	}
}

func TestAnalyser_SilenceIsZero(t *testing.T) {
	a := NewAnalyser()
	a.Write(make([]float64, analyserWindow))

	if lvl := a.Level(); lvl != 0 {
		t.Errorf("silence level = %v, want 0", lvl)
	}
}

func TestAnalyser_SignalRaisesLevel(t *testing.T) {
	a := NewAnalyser()
	for i := 0; i < 32; i++ {
		a.Write(sine(analyserWindow, 0.9))
	}

	lvl := a.Level()
	if lvl <= 0 {
		t.Errorf("level = %v, want > 0 for a strong tone", lvl)
	}
	if lvl > 100 {
		t.Errorf("level = %v, want <= 100", lvl)
	}
}

func TestAnalyser_BinCount(t *testing.T) {
	a := NewAnalyser()
	if got := len(a.Bytes()); got != analyserBins {
		t.Errorf("bins = %d, want %d", got, analyserBins)
	}
}

func TestAnalyser_ResetClearsState(t *testing.T) {
	a := NewAnalyser()
	for i := 0; i < 32; i++ {
		a.Write(sine(analyserWindow, 0.9))
	}
	if a.Level() <= 0 {
		t.Fatal("expected signal before reset")
	}

	a.Reset()
	if lvl := a.Level(); lvl != 0 {
		t.Errorf("level after reset = %v, want 0", lvl)
	}
}

package dsp

import (
	"errors"
	"math"
	"testing"
)

// 750 Hz fits a whole number of cycles in a 512-sample block at 48 kHz,
// so a full-scale tone measures as ~1.0 without scalloping loss.
const (
	testSampleRate    = 48000.0
	testToneFrequency = 750.0
	testBlockSize     = 512
)

func testConfig() GoertzelConfig {
	return GoertzelConfig{
		TargetFrequency: testToneFrequency,
		SampleRate:      testSampleRate,
		BlockSize:       testBlockSize,
	}
}

// generateSineWave creates a sine wave at the specified frequency
func generateSineWave(frequency, sampleRate float64, numSamples int, amplitude float32) []float32 {
	samples := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		t := float64(i) / sampleRate
		samples[i] = amplitude * float32(math.Sin(2*math.Pi*frequency*t))
	}
	return samples
}

func TestNewGoertzel_ValidConfig(t *testing.T) {
	g, err := NewGoertzel(testConfig())
	if err != nil {
		t.Fatalf("NewGoertzel() error = %v", err)
	}
	if g.BlockSize() != testBlockSize {
		t.Errorf("BlockSize() = %d, want %d", g.BlockSize(), testBlockSize)
	}
	if g.Config().TargetFrequency != testToneFrequency {
		t.Errorf("TargetFrequency = %v, want %v", g.Config().TargetFrequency, testToneFrequency)
	}
}

func TestNewGoertzel_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GoertzelConfig)
		want   error
	}{
		{"zero block size", func(c *GoertzelConfig) { c.BlockSize = 0 }, ErrInvalidBlockSize},
		{"negative block size", func(c *GoertzelConfig) { c.BlockSize = -1 }, ErrInvalidBlockSize},
		{"zero sample rate", func(c *GoertzelConfig) { c.SampleRate = 0 }, ErrInvalidSampleRate},
		{"zero frequency", func(c *GoertzelConfig) { c.TargetFrequency = 0 }, ErrInvalidFrequency},
		{"above nyquist", func(c *GoertzelConfig) { c.TargetFrequency = testSampleRate }, ErrInvalidFrequency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if _, err := NewGoertzel(cfg); !errors.Is(err, tt.want) {
				t.Errorf("NewGoertzel() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGoertzel_MagnitudeAtTargetFrequency(t *testing.T) {
	g, err := NewGoertzel(testConfig())
	if err != nil {
		t.Fatalf("NewGoertzel() error = %v", err)
	}

	samples := generateSineWave(testToneFrequency, testSampleRate, testBlockSize, 1.0)
	mag, err := g.Magnitude(samples)
	if err != nil {
		t.Fatalf("Magnitude() error = %v", err)
	}
	if mag < 0.9 || mag > 1.1 {
		t.Errorf("Magnitude() of full-scale target tone = %v, want ~1.0", mag)
	}
}

func TestGoertzel_MagnitudeOffFrequency(t *testing.T) {
	g, err := NewGoertzel(testConfig())
	if err != nil {
		t.Fatalf("NewGoertzel() error = %v", err)
	}

	samples := generateSineWave(2000, testSampleRate, testBlockSize, 1.0)
	mag, err := g.Magnitude(samples)
	if err != nil {
		t.Fatalf("Magnitude() error = %v", err)
	}
	if mag > 0.1 {
		t.Errorf("Magnitude() of off-frequency tone = %v, want near 0", mag)
	}
}

func TestGoertzel_MagnitudeOfSilence(t *testing.T) {
	g, err := NewGoertzel(testConfig())
	if err != nil {
		t.Fatalf("NewGoertzel() error = %v", err)
	}

	mag, err := g.Magnitude(make([]float32, testBlockSize))
	if err != nil {
		t.Fatalf("Magnitude() error = %v", err)
	}
	if mag > 0.001 {
		t.Errorf("Magnitude() of silence = %v, want ~0", mag)
	}
}

func TestGoertzel_InsufficientSamples(t *testing.T) {
	g, err := NewGoertzel(testConfig())
	if err != nil {
		t.Fatalf("NewGoertzel() error = %v", err)
	}
	if _, err := g.Magnitude(make([]float32, testBlockSize-1)); !errors.Is(err, ErrInsufficientSamples) {
		t.Errorf("Magnitude() error = %v, want %v", err, ErrInsufficientSamples)
	}
}

func TestGoertzel_Intensity(t *testing.T) {
	g, err := NewGoertzel(testConfig())
	if err != nil {
		t.Fatalf("NewGoertzel() error = %v", err)
	}

	tone := generateSineWave(testToneFrequency, testSampleRate, testBlockSize, 1.0)
	bright, err := g.Intensity(tone)
	if err != nil {
		t.Fatalf("Intensity() error = %v", err)
	}
	if bright < 55000 {
		t.Errorf("Intensity() of full-scale tone = %d, want near 65535", bright)
	}

	dark, err := g.Intensity(make([]float32, testBlockSize))
	if err != nil {
		t.Fatalf("Intensity() error = %v", err)
	}
	if dark > 100 {
		t.Errorf("Intensity() of silence = %d, want near 0", dark)
	}
}

func TestGoertzel_BlockMillis(t *testing.T) {
	g, err := NewGoertzel(testConfig())
	if err != nil {
		t.Fatalf("NewGoertzel() error = %v", err)
	}
	want := float64(testBlockSize) / testSampleRate * 1000.0
	if got := g.BlockMillis(); math.Abs(got-want) > 1e-9 {
		t.Errorf("BlockMillis() = %v, want %v", got, want)
	}
}

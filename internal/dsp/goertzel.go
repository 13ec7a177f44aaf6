// internal/dsp/goertzel.go
// Package dsp converts audio blocks into light-intensity readings for
// the decoder core. A Goertzel filter measures the CW tone energy of
// each block; the magnitude is scaled onto the 16-bit intensity range
// the pipeline calibrates against, so a tone behaves exactly like a
// bright light on a photodiode.
package dsp

import (
	"errors"
	"math"
)

var (
	// ErrInvalidBlockSize indicates block size must be positive
	ErrInvalidBlockSize = errors.New("block size must be positive")
	// ErrInvalidSampleRate indicates sample rate must be positive
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrInvalidFrequency indicates frequency must be positive and below Nyquist
	ErrInvalidFrequency = errors.New("target frequency must be positive and less than Nyquist frequency")
	// ErrInsufficientSamples indicates not enough samples for the configured block size
	ErrInsufficientSamples = errors.New("insufficient samples for block size")
)

// GoertzelConfig holds configuration for the tone-energy filter.
// All values should come from the application config file.
type GoertzelConfig struct {
	// TargetFrequency is the CW tone frequency in Hz (from config: tone_frequency)
	TargetFrequency float64
	// SampleRate is the audio sample rate in Hz (from config: sample_rate)
	SampleRate float64
	// BlockSize is the number of samples per intensity reading (from config: block_size)
	BlockSize int
}

// Goertzel computes the single-bin DFT magnitude at the target
// frequency. Cheaper than an FFT when only one frequency matters.
type Goertzel struct {
	config      GoertzelConfig
	coefficient float64 // 2 * cos(2π * k / N)
	normalizer  float64 // 2.0 / blockSize, scales magnitude to ~1.0 for a full-scale tone
}

// NewGoertzel creates a tone-energy filter with the given configuration.
func NewGoertzel(cfg GoertzelConfig) (*Goertzel, error) {
	if cfg.BlockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}
	if cfg.SampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if cfg.TargetFrequency <= 0 || cfg.TargetFrequency >= cfg.SampleRate/2 {
		return nil, ErrInvalidFrequency
	}

	k := (cfg.TargetFrequency / cfg.SampleRate) * float64(cfg.BlockSize)
	omega := (2.0 * math.Pi * k) / float64(cfg.BlockSize)

	return &Goertzel{
		config:      cfg,
		coefficient: 2.0 * math.Cos(omega),
		normalizer:  2.0 / float64(cfg.BlockSize),
	}, nil
}

// Magnitude computes the normalized tone magnitude over one block. For
// input normalized to -1.0..1.0, a full-scale tone at the target
// frequency yields approximately 1.0. The slice must hold at least
// BlockSize samples; only the first BlockSize are read.
func (g *Goertzel) Magnitude(samples []float32) (float64, error) {
	if len(samples) < g.config.BlockSize {
		return 0, ErrInsufficientSamples
	}

	var s0, s1, s2 float64
	coeff := g.coefficient
	for i := 0; i < g.config.BlockSize; i++ {
		s0 = float64(samples[i]) + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}

	// power = s1² + s2² - coefficient * s1 * s2
	power := s1*s1 + s2*s2 - coeff*s1*s2
	if power < 0 {
		// floating point noise near zero
		power = 0
	}
	return math.Sqrt(power) * g.normalizer, nil
}

// Intensity maps a block to a 16-bit light-intensity reading: the tone
// magnitude scaled linearly onto 0..65535 and clamped.
func (g *Goertzel) Intensity(samples []float32) (uint16, error) {
	mag, err := g.Magnitude(samples)
	if err != nil {
		return 0, err
	}
	scaled := mag * float64(math.MaxUint16)
	if scaled > float64(math.MaxUint16) {
		return math.MaxUint16, nil
	}
	if scaled < 0 {
		return 0, nil
	}
	return uint16(scaled), nil
}

// BlockSize returns the configured block size.
func (g *Goertzel) BlockSize() int {
	return g.config.BlockSize
}

// BlockMillis returns the duration one block represents, in
// milliseconds. Drives the timestamps of the intensity stream.
func (g *Goertzel) BlockMillis() float64 {
	return float64(g.config.BlockSize) / g.config.SampleRate * 1000.0
}

// Config returns the current configuration.
func (g *Goertzel) Config() GoertzelConfig {
	return g.config
}

// internal/audio/capture.go
// Package audio provides the sampling collaborator: real-time capture
// from an audio input device, delivering float32 mono blocks to the
// intensity front end.
package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

var (
	// ErrNotInitialized indicates Init has not been called
	ErrNotInitialized = errors.New("audio capture not initialized")
	// ErrAlreadyRunning indicates Start was called twice
	ErrAlreadyRunning = errors.New("audio capture already running")
	// ErrNotRunning indicates Stop was called without Start
	ErrNotRunning = errors.New("audio capture not running")
)

// Config holds audio capture configuration.
type Config struct {
	SampleRate uint32 // e.g. 48000
	Channels   uint32 // 1 for mono
	BufferSize uint32 // frames per callback
}

// DefaultConfig returns sensible defaults for CW capture.
func DefaultConfig() Config {
	return Config{
		SampleRate: 48000,
		Channels:   1,
		BufferSize: 512,
	}
}

// SampleCallback is called from the audio thread with new samples.
// Must be non-blocking and fast. The slice is only valid for the
// duration of the call.
type SampleCallback func(samples []float32)

// Capture reads samples from the default capture device.
type Capture struct {
	config  Config
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	running atomic.Bool
	mu      sync.Mutex

	callbackPtr atomic.Pointer[SampleCallback]
}

// New creates a capture handle. Call Init before Start.
func New(cfg Config) *Capture {
	return &Capture{config: cfg}
}

// SetCallback sets the callback for captured sample blocks.
func (c *Capture) SetCallback(cb SampleCallback) {
	if cb == nil {
		c.callbackPtr.Store(nil)
	} else {
		c.callbackPtr.Store(&cb)
	}
}

// Init allocates the audio backend context.
func (c *Capture) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	c.ctx = ctx
	return nil
}

// Start opens the capture device and begins delivering samples. The
// device stops when ctx is cancelled or Stop is called.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx == nil {
		return ErrNotInitialized
	}
	if c.running.Load() {
		return ErrAlreadyRunning
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = c.config.Channels
	deviceConfig.SampleRate = c.config.SampleRate
	deviceConfig.PeriodSizeInFrames = c.config.BufferSize

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			cbPtr := c.callbackPtr.Load()
			if cbPtr == nil || frameCount == 0 {
				return
			}
			(*cbPtr)(bytesToFloat32(input, int(frameCount*c.config.Channels)))
		},
	}

	device, err := malgo.InitDevice(c.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("init capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("start capture device: %w", err)
	}
	c.device = device
	c.running.Store(true)

	go func() {
		<-ctx.Done()
		_ = c.Stop()
	}()
	return nil
}

// Stop halts capture. Safe to call more than once.
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running.Load() {
		return ErrNotRunning
	}
	c.running.Store(false)
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	return nil
}

// Close releases the backend context. The capture is unusable afterwards.
func (c *Capture) Close() error {
	if c.running.Load() {
		if err := c.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx != nil {
		_ = c.ctx.Uninit()
		c.ctx.Free()
		c.ctx = nil
	}
	return nil
}

// IsRunning reports whether the device is delivering samples.
func (c *Capture) IsRunning() bool {
	return c.running.Load()
}

// bytesToFloat32 reinterprets little-endian float32 PCM bytes.
func bytesToFloat32(data []byte, n int) []float32 {
	if n > len(data)/4 {
		n = len(data) / 4
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out
}

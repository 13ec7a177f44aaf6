// cmd/root.go
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ColonelBlimp/morselight/internal/audio"
	"github.com/ColonelBlimp/morselight/internal/config"
	"github.com/ColonelBlimp/morselight/internal/dsp"
	"github.com/ColonelBlimp/morselight/internal/morse"
	"github.com/ColonelBlimp/morselight/internal/recovery"
)

// flushEvery is how many trace samples go in between pipeline flushes.
const flushEvery = 16

var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "morselight",
})

var rootCmd = &cobra.Command{
	Use:   "morselight",
	Short: "Streaming Morse decoder for a light-intensity channel",
	Long: `morselight decodes Morse code from a stream of light-intensity samples.
It calibrates light/dark thresholds from the signal itself, estimates the
Morse unit time when not told one, and prints characters as they decode.

Input is either a recorded intensity trace (--input) or the default audio
capture device, whose CW tone energy stands in for light intensity.`,
	RunE: runDecoder,
}

// runDecoder dispatches to trace or live decoding.
func runDecoder(_ *cobra.Command, _ []string) error {
	settings, err := config.Get()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if settings.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	if path := viper.GetString("input"); path != "" {
		return runTraceFile(settings, path, os.Stdout)
	}
	return runLive(settings, os.Stdout)
}

// newManager builds the pipeline manager from validated settings.
func newManager(s *config.Settings) (*morse.Manager, error) {
	decision := morse.UnitToBeDetermined(s.UnitMinMs, s.UnitMaxMs, uint32(s.EstimateAfterSpans))
	if s.UnitTimeMs > 0 {
		decision = morse.ProvidedUnit(s.UnitTimeMs)
	}
	return morse.NewManager(morse.ManagerConfig{
		LikelyMiddle:    uint16(s.LikelyMiddle),
		UnitTime:        decision,
		SampleBufferCap: s.SampleBufferCap,
		QueueCap:        s.QueueCap,
		DarkPushMillis:  s.DarkPushMs,
	})
}

// runTraceFile decodes a recorded intensity trace and writes the
// characters to out.
func runTraceFile(settings *config.Settings, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open trace: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("close trace", "err", err)
		}
	}()

	samples, err := ReadTrace(f)
	if err != nil {
		return fmt.Errorf("read trace %s: %w", path, err)
	}
	logger.Debug("trace loaded", "path", path, "samples", len(samples))

	decoded, err := DecodeTrace(settings, samples)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out, string(decoded)); err != nil {
		return err
	}
	return nil
}

// DecodeTrace runs a batch of samples through a fresh pipeline, flushing
// every flushEvery samples to keep the bounded queues drained, and
// returns every decoded character. A bounded-container overflow is
// returned as an error together with the characters decoded before it.
func DecodeTrace(settings *config.Settings, samples []morse.SampledLightIntensity) ([]rune, error) {
	mgr, err := newManager(settings)
	if err != nil {
		return nil, fmt.Errorf("init pipeline: %w", err)
	}

	var decoded []rune
	flush := func() error {
		chars, err := mgr.ProduceChars()
		if err != nil {
			return fmt.Errorf("produce chars: %w", err)
		}
		decoded = append(decoded, chars...)
		return nil
	}

	for i, s := range samples {
		if err := mgr.AddSample(s); err != nil {
			// A full buffer before calibration commits means the trace
			// never crossed likely_middle often enough; surface it.
			return decoded, fmt.Errorf("add sample %d: %w", i, err)
		}
		if (i+1)%flushEvery == 0 {
			if err := flush(); err != nil {
				return decoded, err
			}
		}
	}
	if err := flush(); err != nil {
		return decoded, err
	}
	if unit, ok := mgr.UnitTime(); ok {
		logger.Debug("unit time", "ms", unit)
	}
	return decoded, nil
}

// ReadTrace parses "time_ms,intensity" lines. Blank lines and lines
// starting with '#' are skipped.
func ReadTrace(r io.Reader) ([]morse.SampledLightIntensity, error) {
	var samples []morse.SampledLightIntensity
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: want time_ms,intensity, got %q", lineNo, line)
		}
		t, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad time: %w", lineNo, err)
		}
		li, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad intensity: %w", lineNo, err)
		}
		samples = append(samples, morse.SampledLightIntensity{Time: t, Intensity: uint16(li)})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// runLive decodes from the default audio capture device until
// interrupted. Tone energy at the configured frequency is the light
// channel.
func runLive(settings *config.Settings, out io.Writer) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("shutting down", "signal", sig)
		cancel()
	}()

	goertzel, err := dsp.NewGoertzel(dsp.GoertzelConfig{
		TargetFrequency: settings.ToneFrequency,
		SampleRate:      settings.SampleRate,
		BlockSize:       settings.BlockSize,
	})
	if err != nil {
		return fmt.Errorf("init goertzel: %w", err)
	}

	mgr, err := newManager(settings)
	if err != nil {
		return fmt.Errorf("init pipeline: %w", err)
	}

	capture := audio.New(audio.Config{
		SampleRate: uint32(settings.SampleRate),
		Channels:   uint32(settings.Channels),
		BufferSize: uint32(settings.BufferSize),
	})
	if err := capture.Init(); err != nil {
		return fmt.Errorf("init audio: %w", err)
	}
	defer func() {
		if err := capture.Close(); err != nil {
			logger.Warn("close audio capture", "err", err)
		}
	}()

	// Single-producer/single-consumer ring between the audio thread and
	// the pipeline; the rest of the pipeline runs under the consumer.
	sampleCh := make(chan morse.SampledLightIntensity, morse.DefaultQueueCap)
	blockMillis := goertzel.BlockMillis()
	var (
		pending    []float32
		blockCount int64
	)
	capture.SetCallback(func(block []float32) {
		pending = append(pending, block...)
		for len(pending) >= goertzel.BlockSize() {
			intensity, err := goertzel.Intensity(pending)
			if err != nil {
				return
			}
			pending = pending[goertzel.BlockSize():]
			blockCount++
			s := morse.SampledLightIntensity{
				Time:      int64(float64(blockCount) * blockMillis),
				Intensity: intensity,
			}
			select {
			case sampleCh <- s:
			default:
				// Consumer is behind; dropping keeps the audio thread
				// non-blocking. The decoder sees a longer span, not a
				// stall.
			}
		}
	})

	if err := capture.Start(ctx); err != nil {
		return fmt.Errorf("start audio capture: %w", err)
	}
	logger.Info("decoding", "tone_hz", settings.ToneFrequency, "block_ms", blockMillis)

	w := bufio.NewWriter(out)
	defer func() {
		if err := w.Flush(); err != nil {
			logger.Warn("flush output", "err", err)
		}
	}()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	defer recovery.HandlePanicFunc(func() { _ = capture.Close() })

	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-sampleCh:
			if err := mgr.AddSample(s); err != nil {
				return fmt.Errorf("add sample: %w", err)
			}
		case <-ticker.C:
			chars, err := mgr.ProduceChars()
			if err != nil {
				return fmt.Errorf("produce chars: %w", err)
			}
			if len(chars) > 0 {
				if _, err := w.WriteString(string(chars)); err != nil {
					return err
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}
		}
	}
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("execution failed", "err", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("input", "i", "", "decode a time_ms,intensity trace file instead of live audio")
	rootCmd.PersistentFlags().Float64P("frequency", "f", 600, "CW tone frequency in Hz")
	rootCmd.PersistentFlags().Int64P("unit", "u", 0, "Morse unit time in ms (0 = estimate)")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug logging")

	cobra.CheckErr(viper.BindPFlag("input", rootCmd.PersistentFlags().Lookup("input")))
	cobra.CheckErr(viper.BindPFlag("tone_frequency", rootCmd.PersistentFlags().Lookup("frequency")))
	cobra.CheckErr(viper.BindPFlag("unit_time_ms", rootCmd.PersistentFlags().Lookup("unit")))
	cobra.CheckErr(viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")))
}

func initConfig() {
	if err := config.Init(); err != nil {
		logger.Error("config error", "err", err)
		os.Exit(1)
	}
}

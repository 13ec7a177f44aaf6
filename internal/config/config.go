// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	AppName       = "morselight"
	ConfigType    = "yaml"
	DefaultConfig = `# morselight configuration

# Audio input (live mode)
sample_rate: 48000      # Audio sample rate in Hz
channels: 1             # Number of channels (1=mono)
buffer_size: 512        # Frames per audio callback
tone_frequency: 600     # CW tone frequency in Hz
block_size: 512         # Samples per intensity reading

# Decoder pipeline
likely_middle: 32768    # Coarse light/dark midpoint guess (0-65535)
unit_time_ms: 0         # Morse unit time in ms (0 = estimate from signal)
unit_min_ms: 20         # Estimation search range lower bound
unit_max_ms: 400        # Estimation search range upper bound
estimate_after_spans: 16 # Spans to observe before estimating
dark_push_ms: 0         # Force light->dark after this quiet interval (0 = off)
sample_buffer_cap: 64   # Calibration sample buffer capacity
queue_cap: 64           # Per-stage pipeline queue capacity

# Output
debug: false            # Enable debug logging
`
)

// Settings holds all application configuration.
type Settings struct {
	// Audio input
	SampleRate    float64 `mapstructure:"sample_rate"`
	Channels      int     `mapstructure:"channels"`
	BufferSize    int     `mapstructure:"buffer_size"`
	ToneFrequency float64 `mapstructure:"tone_frequency"`
	BlockSize     int     `mapstructure:"block_size"`

	// Decoder pipeline
	LikelyMiddle       int   `mapstructure:"likely_middle"`
	UnitTimeMs         int64 `mapstructure:"unit_time_ms"`
	UnitMinMs          int64 `mapstructure:"unit_min_ms"`
	UnitMaxMs          int64 `mapstructure:"unit_max_ms"`
	EstimateAfterSpans int   `mapstructure:"estimate_after_spans"`
	DarkPushMs         int64 `mapstructure:"dark_push_ms"`
	SampleBufferCap    int   `mapstructure:"sample_buffer_cap"`
	QueueCap           int   `mapstructure:"queue_cap"`

	// Output
	Debug bool `mapstructure:"debug"`
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/morselight/
func Init() error {
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("channels", 1)
	viper.SetDefault("buffer_size", 512)
	viper.SetDefault("tone_frequency", 600)
	viper.SetDefault("block_size", 512)
	viper.SetDefault("likely_middle", 32768)
	viper.SetDefault("unit_time_ms", 0)
	viper.SetDefault("unit_min_ms", 20)
	viper.SetDefault("unit_max_ms", 400)
	viper.SetDefault("estimate_after_spans", 16)
	viper.SetDefault("dark_push_ms", 0)
	viper.SetDefault("sample_buffer_cap", 64)
	viper.SetDefault("queue_cap", 64)
	viper.SetDefault("debug", false)

	viper.SetConfigType(ConfigType)
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// Try .config.yaml first (hidden file), then config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	// If no config exists anywhere, create the default in the XDG dir
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			xdgConfigPath := filepath.Join(configDir, AppName)
			if err = ensureConfigExists(xdgConfigPath); err != nil {
				return err
			}
			if err = viper.ReadInConfig(); err != nil {
				return fmt.Errorf("read config: %w", err)
			}
		} else {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings.
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges.
func (s *Settings) Validate() error {
	var errs []error

	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %v", s.SampleRate))
	}
	if s.Channels != 1 {
		errs = append(errs, fmt.Errorf("channels must be 1, got %d", s.Channels))
	}
	if s.BufferSize < 64 || s.BufferSize > 8192 {
		errs = append(errs, fmt.Errorf("buffer_size must be between 64 and 8192, got %d", s.BufferSize))
	}
	if s.ToneFrequency < 100 || s.ToneFrequency > 3000 {
		errs = append(errs, fmt.Errorf("tone_frequency must be between 100 and 3000 Hz, got %v", s.ToneFrequency))
	}
	if s.BlockSize < 32 || s.BlockSize > 4096 {
		errs = append(errs, fmt.Errorf("block_size must be between 32 and 4096, got %d", s.BlockSize))
	}
	if s.BlockSize&(s.BlockSize-1) != 0 {
		errs = append(errs, fmt.Errorf("block_size should be a power of 2, got %d", s.BlockSize))
	}
	if s.ToneFrequency >= s.SampleRate/2 {
		errs = append(errs, fmt.Errorf("tone_frequency (%v Hz) must be less than Nyquist frequency (%v Hz)", s.ToneFrequency, s.SampleRate/2))
	}

	if s.LikelyMiddle < 0 || s.LikelyMiddle > 65535 {
		errs = append(errs, fmt.Errorf("likely_middle must be between 0 and 65535, got %d", s.LikelyMiddle))
	}
	if s.UnitTimeMs < 0 {
		errs = append(errs, fmt.Errorf("unit_time_ms must be non-negative, got %d", s.UnitTimeMs))
	}
	if s.UnitTimeMs == 0 {
		if s.UnitMinMs < 0 || s.UnitMinMs >= s.UnitMaxMs {
			errs = append(errs, fmt.Errorf("unit range must satisfy 0 <= unit_min_ms < unit_max_ms, got [%d, %d)", s.UnitMinMs, s.UnitMaxMs))
		}
		if s.EstimateAfterSpans < 1 {
			errs = append(errs, fmt.Errorf("estimate_after_spans must be at least 1, got %d", s.EstimateAfterSpans))
		}
	}
	if s.DarkPushMs < 0 {
		errs = append(errs, fmt.Errorf("dark_push_ms must be non-negative, got %d", s.DarkPushMs))
	}
	if s.SampleBufferCap < 1 || s.SampleBufferCap > 4096 {
		errs = append(errs, fmt.Errorf("sample_buffer_cap must be between 1 and 4096, got %d", s.SampleBufferCap))
	}
	if s.QueueCap < 1 || s.QueueCap > 4096 {
		errs = append(errs, fmt.Errorf("queue_cap must be between 1 and 4096, got %d", s.QueueCap))
	}
	if s.SampleBufferCap > s.QueueCap {
		errs = append(errs, fmt.Errorf("sample_buffer_cap (%d) must not exceed queue_cap (%d): the calibration buffer is replayed through the sample queue", s.SampleBufferCap, s.QueueCap))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

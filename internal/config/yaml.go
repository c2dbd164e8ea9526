// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"tuner/internal/analysis"
	"tuner/internal/log"
	"tuner/internal/note"
	"tuner/pkg/bitint"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode (forces debug logging).
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Audio     AudioConfig     `yaml:"audio"`     // Audio capture settings.
	Tuner     TunerConfig     `yaml:"tuner"`     // Pitch analysis settings.
	Recording RecordingConfig `yaml:"recording"` // Audio recording settings.
	Transport TransportConfig `yaml:"transport"` // Reading publication settings.
}

// AudioConfig holds settings related to audio input.
type AudioConfig struct {
	InputDevice     int  `yaml:"input_device"`      // PortAudio device index for audio input (-1 for default).
	SampleRate      int  `yaml:"sample_rate"`       // Sample rate in Hz, 0 to probe the device.
	FramesPerBuffer int  `yaml:"frames_per_buffer"` // Number of audio frames per callback.
	LowLatency      bool `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
	InputChannels   int  `yaml:"input_channels"`    // Channels to capture; mixed down to mono for analysis.
}

// TunerConfig holds the pitch detector and display settings.
type TunerConfig struct {
	FFTSize       int     `yaml:"fft_size"`       // Transform size, power of 2.
	Sensitivity   float64 `yaml:"sensitivity"`    // Noise gate multiplier.
	BaseFrequency float64 `yaml:"base_frequency"` // Frequency of the reference A.
	AnalysisRate  int     `yaml:"analysis_rate"`  // Analyses per second.
	Notation      string  `yaml:"notation"`       // "english" or "french".
}

// RecordingConfig holds settings related to audio recording functionality.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`     // Record the captured input to a WAV file.
	OutputDir  string `yaml:"output_dir"`  // Directory for auto-named recordings.
	OutputFile string `yaml:"output_file"` // Explicit file path, overrides OutputDir.
}

// TransportConfig holds settings related to publishing readings.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send readings over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets.
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between UDP packets.
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve readings as JSON on /ws.
	WebSocketAddress string        `yaml:"websocket_address"`  // Listen address of the WebSocket server.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Debug:    false,
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			InputChannels:   DefaultChannels,
		},
		Tuner: TunerConfig{
			FFTSize:       DefaultFFTSize,
			Sensitivity:   DefaultSensitivity,
			BaseFrequency: DefaultBaseFrequency,
			AnalysisRate:  DefaultAnalysisRate,
			Notation:      DefaultNotation,
		},
		Recording: RecordingConfig{
			OutputDir: DefaultRecordingDir,
		},
		Transport: TransportConfig{
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
			WebSocketAddress: DefaultWebSocketAddress,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range []string{"config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		log.Debugf("Config: Loaded %s", path)
	}

	// Environment wins over the file.
	cfg.applyEnvOverrides()
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Normalize replaces values the tuner falls back on rather than rejects. A
// base frequency at or below note.MinBase becomes note.DefaultBase.
func (c *Config) Normalize() {
	if base := note.ValidBaseFrequency(c.Tuner.BaseFrequency); base != c.Tuner.BaseFrequency {
		log.Warnf("Config: tuner.base_frequency %v is out of range, using %v Hz", c.Tuner.BaseFrequency, base)
		c.Tuner.BaseFrequency = base
	}
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("log_level %q is not a known level", c.LogLevel))
	}

	a := c.Audio
	if a.InputDevice < MinDeviceID {
		errs = append(errs, fmt.Errorf("audio.input_device must be >= %d, got %d", MinDeviceID, a.InputDevice))
	}
	if a.SampleRate != 0 && (a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate) {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be 0 or %d-%d Hz, got %d", MinSampleRate, MaxSampleRate, a.SampleRate))
	}
	if !bitint.IsPowerOfTwo(a.FramesPerBuffer) || a.FramesPerBuffer > MaxBufferFrames {
		errs = append(errs, fmt.Errorf("audio.frames_per_buffer must be a power of 2 <= %d, got %d", MaxBufferFrames, a.FramesPerBuffer))
	}
	if a.InputChannels < 1 || a.InputChannels > MaxInputChannels {
		errs = append(errs, fmt.Errorf("audio.input_channels must be 1-%d, got %d", MaxInputChannels, a.InputChannels))
	}

	t := c.Tuner
	if !bitint.IsPowerOfTwo(t.FFTSize) || t.FFTSize < MinFFTSize || t.FFTSize > MaxFFTSize {
		errs = append(errs, fmt.Errorf("tuner.fft_size must be a power of 2 in %d-%d, got %d", MinFFTSize, MaxFFTSize, t.FFTSize))
	}
	if t.Sensitivity < analysis.MinSensitivity || t.Sensitivity > analysis.MaxSensitivity {
		errs = append(errs, fmt.Errorf("tuner.sensitivity must be %.1f-%.1f, got %v", analysis.MinSensitivity, analysis.MaxSensitivity, t.Sensitivity))
	}
	if math.IsInf(t.BaseFrequency, 0) {
		errs = append(errs, fmt.Errorf("tuner.base_frequency must be finite, got %v", t.BaseFrequency))
	}
	if t.AnalysisRate < analysis.MinAnalysisRate || t.AnalysisRate > analysis.MaxAnalysisRate {
		errs = append(errs, fmt.Errorf("tuner.analysis_rate must be %d-%d, got %d", analysis.MinAnalysisRate, analysis.MaxAnalysisRate, t.AnalysisRate))
	}
	if _, err := note.ParseNotation(t.Notation); err != nil {
		errs = append(errs, fmt.Errorf("tuner.notation: %w", err))
	}

	tr := c.Transport
	if tr.UDPEnabled {
		if _, _, err := net.SplitHostPort(tr.UDPTargetAddress); err != nil {
			errs = append(errs, fmt.Errorf("transport.udp_target_address %q: %w", tr.UDPTargetAddress, err))
		}
		if tr.UDPSendInterval <= 0 {
			errs = append(errs, errors.New("transport.udp_send_interval must be positive when UDP is enabled"))
		}
	}
	if tr.WebSocketEnabled {
		if _, _, err := net.SplitHostPort(tr.WebSocketAddress); err != nil {
			errs = append(errs, fmt.Errorf("transport.websocket_address %q: %w", tr.WebSocketAddress, err))
		}
	}

	return errors.Join(errs...)
}

// applyEnvOverrides applies ENV_* variables on top of the loaded values.
// Unparseable values are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	envBool("ENV_DEBUG", "debug", &c.Debug)
	envString("ENV_LOG_LEVEL", "log_level", &c.LogLevel)

	envInt("ENV_INPUT_DEVICE", "audio.input_device", &c.Audio.InputDevice)
	envInt("ENV_SAMPLE_RATE", "audio.sample_rate", &c.Audio.SampleRate)

	envFloat("ENV_SENSITIVITY", "tuner.sensitivity", &c.Tuner.Sensitivity)
	envFloat("ENV_BASE_FREQUENCY", "tuner.base_frequency", &c.Tuner.BaseFrequency)
	envString("ENV_NOTATION", "tuner.notation", &c.Tuner.Notation)

	envBool("ENV_UDP_ENABLED", "transport.udp_enabled", &c.Transport.UDPEnabled)
	envString("ENV_UDP_TARGET_ADDRESS", "transport.udp_target_address", &c.Transport.UDPTargetAddress)
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
			log.Infof("Config: Overriding transport.udp_send_interval from env: %s", dur)
		} else {
			log.Warnf("Config: Ignoring ENV_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}
	envBool("ENV_WS_ENABLED", "transport.websocket_enabled", &c.Transport.WebSocketEnabled)
	envString("ENV_WS_ADDRESS", "transport.websocket_address", &c.Transport.WebSocketAddress)
}

func envBool(key, field string, dst *bool) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			log.Warnf("Config: Ignoring %s=%q: %v", key, val, err)
			return
		}
		*dst = b
		log.Infof("Config: Overriding %s from env: %v", field, b)
	}
}

func envInt(key, field string, dst *int) {
	if val, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(val)
		if err != nil {
			log.Warnf("Config: Ignoring %s=%q: %v", key, val, err)
			return
		}
		*dst = n
		log.Infof("Config: Overriding %s from env: %d", field, n)
	}
}

func envFloat(key, field string, dst *float64) {
	if val, ok := os.LookupEnv(key); ok {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Warnf("Config: Ignoring %s=%q: %v", key, val, err)
			return
		}
		*dst = f
		log.Infof("Config: Overriding %s from env: %v", field, f)
	}
}

func envString(key, field string, dst *string) {
	if val, ok := os.LookupEnv(key); ok {
		*dst = val
		log.Infof("Config: Overriding %s from env: %s", field, val)
	}
}

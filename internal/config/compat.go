// SPDX-License-Identifier: MIT
package config

import (
	"tuner/internal/analysis"
	"tuner/internal/log"
	"tuner/internal/note"
)

// DeviceID returns the input device ID.
func (c *Config) DeviceID() int {
	return c.Audio.InputDevice
}

// Channels returns the number of input channels.
func (c *Config) Channels() int {
	return c.Audio.InputChannels
}

// FramesPerBuffer returns the frames per buffer.
func (c *Config) FramesPerBuffer() int {
	return c.Audio.FramesPerBuffer
}

// SampleRate returns the configured sample rate, 0 when it should be probed.
func (c *Config) SampleRate() int {
	return c.Audio.SampleRate
}

// LowLatency returns whether to use low latency mode.
func (c *Config) LowLatency() bool {
	return c.Audio.LowLatency
}

// Level returns the effective log level; Debug forces debug output.
func (c *Config) Level() log.LogLevel {
	if c.Debug {
		return log.LevelDebug
	}
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}

// Notation returns the parsed note naming scheme, English when invalid.
func (c *Config) Notation() note.Notation {
	n, _ := note.ParseNotation(c.Tuner.Notation)
	return n
}

// PitchConfig builds the analysis settings for a stream at sampleRate.
func (c *Config) PitchConfig(sampleRate int) analysis.PitchConfig {
	return analysis.PitchConfig{
		SampleRate:    sampleRate,
		FFTSize:       c.Tuner.FFTSize,
		AnalysisRate:  c.Tuner.AnalysisRate,
		Sensitivity:   c.Tuner.Sensitivity,
		BaseFrequency: c.Tuner.BaseFrequency,
		Notation:      c.Notation(),
	}
}

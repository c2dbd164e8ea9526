// SPDX-License-Identifier: MIT
package config

import (
	"time"

	"tuner/internal/analysis"
)

// Core configuration constants that define the boundaries and defaults
// for the tuner.
const (
	// Audio capture defaults
	DefaultChannels        = 1           // Mono audio
	DefaultDeviceID        = MinDeviceID // Default to system default device
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultLowLatency      = false       // Standard latency mode
	DefaultSampleRate      = 0           // 0 probes the device (48000, 44100, ...)
	DefaultLogLevel        = "info"

	// Tuner defaults
	DefaultFFTSize       = 1 << 15
	DefaultSensitivity   = 5.0
	DefaultBaseFrequency = 440.0
	DefaultAnalysisRate  = analysis.DefaultAnalysisRate
	DefaultNotation      = "english"

	// Recording defaults
	DefaultRecordingDir = "./recordings"

	// Transport defaults
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond // ~30Hz, one packet per reading
	DefaultWebSocketAddress = ":8080"

	// Hardware and processing limits
	MinDeviceID      = -1     // -1 represents system default device
	MinSampleRate    = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate    = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames  = 8192   // Maximum frames per buffer (power of 2)
	MaxInputChannels = 2
	MinFFTSize       = 1 << 10
	MaxFFTSize       = 1 << 20
)

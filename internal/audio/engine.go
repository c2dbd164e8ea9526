// SPDX-License-Identifier: MIT
/*
Package audio implements the real-time capture side of the tuner:
- Audio capture using PortAudio (16-bit input)
- Mono down-mix into a pre-allocated buffer
- Fan-out to analysis processors
- Input peak metering with a branchless implementation
- WAV recording with atomic state management

Thread Safety:
- Uses atomic operations for state management
- Pre-allocates buffers to avoid GC in hot path
- Locks OS thread during audio processing
*/
package audio

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"tuner/internal/analysis"
	"tuner/internal/config"
	"tuner/internal/log"
)

type Engine struct {
	// Core configuration and state.
	config          *config.Config
	sampleRate      int
	channels        int
	framesPerBuffer int

	// Audio input handling.
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Analysis fan-out.
	monoBuffer  []int16 // Mono down-mix of the current callback
	processors  []analysis.AudioProcessor
	controllers []analysis.SensitivityController

	// Input metering.
	peak atomic.Int32 // Max |sample| of the last callback (0-32768)

	// Recording state and buffers.
	isRecording int32      // Atomic flag for thread-safe state
	recordMu    sync.Mutex // Guards encoder against StopRecording
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer // Reusable buffer for format conversion
}

// NewEngine resolves the configured input device and prepares buffers for a
// stream at sampleRate. Processors receive mono int16 buffers from the audio
// callback; the ones implementing analysis.SensitivityController follow
// SetSensitivity.
func NewEngine(cfg *config.Config, sampleRate int, processors ...analysis.AudioProcessor) (*Engine, error) {
	inputDevice, err := InputDevice(cfg.DeviceID())
	if err != nil {
		return nil, err
	}
	if inputDevice.MaxInputChannels < cfg.Channels() {
		return nil, fmt.Errorf("device %q has %d input channels, %d requested",
			inputDevice.Name, inputDevice.MaxInputChannels, cfg.Channels())
	}

	engine := newEngine(cfg, sampleRate, processors...)
	engine.inputDevice = inputDevice

	if cfg.LowLatency() {
		engine.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		engine.inputLatency = inputDevice.DefaultHighInputLatency
	}

	log.Infof("Audio: Engine ready on %q (%d Hz, %d ch, %d frames)",
		inputDevice.Name, sampleRate, engine.channels, engine.framesPerBuffer)
	return engine, nil
}

// newEngine builds everything except the device binding.
func newEngine(cfg *config.Config, sampleRate int, processors ...analysis.AudioProcessor) *Engine {
	engine := &Engine{
		config:          cfg,
		sampleRate:      sampleRate,
		channels:        cfg.Channels(),
		framesPerBuffer: cfg.FramesPerBuffer(),
		monoBuffer:      make([]int16, cfg.FramesPerBuffer()),
	}
	for _, p := range processors {
		if p == nil {
			continue
		}
		engine.processors = append(engine.processors, p)
		if c, ok := p.(analysis.SensitivityController); ok {
			engine.controllers = append(engine.controllers, c)
		}
	}
	return engine
}

// SampleRate returns the stream rate in Hz.
func (e *Engine) SampleRate() int {
	return e.sampleRate
}

func (e *Engine) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.channels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: e.framesPerBuffer,
		SampleRate:      float64(e.sampleRate),
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	log.Debugf("Audio: Input stream started")
	return nil
}

func (e *Engine) StopInputStream() error {
	if e.inputStream != nil {
		if err := e.inputStream.Stop(); err != nil {
			return err
		}

		if err := e.inputStream.Close(); err != nil {
			return err
		}

		e.inputStream = nil
		log.Debugf("Audio: Input stream stopped")
	}

	return nil
}

// processInputStream is the core audio processing callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (e *Engine) processInputStream(in []int16) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.processBuffer(in)
	e.record(in)
}

// processBuffer down-mixes the interleaved input to mono and hands it to
// every processor. Input longer than the pre-allocated buffer is handled in
// buffer-sized pieces.
func (e *Engine) processBuffer(in []int16) {
	var peak int32
	for len(in) >= e.channels {
		frames := min(len(in)/e.channels, len(e.monoBuffer))
		if frames == 0 {
			break
		}

		mono := e.monoBuffer[:frames]
		analysis.DownmixInt16(mono, in[:frames*e.channels], e.channels)

		if p := peakAmplitude(mono); p > peak {
			peak = p
		}
		for _, p := range e.processors {
			p.Process(mono)
		}

		in = in[frames*e.channels:]
	}
	e.peak.Store(peak)
}

// peakAmplitude returns max |sample| without branching.
func peakAmplitude(buffer []int16) int32 {
	var maxAmplitude int32
	for _, s := range buffer {
		sample := int32(s)
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask
		diff := amplitude - maxAmplitude
		maxAmplitude += (diff & (diff >> 31)) ^ diff
	}
	return maxAmplitude
}

// Close stops the input stream, finishes any recording and closes every
// processor that holds resources.
func (e *Engine) Close() error {
	if err := e.StopInputStream(); err != nil {
		return err
	}

	if atomic.LoadInt32(&e.isRecording) == 1 {
		if err := e.StopRecording(); err != nil {
			return err
		}
	}

	for _, p := range e.processors {
		if c, ok := p.(analysis.ClosableProcessor); ok {
			if err := c.Close(); err != nil {
				log.Warnf("Audio: Error closing processor: %v", err)
			}
		}
	}

	return nil
}

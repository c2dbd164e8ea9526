// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"tuner/internal/log"
)

const recordingBitDepth = 16

// RecordingName returns a timestamped WAV path inside dir.
func RecordingName(dir string, t time.Time) string {
	return filepath.Join(dir, "tuner_"+t.Format("20060102_150405")+".wav")
}

// StartRecording writes the captured input, all channels, to a 16-bit WAV
// file. Missing parent directories are created.
func (e *Engine) StartRecording(filename string) error {
	if atomic.LoadInt32(&e.isRecording) == 1 {
		return fmt.Errorf("already recording")
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create recording directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	e.recordMu.Lock()
	e.outputFile = file
	e.wavEncoder = wav.NewEncoder(file, e.sampleRate, recordingBitDepth, e.channels, 1)
	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: e.channels,
			SampleRate:  e.sampleRate,
		},
		Data:           make([]int, e.framesPerBuffer*e.channels),
		SourceBitDepth: recordingBitDepth,
	}
	e.recordMu.Unlock()

	atomic.StoreInt32(&e.isRecording, 1)
	log.Infof("Audio: Recording to %s", filename)

	return nil
}

// record appends the interleaved input to the WAV file when recording.
func (e *Engine) record(in []int16) {
	if atomic.LoadInt32(&e.isRecording) == 0 {
		return
	}

	e.recordMu.Lock()
	defer e.recordMu.Unlock()
	if e.wavEncoder == nil {
		return
	}

	if cap(e.sampleBuf.Data) < len(in) {
		e.sampleBuf.Data = make([]int, len(in))
	}
	e.sampleBuf.Data = e.sampleBuf.Data[:len(in)]
	for i, sample := range in {
		e.sampleBuf.Data[i] = int(sample)
	}

	if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
		log.Errorf("Audio: Error writing to WAV file: %v", err)
	}
}

// IsRecording reports whether input is being written to disk.
func (e *Engine) IsRecording() bool {
	return atomic.LoadInt32(&e.isRecording) == 1
}

func (e *Engine) StopRecording() error {
	if atomic.LoadInt32(&e.isRecording) == 0 {
		return nil
	}

	atomic.StoreInt32(&e.isRecording, 0)

	e.recordMu.Lock()
	defer e.recordMu.Unlock()

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return err
		}
		e.wavEncoder = nil
	}

	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			return err
		}
		e.outputFile = nil
	}

	log.Infof("Audio: Recording stopped")
	return nil
}

// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuner/internal/note"
	"tuner/internal/pitch"
	"tuner/pkg/utils"
)

const testSampleRate = 48000

func newTestProcessor(t *testing.T, cfg PitchConfig) (*PitchProcessor, *utils.MockTransport) {
	t.Helper()
	if cfg.SampleRate == 0 {
		cfg.SampleRate = testSampleRate
	}
	mock := &utils.MockTransport{}
	p, err := NewPitchProcessor(cfg, mock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, mock
}

func feed(p *PitchProcessor, samples []int16, chunk int) {
	for len(samples) > 0 {
		k := min(chunk, len(samples))
		p.Process(samples[:k])
		samples = samples[k:]
	}
}

func lastReading(t *testing.T, mock *utils.MockTransport) Reading {
	t.Helper()
	r, ok := mock.Last().(Reading)
	require.True(t, ok, "last payload is %T", mock.Last())
	return r
}

func TestNewPitchProcessor_Errors(t *testing.T) {
	_, err := NewPitchProcessor(PitchConfig{SampleRate: 0}, nil)
	assert.ErrorIs(t, err, pitch.ErrInvalidSampleRate)

	_, err = NewPitchProcessor(PitchConfig{SampleRate: testSampleRate, FFTSize: 1000}, nil)
	assert.ErrorIs(t, err, pitch.ErrInvalidFFTSize)

	_, err = NewPitchProcessor(PitchConfig{SampleRate: testSampleRate, FFTSize: 1024}, nil)
	assert.ErrorIs(t, err, pitch.ErrWindowTooLarge)
}

func TestNewPitchProcessor_Defaults(t *testing.T) {
	p, _ := newTestProcessor(t, PitchConfig{})

	assert.Equal(t, 1146, p.WindowLength())
	assert.Equal(t, int64(testSampleRate/DefaultAnalysisRate), p.hop.Load())
	assert.Equal(t, pitch.DefaultSensitivity, p.Sensitivity())
	assert.Equal(t, note.DefaultBase, p.base)
	assert.Equal(t, HistorySeconds*testSampleRate, cap(p.history))
	assert.Equal(t, testSampleRate, p.SampleRate())
}

func TestProcess_WaitsForFullWindow(t *testing.T) {
	p, mock := newTestProcessor(t, PitchConfig{})

	p.Process(utils.Silence(p.WindowLength() - 1))
	assert.Equal(t, 0, mock.Count())

	p.Process(utils.Silence(1))
	assert.Equal(t, 1, mock.Count())

	// Next analysis only after a full hop (1600 samples at 30/s).
	for i := 0; i < 3; i++ {
		p.Process(utils.Silence(400))
	}
	assert.Equal(t, 1, mock.Count())
	p.Process(utils.Silence(400))
	assert.Equal(t, 2, mock.Count())
}

func TestProcess_LargeBufferSingleAnalysis(t *testing.T) {
	p, mock := newTestProcessor(t, PitchConfig{})

	p.Process(utils.Silence(10 * testSampleRate / DefaultAnalysisRate))
	assert.Equal(t, 1, mock.Count())
}

func TestProcess_EmptyBuffer(t *testing.T) {
	p, mock := newTestProcessor(t, PitchConfig{})
	p.Process(nil)
	assert.Equal(t, 0, mock.Count())
	assert.Zero(t, p.consumed)
}

func TestProcess_HistoryCompaction(t *testing.T) {
	p, _ := newTestProcessor(t, PitchConfig{AnalysisRate: MaxAnalysisRate})
	capacity := cap(p.history)

	stream := make([]int16, 3*testSampleRate+123)
	for i := range stream {
		stream[i] = int16(i % 30000)
	}
	feed(p, stream, 1024)

	assert.Equal(t, capacity, cap(p.history), "history must not reallocate")
	assert.LessOrEqual(t, len(p.history), capacity)

	w := p.WindowLength()
	assert.Equal(t, stream[len(stream)-w:], p.history[len(p.history)-w:])
	assert.Equal(t, int64(len(stream)), p.consumed)
}

func TestProcess_OversizedBuffer(t *testing.T) {
	p, _ := newTestProcessor(t, PitchConfig{})
	capacity := cap(p.history)

	stream := make([]int16, capacity+500)
	for i := range stream {
		stream[i] = int16(i % 1000)
	}
	p.Process(stream)

	assert.Equal(t, capacity, len(p.history))
	assert.Equal(t, stream[500:], p.history)
}

func TestProcess_DetectsTone(t *testing.T) {
	p, mock := newTestProcessor(t, PitchConfig{AnalysisRate: MaxAnalysisRate})
	hop := int(p.hop.Load())

	// Let the noise floor come down from its start value.
	feed(p, utils.Silence(250*hop), hop)
	r := lastReading(t, mock)
	assert.False(t, r.Tone)
	assert.Equal(t, pitch.BelowNoiseFloor.String(), r.Reason)
	assert.Nil(t, r.Note)

	feed(p, utils.GenerateSineWave(10*hop, testSampleRate, 440, 8000), hop)

	r = lastReading(t, mock)
	require.True(t, r.Tone, "reading: %s", r)
	assert.InDelta(t, 440, r.Frequency, testSampleRate/float64(pitch.DefaultSize))
	require.NotNil(t, r.Note)
	assert.Equal(t, "A", r.Note.Name)
	assert.Equal(t, 4, r.Note.Octave)
	assert.Less(t, math.Abs(r.Note.Cents), 10.0)
	assert.Greater(t, r.Energy, 0.0)
	assert.Empty(t, r.Reason)

	latest, ok := p.Latest()
	require.True(t, ok)
	assert.Equal(t, r, latest)
}

func TestProcess_FrenchNotation(t *testing.T) {
	p, mock := newTestProcessor(t, PitchConfig{AnalysisRate: MaxAnalysisRate, Notation: note.French})
	hop := int(p.hop.Load())

	feed(p, utils.Silence(250*hop), hop)
	feed(p, utils.GenerateSineWave(10*hop, testSampleRate, 440, 8000), hop)

	r := lastReading(t, mock)
	require.True(t, r.Tone)
	require.NotNil(t, r.Note)
	assert.Equal(t, "La", r.Note.Name)
}

func TestSampleOffset(t *testing.T) {
	tests := []struct {
		samples int64
		rate    int
		want    time.Duration
	}{
		{0, 48000, 0},
		{24000, 48000, 500 * time.Millisecond},
		{44100 + 441, 44100, time.Second + 10*time.Millisecond},
		// Sixty hours at 48 kHz: samples*time.Second alone would overflow.
		{60 * 3600 * 48000, 48000, 60 * time.Hour},
		{60*3600*48000 + 12000, 48000, 60*time.Hour + 250*time.Millisecond},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sampleOffset(tt.samples, tt.rate), "%d samples at %d Hz", tt.samples, tt.rate)
	}
}

func TestProcess_SequenceAndOffset(t *testing.T) {
	p, mock := newTestProcessor(t, PitchConfig{AnalysisRate: MaxAnalysisRate})
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	feed(p, utils.Silence(testSampleRate), 480)

	r := lastReading(t, mock)
	assert.Equal(t, uint64(mock.Count()), r.Sequence)
	assert.Equal(t, time.Second, r.Offset)
	assert.Equal(t, fixed, r.Time)
}

func TestLatest_Empty(t *testing.T) {
	p, err := NewPitchProcessor(PitchConfig{SampleRate: testSampleRate}, nil)
	require.NoError(t, err)
	defer p.Close()

	_, ok := p.Latest()
	assert.False(t, ok)

	// A nil transport is fine, readings are still kept.
	p.Process(utils.Silence(p.WindowLength()))
	_, ok = p.Latest()
	assert.True(t, ok)
}

func TestSetSensitivity(t *testing.T) {
	p, _ := newTestProcessor(t, PitchConfig{})

	assert.Equal(t, MinSensitivity, p.SetSensitivity(0.1))
	assert.Equal(t, MaxSensitivity, p.SetSensitivity(1000))
	assert.Equal(t, MaxSensitivity, p.SetSensitivity(math.NaN()))
	assert.Equal(t, 12.5, p.SetSensitivity(12.5))
	assert.Equal(t, 12.5, p.Sensitivity())

	// Staged until the audio thread runs the next analysis.
	assert.Equal(t, pitch.DefaultSensitivity, p.detector.Sensitivity())
	p.Process(utils.Silence(p.WindowLength()))
	assert.Equal(t, 12.5, p.detector.Sensitivity())
}

func TestClampSensitivity(t *testing.T) {
	assert.Equal(t, 0.5, ClampSensitivity(-3))
	assert.Equal(t, 5.0, ClampSensitivity(5))
	assert.Equal(t, 100.0, ClampSensitivity(math.Inf(1)))
}

func TestSetAnalysisRate(t *testing.T) {
	p, _ := newTestProcessor(t, PitchConfig{})

	assert.Equal(t, MinAnalysisRate, p.SetAnalysisRate(0))
	assert.Equal(t, int64(testSampleRate), p.hop.Load())

	assert.Equal(t, MaxAnalysisRate, p.SetAnalysisRate(1000))
	assert.Equal(t, int64(testSampleRate/MaxAnalysisRate), p.hop.Load())
}

func TestClose(t *testing.T) {
	p, mock := newTestProcessor(t, PitchConfig{})

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	p.Process(utils.Silence(p.WindowLength() * 2))
	assert.Equal(t, 0, mock.Count())
	assert.False(t, p.detector.Ready())
}

func TestReadingString(t *testing.T) {
	n, ok := note.FromFrequency(440, 440, note.English)
	require.True(t, ok)

	tone := Reading{Offset: 1500 * time.Millisecond, Tone: true, Frequency: 440, Energy: 12, Note: &n}
	s := tone.String()
	assert.True(t, strings.HasPrefix(s, "    1.500s"), s)
	assert.Contains(t, s, "440.00 Hz")
	assert.Contains(t, s, "A4")
	assert.Contains(t, s, "energy=12.0")

	quiet := Reading{Reason: pitch.BelowNoiseFloor.String()}
	assert.Contains(t, quiet.String(), "(below noise floor)")
}

func BenchmarkProcess(b *testing.B) {
	p, err := NewPitchProcessor(PitchConfig{SampleRate: testSampleRate}, nil)
	if err != nil {
		b.Fatal(err)
	}
	defer p.Close()
	buf := utils.GenerateSineWave(512, testSampleRate, 440, 8000)

	b.ReportAllocs()

	for b.Loop() {
		p.Process(buf)
	}
}

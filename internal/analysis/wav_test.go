// SPDX-License-Identifier: MIT
package analysis

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuner/pkg/utils"
)

func writeTestWAV(t *testing.T, samples []int16, rate, channels int) string {
	t.Helper()
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	return encodeTestWAV(t, data, rate, 16, channels, wavFormatPCM)
}

// writeFloatWAV stores samples as 32-bit IEEE float; the encoder writes the
// raw bit patterns it is given.
func writeFloatWAV(t *testing.T, samples []float32, rate int) string {
	t.Helper()
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(int32(math.Float32bits(s)))
	}
	return encodeTestWAV(t, data, rate, 32, 1, wavFormatFloat)
}

func encodeTestWAV(t *testing.T, data []int, rate, bitDepth, channels, format int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, rate, bitDepth, channels, format)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func TestAnalyzeWAV(t *testing.T) {
	signal := append(utils.Silence(2*testSampleRate), utils.GenerateSineWave(testSampleRate, testSampleRate, 440, 8000)...)
	path := writeTestWAV(t, signal, testSampleRate, 1)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	mock := &utils.MockTransport{}
	sum, err := AnalyzeWAV(f, PitchConfig{AnalysisRate: MaxAnalysisRate}, mock)
	require.NoError(t, err)

	assert.Equal(t, testSampleRate, sum.SampleRate)
	assert.Equal(t, 1, sum.Channels)
	assert.Equal(t, 16, sum.BitDepth)
	assert.Equal(t, 3*time.Second, sum.Duration)
	assert.Equal(t, mock.Count(), sum.Readings)
	assert.InDelta(t, 3*MaxAnalysisRate, sum.Readings, 3)
	assert.Greater(t, sum.Tones, 50)

	r := lastReading(t, mock)
	require.True(t, r.Tone)
	assert.InDelta(t, 440, r.Frequency, 1.5)
}

func TestAnalyzeWAV_Stereo(t *testing.T) {
	mono := append(utils.Silence(2*testSampleRate), utils.GenerateSineWave(testSampleRate/2, testSampleRate, 660, 8000)...)
	stereo := make([]int16, 2*len(mono))
	for i, s := range mono {
		stereo[2*i] = s
		stereo[2*i+1] = s
	}
	path := writeTestWAV(t, stereo, testSampleRate, 2)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	mock := &utils.MockTransport{}
	sum, err := AnalyzeWAV(f, PitchConfig{AnalysisRate: MaxAnalysisRate}, mock)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Channels)
	assert.Equal(t, 2500*time.Millisecond, sum.Duration)

	r := lastReading(t, mock)
	require.True(t, r.Tone)
	assert.InDelta(t, 660, r.Frequency, 1.5)
}

func TestAnalyzeWAV_Float(t *testing.T) {
	signal := make([]float32, 3*testSampleRate)
	for i := 2 * testSampleRate; i < len(signal); i++ {
		signal[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/testSampleRate))
	}
	path := writeFloatWAV(t, signal, testSampleRate)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	mock := &utils.MockTransport{}
	sum, err := AnalyzeWAV(f, PitchConfig{AnalysisRate: MaxAnalysisRate}, mock)
	require.NoError(t, err)
	assert.Equal(t, 32, sum.BitDepth)
	assert.Greater(t, sum.Tones, 50)

	r := lastReading(t, mock)
	require.True(t, r.Tone)
	assert.InDelta(t, 440, r.Frequency, 1.5)
}

func TestAnalyzeWAV_UnsupportedFormat(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		format   int
	}{
		{"16-bit float", 16, wavFormatFloat},
		{"a-law", 8, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := encodeTestWAV(t, make([]int, 1024), testSampleRate, tt.bitDepth, 1, tt.format)
			f, err := os.Open(path)
			require.NoError(t, err)
			defer f.Close()

			_, err = AnalyzeWAV(f, PitchConfig{}, nil)
			assert.ErrorIs(t, err, ErrUnsupportedFormat)
		})
	}
}

func TestAnalyzeWAV_Invalid(t *testing.T) {
	_, err := AnalyzeWAV(bytes.NewReader([]byte("definitely not RIFF data")), PitchConfig{}, nil)
	assert.ErrorIs(t, err, ErrInvalidWAV)
}

func decoderFor(t *testing.T, format uint16, bitDepth int) SampleDecoder {
	t.Helper()
	decode, err := sampleDecoderFor(format, bitDepth)
	require.NoError(t, err)
	return decode
}

func TestDownmixInts(t *testing.T) {
	dst := make([]int16, 2)
	DownmixInts(dst, []int{100, 300, -50, -150}, 2, decoderFor(t, wavFormatPCM, 16))
	assert.Equal(t, []int16{200, -100}, dst)

	dst = make([]int16, 2)
	DownmixInts(dst, []int{128, 255}, 1, decoderFor(t, wavFormatPCM, 8))
	assert.Equal(t, []int16{0, 127 << 8}, dst)

	dst = make([]int16, 1)
	DownmixInts(dst, []int{1000 << 8}, 1, decoderFor(t, wavFormatPCM, 24))
	assert.Equal(t, []int16{1000}, dst)

	DownmixInts(dst, []int{-1000 << 16}, 1, decoderFor(t, wavFormatPCM, 32))
	assert.Equal(t, []int16{-1000}, dst)
}

func TestDownmixInts_Float(t *testing.T) {
	bits := func(f float32) int { return int(int32(math.Float32bits(f))) }
	decode := decoderFor(t, wavFormatFloat, 32)

	dst := make([]int16, 5)
	DownmixInts(dst, []int{bits(0.5), bits(-0.25), bits(2), bits(-1), bits(float32(math.NaN()))}, 1, decode)
	assert.Equal(t, []int16{16384, -8192, math.MaxInt16, -math.MaxInt16, 0}, dst)

	dst = make([]int16, 1)
	DownmixInts(dst, []int{bits(0.5), bits(0)}, 2, decode)
	assert.Equal(t, []int16{8192}, dst)
}

func TestDownmixInt16(t *testing.T) {
	dst := make([]int16, 3)
	DownmixInt16(dst, []int16{1, 2, 3}, 1)
	assert.Equal(t, []int16{1, 2, 3}, dst)

	dst = make([]int16, 2)
	DownmixInt16(dst, []int16{10, 20, -7, -9}, 2)
	assert.Equal(t, []int16{15, -8}, dst)
}

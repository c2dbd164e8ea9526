// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"math/rand"
	"sync"
)

// MockTransport implements the Transport interface for testing. It keeps
// every payload it is handed so tests can inspect the sequence.
type MockTransport struct {
	mu     sync.Mutex
	Sent   []any
	Closed bool
}

// Send stores the data for later inspection instead of transmitting.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, data)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Count returns how many payloads were sent.
func (m *MockTransport) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// Last returns the most recent payload, or nil.
func (m *MockTransport) Last() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return nil
	}
	return m.Sent[len(m.Sent)-1]
}

// GenerateSineWave returns a 16-bit sine of the given peak amplitude.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []int16 {
	return GenerateHarmonicWave(size, sampleRate, frequency, amplitude)
}

// GenerateHarmonicWave sums harmonics of fundamental: amplitudes[0] is the
// fundamental itself, amplitudes[1] the 2nd harmonic and so on. A zero
// amplitude suppresses that partial entirely.
func GenerateHarmonicWave(size int, sampleRate, fundamental float64, amplitudes ...float64) []int16 {
	buffer := make([]int16, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		var signal float64
		for h, a := range amplitudes {
			if a == 0 {
				continue
			}
			signal += a * math.Sin(2*math.Pi*fundamental*float64(h+1)*tm)
		}
		buffer[i] = clampInt16(signal)
	}
	return buffer
}

// GenerateNoise returns uniformly distributed noise in [-amplitude, amplitude].
// The seed keeps tests deterministic.
func GenerateNoise(size int, amplitude float64, seed int64) []int16 {
	rng := rand.New(rand.NewSource(seed))
	buffer := make([]int16, size)
	for i := range buffer {
		buffer[i] = clampInt16((rng.Float64()*2 - 1) * amplitude)
	}
	return buffer
}

// Silence returns size zero samples.
func Silence(size int) []int16 {
	return make([]int16, size)
}

// Scale multiplies every sample by k, saturating at the int16 range.
func Scale(samples []int16, k float64) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = clampInt16(float64(s) * k)
	}
	return out
}

func clampInt16(v float64) int16 {
	v = math.Round(v)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// FindPeakBin returns the index of the largest magnitude in [startBin, endBin].
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}

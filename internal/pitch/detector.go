// SPDX-License-Identifier: MIT
package pitch

import (
	"fmt"
	"math"
	"math/cmplx"

	"tuner/internal/fft"
	"tuner/internal/log"
	"tuner/pkg/bitint"
)

// Sample is the set of element types a Detector accepts.
type Sample interface {
	~int8 | ~int16 | ~int32 | ~float32 | ~float64
}

const (
	// DefaultSize is the transform size used by the tuner, large enough for
	// the analysis window at any common capture rate.
	DefaultSize = 1 << 15
	// DefaultSensitivity is the gate multiplier applied to the noise floor.
	DefaultSensitivity = 5.0

	minSize = 8

	// floorSentinel is where the noise floor starts, so the first real
	// buffers always pull it down.
	floorSentinel = math.MaxFloat32
	// floorLeak is added to the floor on every call so it cannot stay stuck
	// on one unusually quiet buffer.
	floorLeak = 1e-4
)

type state uint8

const (
	unconfigured state = iota
	ready
	disposed
)

// Detector is the pitch and volume engine for one stream. The zero value is
// not usable; call New.
type Detector[S Sample] struct {
	size int
	plan *fft.Transform

	in       []complex128
	out      []complex128
	window   []float64
	spectrum []float64
	peaks    []int
	filled   int // entries of in written by the previous call

	sampleRate   int
	sampleLength int
	factor       float64

	sensitivity float64
	minVolume   float64
	curVolume   float64

	state state
}

// New allocates a detector with a transform of size points. size must be a
// power of two. The detector must be initialized before any analysis.
func New[S Sample](size int) (*Detector[S], error) {
	if size < minSize || !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidFFTSize, size)
	}

	plan, err := fft.NewTransform(size)
	if err != nil {
		return nil, fmt.Errorf("pitch: %w", err)
	}

	return &Detector[S]{
		size:        size,
		plan:        plan,
		in:          make([]complex128, size),
		out:         make([]complex128, size),
		window:      make([]float64, size),
		spectrum:    make([]float64, size/2),
		peaks:       make([]int, 0, maxPeaks),
		sensitivity: DefaultSensitivity,
		minVolume:   floorSentinel,
	}, nil
}

// Initialize configures the detector for sampleRate and returns the analysis
// window length in samples. It may be called again to reconfigure. On error
// the previous window and frequency factor are kept but the detector refuses
// to analyse until a later Initialize succeeds.
func (d *Detector[S]) Initialize(sampleRate int) (int, error) {
	if d.state == disposed {
		return 0, ErrDisposed
	}
	if sampleRate <= 0 {
		d.state = unconfigured
		return 0, fmt.Errorf("%w, got %d", ErrInvalidSampleRate, sampleRate)
	}

	length := WindowLength(sampleRate)
	if length > d.size {
		d.state = unconfigured
		return length, fmt.Errorf("%w: %d samples at %d Hz, size %d", ErrWindowTooLarge, length, sampleRate, d.size)
	}

	fillGaussian(d.window, length, sampleRate)
	d.sampleRate = sampleRate
	d.sampleLength = length
	d.factor = d.plan.BinFrequency(1, float64(sampleRate))
	d.state = ready

	log.Debugf("Pitch: Initialized rate=%d Hz, window=%d samples, %.4f Hz/bin", sampleRate, length, d.factor)
	return length, nil
}

// SignalEnergy returns Σx² divided by the sample rate over the whole slice.
// It does not touch the spectral or noise floor state.
func (d *Detector[S]) SignalEnergy(samples []S) (float64, error) {
	if err := d.checkReady(); err != nil {
		return 0, err
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return sum / float64(d.sampleRate), nil
}

// ComputeFreq estimates the fundamental of the most recent samples. At most
// SampleLength samples from the end of the slice are analysed. A buffer
// without a usable tone yields an Estimate with Tone false, not an error.
func (d *Detector[S]) ComputeFreq(samples []S) (Estimate, error) {
	if err := d.checkReady(); err != nil {
		return Estimate{}, err
	}

	k := min(d.sampleLength, len(samples))
	recent := samples[len(samples)-k:]

	if !d.gate(recent) {
		return noTone(BelowNoiseFloor), nil
	}

	d.load(recent)
	// Lengths are fixed at construction.
	_ = d.plan.Forward(d.out, d.in)

	half := d.size / 2
	for i := 1; i < half; i++ {
		d.spectrum[i] = cmplx.Abs(d.out[i])
	}

	return d.findFrequency(), nil
}

// gate updates the noise floor with the current buffer and reports whether
// the buffer is loud enough to analyse.
func (d *Detector[S]) gate(recent []S) bool {
	d.minVolume += floorLeak

	var cur float64
	for _, s := range recent {
		cur += math.Abs(float64(s))
	}
	d.curVolume = cur

	if cur < d.minVolume {
		d.minVolume -= 0.5 * (d.minVolume - cur)
	}
	return cur >= d.minVolume*d.sensitivity
}

// load writes the windowed samples, most recent first, into the transform
// input and clears whatever the previous call left past them.
func (d *Detector[S]) load(recent []S) {
	k := len(recent)
	for i := 0; i < k; i++ {
		d.in[i] = complex(float64(recent[k-1-i])*d.window[i], 0)
	}
	if d.filled > k {
		clear(d.in[k:d.filled])
	}
	d.filled = k
}

// SetMinVolumeSensitivity sets the gate multiplier used from the next
// ComputeFreq on. Callers are expected to clamp it to a sane range.
func (d *Detector[S]) SetMinVolumeSensitivity(v float64) error {
	if d.state == disposed {
		return ErrDisposed
	}
	if math.IsNaN(v) || v <= 0 {
		return fmt.Errorf("%w, got %v", ErrInvalidSensitivity, v)
	}
	d.sensitivity = v
	return nil
}

// Dispose releases the buffers. Every later call fails with ErrDisposed.
func (d *Detector[S]) Dispose() {
	if d.state == disposed {
		return
	}
	d.in, d.out = nil, nil
	d.window, d.spectrum = nil, nil
	d.peaks = nil
	d.plan = nil
	d.state = disposed
}

func (d *Detector[S]) checkReady() error {
	switch d.state {
	case ready:
		return nil
	case disposed:
		return ErrDisposed
	default:
		return ErrNotInitialized
	}
}

// Ready reports whether the detector can analyse.
func (d *Detector[S]) Ready() bool { return d.state == ready }

// Size returns the transform size.
func (d *Detector[S]) Size() int { return d.size }

// SampleRate returns the configured sample rate, 0 before Initialize.
func (d *Detector[S]) SampleRate() int { return d.sampleRate }

// SampleLength returns the analysis window length in samples.
func (d *Detector[S]) SampleLength() int { return d.sampleLength }

// FrequencyFactor returns the width of one spectral bin in Hz.
func (d *Detector[S]) FrequencyFactor() float64 { return d.factor }

// Sensitivity returns the current gate multiplier.
func (d *Detector[S]) Sensitivity() float64 { return d.sensitivity }

// NoiseFloor returns the current floor and the volume of the last buffer,
// both as sums of absolute sample values.
func (d *Detector[S]) NoiseFloor() (floor, current float64) {
	return d.minVolume, d.curVolume
}

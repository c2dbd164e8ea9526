// SPDX-License-Identifier: MIT
package fft

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"

	"tuner/pkg/bitint"
)

var (
	// ErrInvalidSize indicates the transform length is not a power of two.
	ErrInvalidSize = errors.New("fft size must be a positive power of 2")
	// ErrLengthMismatch indicates a buffer does not match the transform length.
	ErrLengthMismatch = errors.New("buffer length does not match fft size")
)

// Transform is a fixed-length forward complex-to-complex DFT. The plan and its
// work area are allocated once, so Forward never allocates.
//
// X[k] = Σ x[n]·exp(-2πi·k·n/N), with no scaling applied.
type Transform struct {
	size int
	plan *fourier.CmplxFFT
}

// NewTransform builds a plan for size points.
func NewTransform(size int) (*Transform, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidSize, size)
	}
	return &Transform{
		size: size,
		plan: fourier.NewCmplxFFT(size),
	}, nil
}

// Forward writes the transform of src into dst. src is left untouched. Both
// slices must be exactly Len() long.
func (t *Transform) Forward(dst, src []complex128) error {
	if len(dst) != t.size || len(src) != t.size {
		return fmt.Errorf("%w: dst=%d src=%d size=%d", ErrLengthMismatch, len(dst), len(src), t.size)
	}
	t.plan.Coefficients(dst, src)
	return nil
}

// Len returns the number of points of the transform.
func (t *Transform) Len() int {
	return t.size
}

// BinFrequency returns the centre frequency in Hz of bin i for the given
// sample rate. Bins past N/2 map to negative frequencies.
func (t *Transform) BinFrequency(i int, sampleRate float64) float64 {
	if i < 0 || i >= t.size {
		return 0
	}
	return t.plan.Freq(i) * sampleRate
}

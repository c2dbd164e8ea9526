// SPDX-License-Identifier: MIT
package pitch

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// CutoffHz is the standard deviation of the window in the frequency domain.
const CutoffHz = 40.0

// sigma is the window standard deviation in seconds.
var sigma = 1 / (2 * math.Pi * CutoffHz)

// WindowLength returns the number of taps covering ±3 sigma at sampleRate.
func WindowLength(sampleRate int) int {
	return int(math.Floor(6*float64(sampleRate)*sigma)) + 1
}

// fillGaussian writes a unit-sum Gaussian centred on length/2 into the first
// length entries of w and zeroes the rest.
func fillGaussian(w []float64, length, sampleRate int) {
	rate := float64(sampleRate)
	half := length / 2
	for i := 0; i < length; i++ {
		t := float64(i-half) / rate
		w[i] = math.Exp(-(t * t) / (2 * sigma * sigma))
	}
	floats.Scale(1/floats.Sum(w[:length]), w[:length])
	clear(w[length:])
}

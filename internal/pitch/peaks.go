// SPDX-License-Identifier: MIT
package pitch

import "math"

const (
	// maxPeaks is the most local maxima a tonal spectrum may carry. More
	// means broadband noise.
	maxPeaks = 20
	// peakThreshold is the fraction of the largest bin a peak must exceed.
	peakThreshold = 0.10
	// maxDivisor is the highest harmonic number tried for the reference bin.
	maxDivisor = 7
	// The harmonic match tolerance and the low-frequency cut, both in bins
	// scaled by the frequency factor.
	toleranceFactor = 15.0
	lowCutFactor    = 50.0
)

// findFrequency resolves the fundamental from d.spectrum.
func (d *Detector[S]) findFrequency() Estimate {
	mag := d.spectrum
	half := len(mag)

	ref := 2
	peak := mag[ref]
	for i := 3; i < half; i++ {
		if mag[i] > peak {
			ref, peak = i, mag[i]
		}
	}

	threshold := peakThreshold * peak
	d.peaks = d.peaks[:0]
	for i := 2; i < half-1; i++ {
		v := mag[i]
		if v <= threshold || v <= mag[i-1] || v <= mag[i+1] {
			continue
		}
		if len(d.peaks) == maxPeaks {
			return noTone(Broadband)
		}
		d.peaks = append(d.peaks, i)
	}

	switch len(d.peaks) {
	case 0:
		return noTone(NoPeaks)
	case 1:
		return tone(float64(ref) * d.factor)
	}

	best, bestCount := d.bestDivisor(ref)
	if bestCount == 0 {
		return tone(float64(ref) * d.factor)
	}
	return tone(float64(ref) / float64(best) * d.factor)
}

// bestDivisor returns the divisor of ref whose sub-multiple explains the most
// peaks. Ties keep the smallest divisor.
func (d *Detector[S]) bestDivisor(ref int) (best, count int) {
	tolerance := toleranceFactor * d.factor
	lowCut := lowCutFactor * d.factor

	best = 1
	for div := 1; div <= maxDivisor; div++ {
		base := float64(ref) / float64(div)
		n := 0
		for _, p := range d.peaks {
			x := float64(p)
			if x <= lowCut {
				continue
			}
			if math.Abs(math.Round(x/base)*base-x) < tolerance {
				n++
			}
		}
		if n > count {
			best, count = div, n
		}
	}
	return best, count
}

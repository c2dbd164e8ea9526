// SPDX-License-Identifier: MIT
package pitch

import "fmt"

// Reason tells why an Estimate carries no tone.
type Reason uint8

const (
	// Detected is the reason of every estimate that carries a frequency.
	Detected Reason = iota
	// BelowNoiseFloor: the buffer was not loud enough against the floor.
	BelowNoiseFloor
	// Broadband: too many spectral peaks, the buffer looks like noise.
	Broadband
	// NoPeaks: the spectrum had no usable local maximum.
	NoPeaks
)

func (r Reason) String() string {
	switch r {
	case Detected:
		return "detected"
	case BelowNoiseFloor:
		return "below noise floor"
	case Broadband:
		return "broadband"
	case NoPeaks:
		return "no peaks"
	default:
		return fmt.Sprintf("reason(%d)", uint8(r))
	}
}

// Estimate is the result of one ComputeFreq call. Hz is only meaningful when
// Tone is true.
type Estimate struct {
	Tone   bool
	Hz     float64
	Reason Reason
}

// Frequency returns the estimate as an optional value.
func (e Estimate) Frequency() (float64, bool) {
	return e.Hz, e.Tone
}

func (e Estimate) String() string {
	if !e.Tone {
		return "no tone (" + e.Reason.String() + ")"
	}
	return fmt.Sprintf("%.2f Hz", e.Hz)
}

func tone(hz float64) Estimate {
	return Estimate{Tone: true, Hz: hz, Reason: Detected}
}

func noTone(r Reason) Estimate {
	return Estimate{Reason: r}
}

// SPDX-License-Identifier: MIT
package audio

import (
	"math"

	"tuner/internal/analysis"
)

const fullScale = 32768.0

// SetSensitivity sets the noise gate multiplier of every processor that has
// one. The value is clamped to [analysis.MinSensitivity, analysis.MaxSensitivity]
// and the applied value is returned. NaN is ignored.
func (e *Engine) SetSensitivity(v float64) float64 {
	if math.IsNaN(v) {
		return e.Sensitivity()
	}
	v = analysis.ClampSensitivity(v)
	for _, c := range e.controllers {
		c.SetSensitivity(v)
	}
	return v
}

// Sensitivity returns the gate multiplier of the first controllable processor,
// or 0 when there is none.
func (e *Engine) Sensitivity() float64 {
	if len(e.controllers) == 0 {
		return 0
	}
	return e.controllers[0].Sensitivity()
}

// PeakLevel returns the peak input level of the last callback in the range
// 0.0-1.0.
func (e *Engine) PeakLevel() float64 {
	return float64(e.peak.Load()) / fullScale
}

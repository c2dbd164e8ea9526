// SPDX-License-Identifier: MIT
package analysis

// Defines the standard interface for components that process audio buffers.
type AudioProcessor interface {
	// Process analyzes the given mono input buffer. Implementations should be efficient as
	// this is called from within the real-time audio callback.
	Process(inputBuffer []int16)
}

// ClosableProcessor combines AudioProcessor with a Close method for resource cleanup.
type ClosableProcessor interface {
	AudioProcessor
	Close() error // Close releases any resources held by the processor.
}

// ReadingProvider is implemented by processors that keep their latest result
// around for pull-based consumers (UDP publisher, TUI polling).
type ReadingProvider interface {
	Latest() (Reading, bool)
}

// SensitivityController is implemented by processors with an adjustable
// noise gate. SetSensitivity returns the value actually applied.
type SensitivityController interface {
	SetSensitivity(v float64) float64
	Sensitivity() float64
}

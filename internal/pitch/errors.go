// SPDX-License-Identifier: MIT
package pitch

import "errors"

var (
	// ErrInvalidFFTSize is returned by New for sizes that are not a power of two.
	ErrInvalidFFTSize = errors.New("pitch: transform size must be a power of 2 >= 8")
	// ErrInvalidSampleRate is returned by Initialize for non-positive rates.
	ErrInvalidSampleRate = errors.New("pitch: sample rate must be positive")
	// ErrWindowTooLarge means the analysis window for the requested rate does
	// not fit in the transform. A larger transform size is required.
	ErrWindowTooLarge = errors.New("pitch: analysis window exceeds transform size")
	// ErrNotInitialized is returned by analysis before a successful Initialize.
	ErrNotInitialized = errors.New("pitch: detector not initialized")
	// ErrDisposed is returned by every call after Dispose.
	ErrDisposed = errors.New("pitch: detector disposed")
	// ErrInvalidSensitivity rejects non-positive or NaN sensitivities.
	ErrInvalidSensitivity = errors.New("pitch: sensitivity must be a positive number")
	// ErrSpanOutOfRange rejects an (offset, length) pair outside the slice.
	ErrSpanOutOfRange = errors.New("pitch: span out of range")
)

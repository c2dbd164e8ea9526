// SPDX-License-Identifier: MIT
package pitch

import "fmt"

// Span returns samples[offset : offset+length], the (array, offset, length)
// addressing hosts use to hand a region of a larger history buffer to the
// detector. Out-of-range spans are rejected, never clamped.
func Span[S Sample](samples []S, offset, length int) ([]S, error) {
	if offset < 0 || length < 0 || offset > len(samples) || length > len(samples)-offset {
		return nil, fmt.Errorf("%w: offset=%d length=%d len=%d", ErrSpanOutOfRange, offset, length, len(samples))
	}
	return samples[offset : offset+length : offset+length], nil
}

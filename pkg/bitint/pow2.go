// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-2 helpers used to size transforms and
capture buffers. Everything here is allocation free and safe to call from the
audio callback.

Usage:

	// Round a requested capture buffer up to something the FFT accepts
	frames := bitint.NextPowerOfTwo(1000) // Returns 1024

	// Reject a transform size before building a plan
	if !bitint.IsPowerOfTwo(fftSize) { ... }

NextPowerOfTwo subtracts one before taking the bit length so that exact powers
of 2 are preserved: for 8 (0b1000), bits.Len(7) = 3 and 1<<3 = 8, whereas
bits.Len(8) = 4 would double it.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo checks if n is a power of 2 using bit manipulation.
// Powers of 2 have exactly one bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns the exponent of a power of 2, or -1 when n is not one.
func Log2(n int) int {
	if !IsPowerOfTwo(n) {
		return -1
	}
	return bits.TrailingZeros(uint(n))
}

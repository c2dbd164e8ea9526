// SPDX-License-Identifier: MIT
/*
Package pitch estimates the fundamental frequency and loudness of a monophonic
sample stream.

A Detector windows the most recent samples with a unit-gain Gaussian
(sigma = 1/(2π·40Hz) in time, spanning ±3 sigma), runs one fixed-size forward
transform, picks the spectral peaks and then searches for the low-order
fundamental that explains them. A slow-moving noise floor gates the whole
analysis so that background noise is reported as "no tone" without any
spectral work.

	det, err := pitch.New[int16](pitch.DefaultSize)
	if err != nil { ... }
	window, err := det.Initialize(48000)
	...
	est, err := det.ComputeFreq(buf[len(buf)-window:])
	if est.Tone {
		fmt.Printf("%.2f Hz\n", est.Hz)
	}

A Detector owns all of its buffers and is not safe for concurrent use. The
caller serialises calls; one Detector per stream.
*/
package pitch

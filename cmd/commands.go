// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"
	"os"

	"tuner/internal/analysis"
	"tuner/internal/audio"
	"tuner/internal/config"
	"tuner/internal/log"
	"tuner/internal/transport"
	"tuner/internal/tui"
)

// RunList prints the host's devices, or runs the picker when interactive.
// PortAudio must be initialized.
func RunList(opts *Options, w io.Writer) error {
	if !opts.Interactive {
		return audio.ListDevices(w)
	}

	sel, ok, err := tui.StartDeviceListUI()
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintf(w, "Selected %s: run with %s\n", sel.Name, sel.Flags())
	}
	return nil
}

// RunAnalyze analyzes opts.File offline and writes one line per reading to w,
// followed by a summary line.
func RunAnalyze(opts *Options, w io.Writer) error {
	file, err := os.Open(opts.File)
	if err != nil {
		return err
	}
	defer file.Close()

	return Analyze(file, opts.Config, w)
}

// Analyze runs the pitch processor over a WAV stream.
func Analyze(r io.ReadSeeker, cfg *config.Config, w io.Writer) error {
	out := transport.NewMulti(transport.NewLineTransport(w))
	if log.Enabled(log.LevelDebug) {
		out = transport.NewMulti(out, transport.NewLoggingTransport())
	}
	defer out.Close()

	// The sample rate comes from the file header.
	sum, err := analysis.AnalyzeWAV(r, cfg.PitchConfig(0), out)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "# %d readings, %d with a tone, %.2fs of %d Hz %d-bit audio (%d ch)\n",
		sum.Readings, sum.Tones, sum.Duration.Seconds(), sum.SampleRate, sum.BitDepth, sum.Channels)
	return nil
}

// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"tuner/internal/log"
	"tuner/internal/transport"
)

// wavChunkFrames is the number of frames decoded per read.
const wavChunkFrames = 4096

// WAV format tags from the fmt chunk.
const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

var (
	ErrInvalidWAV        = errors.New("not a valid WAV file")
	ErrUnsupportedFormat = errors.New("unsupported WAV format")
)

// Summary describes an offline analysis run.
type Summary struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
	Readings   int
	Tones      int
}

// AnalyzeWAV runs a PitchProcessor over a WAV stream, exactly as if the
// samples came from a capture device. Integer PCM of 8 to 32 bits and 32-bit
// IEEE float are accepted. Multi-channel input is mixed down to mono and
// rescaled to 16 bits. cfg.SampleRate is taken from the file.
func AnalyzeWAV(r io.ReadSeeker, cfg PitchConfig, t transport.Transport) (Summary, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Summary{}, ErrInvalidWAV
	}

	sum := Summary{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}
	if sum.Channels < 1 || sum.SampleRate <= 0 {
		return sum, fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedFormat, sum.Channels, sum.SampleRate)
	}
	decode, err := sampleDecoderFor(dec.WavAudioFormat, sum.BitDepth)
	if err != nil {
		return sum, err
	}

	counter := &countingTransport{next: t}
	cfg.SampleRate = sum.SampleRate
	proc, err := NewPitchProcessor(cfg, counter)
	if err != nil {
		return sum, err
	}
	defer proc.Close()

	log.Infof("Analysis: Decoding WAV (%d Hz, %d ch, %d-bit, format %d)", sum.SampleRate, sum.Channels, sum.BitDepth, dec.WavAudioFormat)

	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: sum.Channels, SampleRate: sum.SampleRate},
		Data:   make([]int, wavChunkFrames*sum.Channels),
	}
	mono := make([]int16, wavChunkFrames)

	var frames int64
	for {
		n, err := dec.PCMBuffer(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return sum, fmt.Errorf("analysis: decoding WAV: %w", err)
		}
		if n == 0 {
			break
		}
		count := n / sum.Channels
		DownmixInts(mono[:count], buf.Data[:count*sum.Channels], sum.Channels, decode)
		// Split at analysis boundaries so the cadence matches a live stream
		// delivering exactly one hop per callback.
		for m := mono[:count]; len(m) > 0; {
			k := min(len(m), proc.countdown)
			proc.Process(m[:k])
			m = m[k:]
		}
		frames += int64(count)
		if err != nil {
			break
		}
	}

	sum.Duration = sampleOffset(frames, sum.SampleRate)
	sum.Readings = counter.readings
	sum.Tones = counter.tones
	return sum, nil
}

// DownmixInts averages interleaved frames of decoded WAV samples into 16-bit
// mono, converting each sample with decode.
func DownmixInts(dst []int16, src []int, channels int, decode SampleDecoder) {
	for i := range dst {
		var acc int
		for c := 0; c < channels; c++ {
			acc += decode(src[i*channels+c])
		}
		dst[i] = int16(acc / channels)
	}
}

// DownmixInt16 averages interleaved 16-bit frames into mono.
func DownmixInt16(dst, src []int16, channels int) {
	if channels == 1 {
		copy(dst, src)
		return
	}
	for i := range dst {
		var acc int
		for c := 0; c < channels; c++ {
			acc += int(src[i*channels+c])
		}
		dst[i] = int16(acc / channels)
	}
}

// SampleDecoder converts one sample as returned by the WAV decoder into the
// 16-bit range.
type SampleDecoder func(v int) int

// sampleDecoderFor picks the conversion for a fmt chunk's format tag and bit
// depth. 8-bit PCM is unsigned and recentred. Float samples arrive as their
// raw IEEE bit patterns.
func sampleDecoderFor(format uint16, bitDepth int) (SampleDecoder, error) {
	switch {
	case format == wavFormatPCM && bitDepth == 8:
		return func(v int) int { return (v - 128) << 8 }, nil
	case format == wavFormatPCM && bitDepth == 16:
		return func(v int) int { return v }, nil
	case format == wavFormatPCM && bitDepth == 24:
		return func(v int) int { return v >> 8 }, nil
	case format == wavFormatPCM && bitDepth == 32:
		return func(v int) int { return v >> 16 }, nil
	case format == wavFormatFloat && bitDepth == 32:
		return float32ToInt16, nil
	case format == wavFormatPCM || format == wavFormatFloat:
		return nil, fmt.Errorf("%w: %d-bit samples in format %d", ErrUnsupportedFormat, bitDepth, format)
	default:
		return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedFormat, format)
	}
}

func float32ToInt16(v int) int {
	f := float64(math.Float32frombits(uint32(v)))
	switch {
	case math.IsNaN(f):
		return 0
	case f >= 1:
		return math.MaxInt16
	case f <= -1:
		return -math.MaxInt16
	}
	return int(math.Round(f * math.MaxInt16))
}

// countingTransport tallies readings on their way to the real transport.
type countingTransport struct {
	next     transport.Transport
	readings int
	tones    int
}

func (c *countingTransport) Send(data any) error {
	if r, ok := data.(Reading); ok {
		c.readings++
		if r.Tone {
			c.tones++
		}
	}
	if c.next == nil {
		return nil
	}
	return c.next.Send(data)
}

func (c *countingTransport) Close() error {
	return nil
}

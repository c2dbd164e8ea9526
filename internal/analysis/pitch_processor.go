// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"tuner/internal/log"
	"tuner/internal/note"
	"tuner/internal/pitch"
	"tuner/internal/transport"
)

const (
	// HistorySeconds is how much input the processor keeps before compacting.
	HistorySeconds = 2

	DefaultAnalysisRate = 30 // analyses per second
	MinAnalysisRate     = 1
	MaxAnalysisRate     = 100

	// Range the gate sensitivity is clamped to before reaching the detector.
	MinSensitivity = 0.5
	MaxSensitivity = 100.0
)

// PitchConfig holds everything needed to build a PitchProcessor. Zero values
// select the defaults.
type PitchConfig struct {
	SampleRate    int
	FFTSize       int
	AnalysisRate  int
	Sensitivity   float64
	BaseFrequency float64
	Notation      note.Notation
}

// PitchProcessor turns the capture stream into tuner readings. It keeps a
// sliding history of the input, waits for one full analysis window, then runs
// the detector over the most recent window every SampleRate/AnalysisRate
// samples and sends a Reading to the transport.
//
// Process must only be called from one goroutine (the audio callback).
// SetSensitivity, SetAnalysisRate and Latest are safe from any goroutine.
type PitchProcessor struct {
	detector   *pitch.Detector[int16]
	transport  transport.Transport
	sampleRate int
	window     int // analysis window in samples
	base       float64
	notation   note.Notation

	history   []int16
	countdown int   // samples left before the next analysis
	consumed  int64 // samples seen since start
	seq       uint64

	hop              atomic.Int64
	sensitivity      atomic.Uint64 // float64 bits
	sensitivityDirty atomic.Bool
	closed           atomic.Bool

	latest atomic.Pointer[Reading]
	now    func() time.Time
}

// Compile-time checks for interface implementations.
var _ AudioProcessor = (*PitchProcessor)(nil)
var _ ClosableProcessor = (*PitchProcessor)(nil)
var _ ReadingProvider = (*PitchProcessor)(nil)
var _ SensitivityController = (*PitchProcessor)(nil)

// NewPitchProcessor builds the detector for cfg.SampleRate. t may be nil when
// readings are only pulled through Latest.
func NewPitchProcessor(cfg PitchConfig, t transport.Transport) (*PitchProcessor, error) {
	if cfg.FFTSize == 0 {
		cfg.FFTSize = pitch.DefaultSize
	}
	if cfg.AnalysisRate == 0 {
		cfg.AnalysisRate = DefaultAnalysisRate
	}
	if cfg.Sensitivity == 0 {
		cfg.Sensitivity = pitch.DefaultSensitivity
	}

	detector, err := pitch.New[int16](cfg.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	window, err := detector.Initialize(cfg.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	p := &PitchProcessor{
		detector:   detector,
		transport:  t,
		sampleRate: cfg.SampleRate,
		window:     window,
		base:       note.ValidBaseFrequency(cfg.BaseFrequency),
		notation:   cfg.Notation,
		history:    make([]int16, 0, max(HistorySeconds*cfg.SampleRate, window)),
		countdown:  window,
		now:        time.Now,
	}
	p.SetAnalysisRate(cfg.AnalysisRate)
	p.SetSensitivity(cfg.Sensitivity)

	log.Infof("Analysis: Initializing PitchProcessor (SampleRate: %d Hz, Window: %d samples, Hop: %d samples, FFT: %d)",
		cfg.SampleRate, window, p.hop.Load(), cfg.FFTSize)

	return p, nil
}

// Process appends the buffer to the history and runs an analysis once enough
// new samples have arrived. A buffer larger than the hop still triggers a
// single analysis of its most recent window.
func (p *PitchProcessor) Process(inputBuffer []int16) {
	if len(inputBuffer) == 0 || p.closed.Load() {
		return
	}

	p.push(inputBuffer)
	p.consumed += int64(len(inputBuffer))
	p.countdown -= len(inputBuffer)
	if p.countdown > 0 {
		return
	}
	p.countdown = int(p.hop.Load())
	p.analyze()
}

// push appends in to the history, compacting it to its last window when the
// fixed capacity would be exceeded. It never reallocates.
func (p *PitchProcessor) push(in []int16) {
	capacity := cap(p.history)
	if len(in) >= capacity {
		p.history = append(p.history[:0], in[len(in)-capacity:]...)
		return
	}
	if len(p.history)+len(in) > capacity {
		keep := min(p.window, len(p.history), capacity-len(in))
		n := copy(p.history, p.history[len(p.history)-keep:])
		p.history = p.history[:n]
	}
	p.history = append(p.history, in...)
}

func (p *PitchProcessor) analyze() {
	if p.sensitivityDirty.Swap(false) {
		if err := p.detector.SetMinVolumeSensitivity(p.Sensitivity()); err != nil {
			log.Warnf("Analysis: Failed to apply sensitivity: %v", err)
		}
	}

	n := len(p.history)
	length := min(p.window, n)
	span, err := pitch.Span(p.history, n-length, length)
	if err != nil {
		log.Errorf("Analysis: %v", err)
		return
	}

	est, err := p.detector.ComputeFreq(span)
	if err != nil {
		log.Errorf("Analysis: ComputeFreq failed: %v", err)
		return
	}
	energy, err := p.detector.SignalEnergy(span)
	if err != nil {
		log.Errorf("Analysis: SignalEnergy failed: %v", err)
		return
	}

	p.seq++
	r := Reading{
		Sequence: p.seq,
		Time:     p.now(),
		Offset:   sampleOffset(p.consumed, p.sampleRate),
		Tone:     est.Tone,
		Energy:   energy,
	}
	if est.Tone {
		r.Frequency = est.Hz
		if nt, ok := note.FromFrequency(est.Hz, p.base, p.notation); ok {
			r.Note = &nt
		}
	} else {
		r.Reason = est.Reason.String()
	}
	p.latest.Store(&r)

	if p.transport != nil {
		if err := p.transport.Send(r); err != nil {
			log.Warnf("Analysis: Error sending reading: %v", err)
		}
	}
}

// ClampSensitivity bounds v to [MinSensitivity, MaxSensitivity].
func ClampSensitivity(v float64) float64 {
	return math.Min(MaxSensitivity, math.Max(MinSensitivity, v))
}

// SetSensitivity stages a new gate multiplier for the next analysis and
// returns the clamped value. NaN leaves the current value in place.
func (p *PitchProcessor) SetSensitivity(v float64) float64 {
	if math.IsNaN(v) {
		return p.Sensitivity()
	}
	v = ClampSensitivity(v)
	p.sensitivity.Store(math.Float64bits(v))
	p.sensitivityDirty.Store(true)
	return v
}

// Sensitivity returns the most recently requested gate multiplier.
func (p *PitchProcessor) Sensitivity() float64 {
	return math.Float64frombits(p.sensitivity.Load())
}

// SetAnalysisRate changes how many analyses run per second, clamped to
// [MinAnalysisRate, MaxAnalysisRate]. It takes effect after the next analysis.
func (p *PitchProcessor) SetAnalysisRate(rate int) int {
	rate = min(MaxAnalysisRate, max(MinAnalysisRate, rate))
	p.hop.Store(int64(max(1, p.sampleRate/rate)))
	return rate
}

// Latest returns the most recent reading, if any.
func (p *PitchProcessor) Latest() (Reading, bool) {
	r := p.latest.Load()
	if r == nil {
		return Reading{}, false
	}
	return *r, true
}

// SampleRate returns the rate the processor was built for.
func (p *PitchProcessor) SampleRate() int {
	return p.sampleRate
}

// WindowLength returns the number of samples each analysis looks at.
func (p *PitchProcessor) WindowLength() int {
	return p.window
}

// Close releases the detector. The capture stream feeding Process must be
// stopped first.
func (p *PitchProcessor) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	log.Infof("Analysis: Closing PitchProcessor after %d readings", p.seq)
	p.detector.Dispose()
	return nil
}

// sampleOffset converts a sample count into stream time. Whole seconds are
// split off first so the product stays within int64 for any realistic run.
func sampleOffset(samples int64, sampleRate int) time.Duration {
	rate := int64(sampleRate)
	secs, rem := samples/rate, samples%rate
	return time.Duration(secs)*time.Second + time.Duration(rem)*time.Second/time.Duration(rate)
}

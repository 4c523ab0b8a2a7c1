package audio

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"

	"github.com/jinjor/midiscope/src/synth"
)

const (
	// ChannelNum is the number of output channels; the mono mix is duplicated.
	ChannelNum = 2
	// BitDepthInBytes ...
	BitDepthInBytes = 2
	// BytesPerSample is the size of one interleaved frame in Read.
	BytesPerSample = BitDepthInBytes * ChannelNum

	// DefaultSampleRate ...
	DefaultSampleRate = 48000
	// DefaultSamplesPerCycle ...
	DefaultSamplesPerCycle = 1024 // * BytesPerSample should be >= 4096 for oto
	// DefaultMaxPoly ...
	DefaultMaxPoly = 128

	defaultMasterGain = 0.25
	rampMillis        = 5.0
)

// ----- Utility ----- //

func positiveMod(a float64, b float64) float64 {
	if b < 0 {
		panic("b should not be negative")
	}
	for a < 0 {
		a += b
	}
	return math.Mod(a, b)
}

func freqToNote(freq float64) int {
	if freq <= 0 {
		return 0
	}
	note := int(math.Log2(freq/440.0)*12.0) + 69
	if note < 0 {
		note = 0
	}
	if note >= 128 {
		note = 127
	}
	return note
}

// Backend names for the audio output.
const (
	BackendOto       = "oto"
	BackendPortAudio = "portaudio"
	BackendNone      = "none"
)

// Tap receives every rendered block after mixing. It must not keep samples.
type Tap interface {
	Write(samples []float64)
}

// Options ...
type Options struct {
	SampleRate      int
	SamplesPerCycle int
	MaxPoly         int
	MasterGain      float64
	Wavetables      *Wavetables
}

// DefaultOptions ...
func DefaultOptions() Options {
	return Options{
		SampleRate:      DefaultSampleRate,
		SamplesPerCycle: DefaultSamplesPerCycle,
		MaxPoly:         DefaultMaxPoly,
		MasterGain:      defaultMasterGain,
	}
}

// ----- Engine ----- //

// Engine mixes sound sources into one signal. It implements synth.SoundHost.
type Engine struct {
	sync.Mutex
	sampleRate      float64
	samplesPerCycle int
	maxPoly         int
	masterGain      float64
	wavetables      *Wavetables
	sources         []*source
	taps            []Tap
	out             []float64
	err             error
}

var _ synth.SoundHost = (*Engine)(nil)

// NewEngine ...
func NewEngine(opts Options) *Engine {
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultSampleRate
	}
	if opts.SamplesPerCycle <= 0 {
		opts.SamplesPerCycle = DefaultSamplesPerCycle
	}
	if opts.MaxPoly <= 0 {
		opts.MaxPoly = DefaultMaxPoly
	}
	if opts.MasterGain <= 0 {
		opts.MasterGain = defaultMasterGain
	}
	return &Engine{
		sampleRate:      float64(opts.SampleRate),
		samplesPerCycle: opts.SamplesPerCycle,
		maxPoly:         opts.MaxPoly,
		masterGain:      opts.MasterGain,
		wavetables:      opts.Wavetables,
		sources:         make([]*source, 0, opts.MaxPoly),
		out:             make([]float64, opts.SamplesPerCycle),
	}
}

// SampleRate ...
func (e *Engine) SampleRate() int {
	return int(e.sampleRate)
}

// SamplesPerCycle ...
func (e *Engine) SamplesPerCycle() int {
	return e.samplesPerCycle
}

// AddTap registers t to receive the mixed output.
func (e *Engine) AddTap(t Tap) {
	e.Lock()
	e.taps = append(e.taps, t)
	e.Unlock()
}

// SetUnavailable makes every later NewSound fail. Used when the output
// device cannot be opened.
func (e *Engine) SetUnavailable(err error) {
	e.Lock()
	e.err = err
	e.Unlock()
}

// Close drops all sources; the engine cannot create sounds afterwards.
func (e *Engine) Close() error {
	log.Println("Closing Audio...")
	e.Lock()
	defer e.Unlock()
	if e.err == nil {
		e.err = fmt.Errorf("engine closed")
	}
	for _, s := range e.sources {
		s.released = true
	}
	e.sources = e.sources[:0]
	return nil
}

// Active returns the number of sources still producing sound, including
// those fading out after Stop.
func (e *Engine) Active() int {
	e.Lock()
	defer e.Unlock()
	return len(e.sources)
}

// NewSound ...
func (e *Engine) NewSound(freq float64, gain float64, w synth.Waveform) (synth.Sound, error) {
	e.Lock()
	defer e.Unlock()
	if e.err != nil {
		return nil, fmt.Errorf("%w: %v", synth.ErrSoundUnavailable, e.err)
	}
	if len(e.sources) >= e.maxPoly {
		return nil, fmt.Errorf("%w: maxPoly %d exceeded", synth.ErrVoicesExhausted, e.maxPoly)
	}
	s := &source{
		engine: e,
		osc: &osc{
			kind:  w,
			freq:  freq,
			phase: rand.Float64(),
		},
		freq: newTransitiveValue(),
		gain: newTransitiveValue(),
	}
	s.freq.init(freq)
	s.gain.init(0)
	s.gain.linear(e.rampSamples(), gain)
	e.sources = append(e.sources, s)
	return s, nil
}

func (e *Engine) rampSamples() int {
	return int(e.sampleRate * rampMillis / 1000)
}

// Render mixes one block of mono samples into out.
func (e *Engine) Render(out []float64) {
	e.Lock()
	for i := range out {
		out[i] = 0
	}
	for j := len(e.sources) - 1; j >= 0; j-- {
		s := e.sources[j]
		for i := range out {
			out[i] += s.step(e.sampleRate, e.wavetables)
		}
		if s.stopping && !s.gain.moving() {
			s.released = true
			e.sources = append(e.sources[:j], e.sources[j+1:]...)
		}
	}
	for i, value := range out {
		value *= e.masterGain
		if value > 1 {
			value = 1
		} else if value < -1 {
			value = -1
		}
		out[i] = value
	}
	taps := e.taps
	e.Unlock()
	for _, t := range taps {
		t.Write(out)
	}
}

// Read renders interleaved 16-bit little-endian stereo into buf.
func (e *Engine) Read(buf []byte) (int, error) {
	bufSamples := len(buf) / BytesPerSample
	if cap(e.out) < bufSamples {
		e.out = make([]float64, bufSamples)
	}
	out := e.out[:bufSamples]
	e.Render(out)
	writeBuffer(out, buf, 0)
	writeBuffer(out, buf, 1)
	return bufSamples * BytesPerSample, nil
}

// Process renders into non-interleaved float channels.
func (e *Engine) Process(samples [][]float32) {
	if len(samples) == 0 {
		return
	}
	n := len(samples[0])
	if cap(e.out) < n {
		e.out = make([]float64, n)
	}
	out := e.out[:n]
	e.Render(out)
	for ch := range samples {
		for i := range samples[ch] {
			samples[ch][i] = float32(out[i])
		}
	}
}

func writeBuffer(out []float64, buf []byte, ch int) {
	sampleLength := len(buf) / BytesPerSample
	for i := 0; i < sampleLength; i++ {
		value := out[i]
		switch BitDepthInBytes {
		case 1:
			const max = 127
			b := int(value * max)
			buf[BytesPerSample*i+ch] = byte(b + 128)
		case 2:
			const max = 32767
			b := int16(value * max)
			buf[BytesPerSample*i+2*ch] = byte(b)
			buf[BytesPerSample*i+2*ch+1] = byte(b >> 8)
		}
	}
}

// ----- Source ----- //

// source is the sound handle behind one voice.
type source struct {
	engine   *Engine
	osc      *osc
	freq     *transitiveValue
	gain     *transitiveValue
	stopping bool
	released bool
}

func (s *source) step(sampleRate float64, wt *Wavetables) float64 {
	s.osc.freq = s.freq.value
	value := s.osc.step(sampleRate, wt) * s.gain.value
	s.freq.step()
	s.gain.step()
	return value
}

func (s *source) SetFrequency(freq float64) {
	s.engine.Lock()
	s.freq.exponential(s.engine.rampSamples()/4, freq, 0.01)
	s.engine.Unlock()
}

func (s *source) SetGain(gain float64) {
	s.engine.Lock()
	if !s.stopping {
		s.gain.linear(s.engine.rampSamples(), gain)
	}
	s.engine.Unlock()
}

func (s *source) SetWaveform(w synth.Waveform) {
	s.engine.Lock()
	s.osc.kind = w
	s.engine.Unlock()
}

// Stop fades the source out within a few milliseconds; the engine drops it
// once silent.
func (s *source) Stop() error {
	s.engine.Lock()
	defer s.engine.Unlock()
	if s.stopping || s.released {
		return fmt.Errorf("source already stopped")
	}
	s.stopping = true
	s.gain.linear(s.engine.rampSamples(), 0)
	return nil
}

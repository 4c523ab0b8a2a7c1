package audio

import (
	"math"

	"github.com/jinjor/midiscope/src/synth"
)

// ----- OSC ----- //

type osc struct {
	kind  synth.Waveform
	freq  float64
	phase float64 // 0-1
}

// step returns the current value and advances the phase by one sample.
// Square and sawtooth use band-limited tables when wt is loaded.
func (o *osc) step(sampleRate float64, wt *Wavetables) float64 {
	p := positiveMod(o.phase, 1)
	value := 0.0
	switch o.kind {
	case synth.Sine:
		value = math.Sin(2 * math.Pi * p)
	case synth.Triangle:
		if p < 0.25 {
			value = p * 4
		} else if p < 0.75 {
			value = 2 - p*4
		} else {
			value = p*4 - 4
		}
	case synth.Square:
		if wt != nil && wt.Square != nil {
			value = wt.Square.tables[freqToNote(o.freq)].getAtPhase(2 * math.Pi * p)
		} else if p < 0.5 {
			value = 1
		} else {
			value = -1
		}
	case synth.Sawtooth:
		if wt != nil && wt.Saw != nil {
			value = wt.Saw.tables[freqToNote(o.freq)].getAtPhase(2 * math.Pi * p)
		} else {
			value = p*2 - 1
		}
	}
	o.phase += o.freq / sampleRate
	_, o.phase = math.Modf(o.phase)
	return value
}

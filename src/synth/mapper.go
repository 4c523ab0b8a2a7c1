package synth

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	baseFreq = 440.0
	maxData  = 127

	minControllerFreq = 100.0
	maxControllerFreq = 20000.0
)

// ----- Waveform ----- //

// Waveform is the oscillator shape of a voice.
type Waveform int

const (
	Sine Waveform = iota
	Square
	Sawtooth
	Triangle
)

var waveformNames = [...]string{"sine", "square", "sawtooth", "triangle"}

func (w Waveform) String() string {
	if w < 0 || int(w) >= len(waveformNames) {
		return fmt.Sprintf("waveform(%d)", int(w))
	}
	return waveformNames[w]
}

// ParseWaveform accepts the names printed by String, plus "saw".
func ParseWaveform(s string) (Waveform, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "saw" {
		return Sawtooth, nil
	}
	for i, name := range waveformNames {
		if s == name {
			return Waveform(i), nil
		}
	}
	return Sine, fmt.Errorf("unknown waveform %q", s)
}

// ----- Mapping ----- //

// clampData forces a MIDI data byte into 0-127.
func clampData(v int) int {
	if v < 0 {
		return 0
	}
	if v > maxData {
		return maxData
	}
	return v
}

// NoteToFrequency converts a MIDI note to Hz in equal temperament (A4 = 440Hz).
func NoteToFrequency(note int) float64 {
	return baseFreq * math.Pow(2, float64(note-69)/12)
}

// VelocityToGain ...
func VelocityToGain(velocity int) float64 {
	return float64(clampData(velocity)) / maxData
}

// ControllerToGain ...
func ControllerToGain(value int) float64 {
	return VelocityToGain(value)
}

// ControllerToFrequency maps 0-127 linearly onto 100-20000Hz.
func ControllerToFrequency(value int) float64 {
	return minControllerFreq + (maxControllerFreq-minControllerFreq)*float64(clampData(value))/maxData
}

// ControllerToWaveform splits the controller range into four equal bands.
func ControllerToWaveform(value int) Waveform {
	switch v := clampData(value); {
	case v < 32:
		return Sine
	case v < 64:
		return Square
	case v < 96:
		return Sawtooth
	default:
		return Triangle
	}
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName returns the scientific pitch name, e.g. 60 -> C4.
func NoteName(note int) string {
	if note < 0 {
		return fmt.Sprintf("?%d", note)
	}
	return fmt.Sprintf("%s%d", noteNames[note%12], note/12-1)
}

// ParseNote accepts a note number or a name such as C4, F#3 or Bb2.
func ParseNote(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > maxData {
			return 0, fmt.Errorf("note %d out of range", n)
		}
		return n, nil
	}
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid note %q", s)
	}
	name := strings.ToUpper(s[:1])
	rest := s[1:]
	offset := 0
	switch rest[0] {
	case '#':
		offset = 1
		rest = rest[1:]
	case 'b':
		offset = -1
		rest = rest[1:]
	}
	pitch := -1
	for i, n := range noteNames {
		if n == name {
			pitch = i
		}
	}
	octave, err := strconv.Atoi(rest)
	if pitch < 0 || err != nil {
		return 0, fmt.Errorf("invalid note %q", s)
	}
	note := (octave+1)*12 + pitch + offset
	if note < 0 || note > maxData {
		return 0, fmt.Errorf("note %q out of range", s)
	}
	return note, nil
}

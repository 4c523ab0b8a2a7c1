package synth

import (
	"errors"
	"fmt"
)

var (
	// ErrSoundUnavailable is returned when the audio host cannot produce sound
	// at all (not started, closed, or its output device failed).
	ErrSoundUnavailable = errors.New("sound host unavailable")
	// ErrVoicesExhausted is returned when the host has no room for another
	// sound source.
	ErrVoicesExhausted = errors.New("no free voice in sound host")
	// ErrVoiceStopped is returned by a second stop of the same voice.
	ErrVoiceStopped = errors.New("voice already stopped")
)

// Sound is a live sound source owned by exactly one Voice.
type Sound interface {
	SetFrequency(freq float64)
	SetGain(gain float64)
	SetWaveform(w Waveform)
	Stop() error
}

// SoundHost creates sound sources. A new source is audible immediately.
type SoundHost interface {
	NewSound(freq float64, gain float64, w Waveform) (Sound, error)
}

// ----- Voice ----- //

// Voice is one sounding note.
type Voice struct {
	note      int
	frequency float64
	gain      float64
	waveform  Waveform
	sound     Sound
	stopped   bool
}

func newVoice(host SoundHost, note int, freq float64, gain float64, w Waveform) (*Voice, error) {
	sound, err := host.NewSound(freq, gain, w)
	if err != nil {
		return nil, fmt.Errorf("failed to create sound for note %d: %w", note, err)
	}
	if sound == nil {
		return nil, fmt.Errorf("failed to create sound for note %d: %w", note, ErrSoundUnavailable)
	}
	return &Voice{
		note:      note,
		frequency: freq,
		gain:      gain,
		waveform:  w,
		sound:     sound,
	}, nil
}

// Note ...
func (v *Voice) Note() int { return v.note }

// Frequency ...
func (v *Voice) Frequency() float64 { return v.frequency }

// Gain ...
func (v *Voice) Gain() float64 { return v.gain }

// Waveform ...
func (v *Voice) Waveform() Waveform { return v.waveform }

// SetFrequency ignores non-positive values.
func (v *Voice) SetFrequency(freq float64) {
	if freq <= 0 || v.stopped {
		return
	}
	v.frequency = freq
	v.sound.SetFrequency(freq)
}

// SetGain clamps gain into 0-1.
func (v *Voice) SetGain(gain float64) {
	if v.stopped {
		return
	}
	if gain < 0 {
		gain = 0
	}
	if gain > 1 {
		gain = 1
	}
	v.gain = gain
	v.sound.SetGain(gain)
}

// SetWaveform ...
func (v *Voice) SetWaveform(w Waveform) {
	if v.stopped {
		return
	}
	v.waveform = w
	v.sound.SetWaveform(w)
}

func (v *Voice) stop() error {
	if v.stopped {
		return fmt.Errorf("note %d: %w", v.note, ErrVoiceStopped)
	}
	v.stopped = true
	return v.sound.Stop()
}

func (v *Voice) String() string {
	return fmt.Sprintf("%s(%d) %.2fHz gain=%.3f %v", NoteName(v.note), v.note, v.frequency, v.gain, v.waveform)
}

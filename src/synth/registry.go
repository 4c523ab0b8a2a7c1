package synth

import (
	"log"
	"sort"
)

// Registry maps note numbers to their active voice. It is not safe for
// concurrent use; Instrument owns it from a single goroutine.
type Registry struct {
	host     SoundHost
	waveform Waveform
	voices   map[int]*Voice
}

// NewRegistry ...
func NewRegistry(host SoundHost, waveform Waveform) *Registry {
	return &Registry{
		host:     host,
		waveform: waveform,
		voices:   make(map[int]*Voice, maxData+1),
	}
}

// NoteOn starts a voice for note. An active voice for the same note is
// stopped and removed first. Velocity 0 is a note-off.
func (r *Registry) NoteOn(note int, velocity int) (*Voice, error) {
	note = clampData(note)
	velocity = clampData(velocity)
	if velocity == 0 {
		r.NoteOff(note)
		return nil, nil
	}
	r.release(note)
	v, err := newVoice(r.host, note, NoteToFrequency(note), VelocityToGain(velocity), r.waveform)
	if err != nil {
		return nil, err
	}
	r.voices[note] = v
	return v, nil
}

// NoteOff stops the voice for note. Unknown notes are ignored.
func (r *Registry) NoteOff(note int) {
	r.release(clampData(note))
}

func (r *Registry) release(note int) {
	v, ok := r.voices[note]
	if !ok {
		return
	}
	delete(r.voices, note)
	if err := v.stop(); err != nil {
		log.Printf("failed to stop voice %v: %v\n", v, err)
	}
}

// AllActive returns a snapshot of the active voices in no particular order.
func (r *Registry) AllActive() []*Voice {
	voices := make([]*Voice, 0, len(r.voices))
	for _, v := range r.voices {
		voices = append(voices, v)
	}
	return voices
}

// Voice ...
func (r *Registry) Voice(note int) (*Voice, bool) {
	v, ok := r.voices[note]
	return v, ok
}

// Len ...
func (r *Registry) Len() int {
	return len(r.voices)
}

// Notes returns the active notes in ascending order.
func (r *Registry) Notes() []int {
	notes := make([]int, 0, len(r.voices))
	for note := range r.voices {
		notes = append(notes, note)
	}
	sort.Ints(notes)
	return notes
}

// ShutdownAll stops and removes every voice.
func (r *Registry) ShutdownAll() {
	for note := range r.voices {
		r.release(note)
	}
}

package synth

import (
	"context"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		msg   []byte
		kind  Kind
		data1 int
		data2 int
	}{
		{midi.NoteOn(0, 60, 100), KindNoteOn, 60, 100},
		{midi.NoteOn(3, 61, 0), KindNoteOff, 61, 0},
		{midi.NoteOff(0, 62), KindNoteOff, 62, 0},
		{midi.ControlChange(0, 23, 100), KindControlChange, 23, 100},
		{midi.ProgramChange(0, 5), KindIgnored, 0, 0},
		{[]byte{0xF8}, KindIgnored, 0, 0},
		{[]byte{0x90}, KindIgnored, 0, 0},
		{[]byte{0x90, 60}, KindNoteOff, 60, 0},
		{[]byte{0x3C, 0x40}, KindIgnored, 0, 0},
		{[]byte{0x90, 0xFF, 0xFF}, KindNoteOn, 127, 127},
	}
	for _, c := range cases {
		kind, data1, data2 := Classify(c.msg, 0)
		if kind != c.kind || data1 != c.data1 || data2 != c.data2 {
			t.Errorf("% X: expected %v %d %d, got %v %d %d", c.msg, c.kind, c.data1, c.data2, kind, data1, data2)
		}
	}
}

func TestClassifyChannelFilter(t *testing.T) {
	kind, _, _ := Classify(midi.NoteOn(0, 60, 100), 1)
	expectEqual(t, kind, KindNoteOn)
	kind, _, _ = Classify(midi.NoteOn(1, 60, 100), 1)
	expectEqual(t, kind, KindIgnored)
	kind, _, _ = Classify(midi.NoteOn(15, 60, 100), 16)
	expectEqual(t, kind, KindNoteOn)
}

func TestDispatcherEndToEnd(t *testing.T) {
	host := &fakeHost{}
	r := NewRegistry(host, Sine)
	d := NewDispatcher(r, NewRouter(DefaultControllers), 0)

	dispatch := func(msg []byte) {
		t.Helper()
		if _, err := d.Dispatch(msg); err != nil {
			t.Fatal(err)
		}
	}

	dispatch(midi.NoteOn(0, 60, 100))
	expectEqual(t, r.Len(), 1)
	v, ok := r.Voice(60)
	expectEqual(t, ok, true)
	expectNearlyEqual(t, v.Frequency(), 261.63)
	expectNearlyEqual(t, v.Gain(), 0.787)

	dispatch(midi.NoteOn(0, 64, 80))
	expectEqual(t, r.Len(), 2)

	dispatch(midi.NoteOff(0, 60))
	expectEqual(t, r.Len(), 1)
	_, ok = r.Voice(64)
	expectEqual(t, ok, true)

	dispatch(midi.ControlChange(0, 23, 100))
	for _, v := range r.AllActive() {
		expectEqual(t, v.Waveform(), Triangle)
	}

	dispatch(midi.ProgramChange(0, 1))
	expectEqual(t, r.Len(), 1)
}

func TestDispatcherNoteOnVelocityZero(t *testing.T) {
	host := &fakeHost{}
	r := NewRegistry(host, Sine)
	d := NewDispatcher(r, NewRouter(DefaultControllers), 0)
	d.Dispatch(midi.NoteOn(0, 60, 100))
	kind, err := d.Dispatch(midi.NoteOn(0, 60, 0))
	if err != nil {
		t.Fatal(err)
	}
	expectEqual(t, kind, KindNoteOff)
	expectEqual(t, r.Len(), 0)
	expectEqual(t, host.live, 0)
}

// ----- Instrument ----- //

func runInstrument(t *testing.T, host SoundHost) (*Instrument, context.CancelFunc, chan struct{}) {
	t.Helper()
	opts := DefaultOptions()
	i := NewInstrument(host, opts)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		i.Run(ctx)
		close(done)
	}()
	return i, cancel, done
}

func flush(t *testing.T, i *Instrument) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := i.Flush(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestInstrument(t *testing.T) {
	host := &fakeHost{}
	i, cancel, done := runInstrument(t, host)

	i.HandleMessage(midi.NoteOn(0, 60, 100))
	i.NoteOn(64, 80)
	flush(t, i)
	notes := i.ActiveNotes()
	expectEqual(t, len(notes), 2)
	expectEqual(t, notes[0], 60)
	expectEqual(t, notes[1], 64)

	i.NoteOff(60)
	i.RouteControlChange(23, 100)
	flush(t, i)
	expectEqual(t, len(i.ActiveNotes()), 1)
	expectEqual(t, i.Status().Last, "control-change 23 value 100")
	expectEqual(t, host.sounds[1].waveform, Triangle)

	i.Panic()
	flush(t, i)
	expectEqual(t, len(i.ActiveNotes()), 0)

	i.NoteOn(70, 100)
	flush(t, i)
	cancel()
	<-done
	expectEqual(t, host.live, 0)
	expectEqual(t, len(i.ActiveNotes()), 0)
}

func TestInstrumentCountsErrors(t *testing.T) {
	host := &fakeHost{err: ErrSoundUnavailable}
	i, cancel, done := runInstrument(t, host)
	defer func() {
		cancel()
		<-done
	}()
	i.NoteOn(60, 100)
	i.NoteOn(61, 100)
	flush(t, i)
	expectEqual(t, i.Status().Errors, 2)
	expectEqual(t, len(i.ActiveNotes()), 0)
}

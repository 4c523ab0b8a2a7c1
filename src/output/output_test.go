package output

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jinjor/midiscope/src/audio"
	"github.com/jinjor/midiscope/src/synth"
)

func expectEqual(t *testing.T, actual, expected interface{}) {
	t.Helper()
	if actual != expected {
		t.Errorf("expected %v, but got: %v", expected, actual)
	}
}

func newTestEngine() *audio.Engine {
	opts := audio.DefaultOptions()
	opts.SampleRate = 8000
	opts.SamplesPerCycle = 80
	return audio.NewEngine(opts)
}

// failing replaces the opener for backend with one that fails the way a
// missing device does, returning a typed nil.
func failing(t *testing.T, backend string) {
	t.Helper()
	saved := openers[backend]
	openers[backend] = func(e *audio.Engine) (Sink, error) {
		return asSink((*OtoSink)(nil), errors.New("no device"))
	}
	t.Cleanup(func() {
		openers[backend] = saved
	})
}

func TestAsSinkDropsTypedNil(t *testing.T) {
	s, err := asSink((*OtoSink)(nil), errors.New("no device"))
	if err == nil {
		t.Fatal("expected error")
	}
	if s != nil {
		t.Errorf("expected nil sink, got %#v", s)
	}
	s, err = asSink((*PortAudioSink)(nil), errors.New("no device"))
	if err == nil || s != nil {
		t.Errorf("expected nil sink and error, got %#v, %v", s, err)
	}
}

func TestOpenFailure(t *testing.T) {
	failing(t, audio.BackendOto)
	e := newTestEngine()
	s, err := Open("", e)
	if err == nil {
		t.Fatal("expected error")
	}
	if s != nil {
		t.Errorf("expected nil sink, got %#v", s)
	}
}

func TestOpenOrDisable(t *testing.T) {
	failing(t, audio.BackendPortAudio)
	e := newTestEngine()
	s := OpenOrDisable(audio.BackendPortAudio, e)
	if s != nil {
		t.Fatalf("expected nil sink, got %#v", s)
	}
	_, err := e.NewSound(440, 1, synth.Sine)
	if !errors.Is(err, synth.ErrSoundUnavailable) {
		t.Errorf("expected ErrSoundUnavailable, got %v", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	s, err := Open("alsa", newTestEngine())
	if err == nil || s != nil {
		t.Errorf("expected nil sink and error, got %#v, %v", s, err)
	}
}

type countingTap struct {
	blocks chan int
}

func (c *countingTap) Write(samples []float64) {
	select {
	case c.blocks <- len(samples):
	default:
	}
}

func TestNullSink(t *testing.T) {
	e := newTestEngine()
	tap := &countingTap{blocks: make(chan int, 1)}
	e.AddTap(tap)
	s := OpenOrDisable(audio.BackendNone, e)
	if s == nil {
		t.Fatal("expected a sink")
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Play(ctx)
	}()
	select {
	case n := <-tap.blocks:
		expectEqual(t, n, 80)
	case <-time.After(time.Second):
		t.Fatal("no block rendered")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	expectEqual(t, s.Close(), nil)
	if _, err := e.NewSound(440, 1, synth.Sine); err != nil {
		t.Errorf("engine should stay available, got %v", err)
	}
}

package output

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/hajimehoshi/oto"
	"github.com/jinjor/midiscope/src/audio"
)

// Sink pulls rendered audio from an Engine until its context is done.
type Sink interface {
	Play(ctx context.Context) error
	Close() error
}

// asSink keeps a failed constructor's typed nil out of the interface.
func asSink[S Sink](s S, err error) (Sink, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

var openers = map[string]func(e *audio.Engine) (Sink, error){
	audio.BackendOto: func(e *audio.Engine) (Sink, error) {
		s, err := NewOtoSink(e)
		return asSink(s, err)
	},
	audio.BackendPortAudio: func(e *audio.Engine) (Sink, error) {
		s, err := NewPortAudioSink(e)
		return asSink(s, err)
	},
	audio.BackendNone: func(e *audio.Engine) (Sink, error) {
		return NewNullSink(e), nil
	},
}

// Open returns the sink for backend. On error the returned Sink is nil.
func Open(backend string, e *audio.Engine) (Sink, error) {
	if backend == "" {
		backend = audio.BackendOto
	}
	open, ok := openers[backend]
	if !ok {
		return nil, fmt.Errorf("unknown audio backend %q", backend)
	}
	return open(e)
}

// OpenOrDisable is Open for the main program: when the output cannot be
// opened it logs once, makes the engine refuse new sounds, and returns nil.
func OpenOrDisable(backend string, e *audio.Engine) Sink {
	s, err := Open(backend, e)
	if err != nil {
		log.Printf("WARN: audio output unavailable: %v\n", err)
		e.SetUnavailable(err)
		return nil
	}
	return s
}

// ----- oto ----- //

// OtoSink ...
type OtoSink struct {
	engine     *audio.Engine
	otoContext *oto.Context
}

// NewOtoSink ...
func NewOtoSink(e *audio.Engine) (*OtoSink, error) {
	bufferSizeInBytes := e.SamplesPerCycle() * audio.BytesPerSample
	otoContext, err := oto.NewContext(e.SampleRate(), audio.ChannelNum, audio.BitDepthInBytes, bufferSizeInBytes)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	return &OtoSink{engine: e, otoContext: otoContext}, nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(buf []byte) (int, error) {
	select {
	case <-c.ctx.Done():
		log.Println("Read() interrupted.")
		return 0, io.EOF
	default:
		return c.r.Read(buf)
	}
}

// Play blocks until ctx is done.
func (s *OtoSink) Play(ctx context.Context) error {
	p := s.otoContext.NewPlayer()
	defer func() {
		if err := p.Close(); err != nil {
			log.Printf("error: %v", err)
		}
	}()
	buf := make([]byte, s.engine.SamplesPerCycle()*audio.BytesPerSample)
	if _, err := io.CopyBuffer(p, &contextReader{ctx: ctx, r: s.engine}, buf); err != nil {
		return err
	}
	log.Println("OtoSink.Play() ended.")
	return nil
}

// Close ...
func (s *OtoSink) Close() error {
	if err := s.otoContext.Close(); err != nil {
		return fmt.Errorf("cannot close oto context: %w", err)
	}
	return nil
}

// ----- PortAudio ----- //

// PortAudioSink ...
type PortAudioSink struct {
	stream *portaudio.Stream
}

// NewPortAudioSink ...
func NewPortAudioSink(e *audio.Engine) (*PortAudioSink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("cannot initialize portaudio: %w", err)
	}
	stream, err := portaudio.OpenDefaultStream(0, audio.ChannelNum, float64(e.SampleRate()), e.SamplesPerCycle(), e.Process)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("cannot open portaudio stream: %w", err)
	}
	return &PortAudioSink{stream: stream}, nil
}

// Play ...
func (s *PortAudioSink) Play(ctx context.Context) error {
	if err := s.stream.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	if err := s.stream.Stop(); err != nil {
		return err
	}
	log.Println("PortAudioSink.Play() ended.")
	return nil
}

// Close ...
func (s *PortAudioSink) Close() error {
	err := s.stream.Close()
	portaudio.Terminate()
	return err
}

// ----- Null ----- //

// NullSink renders in real time without an output device, so taps (scope,
// recorder) keep working on machines without sound.
type NullSink struct {
	engine *audio.Engine
	buf    []float64
}

// NewNullSink ...
func NewNullSink(e *audio.Engine) *NullSink {
	return &NullSink{engine: e, buf: make([]float64, e.SamplesPerCycle())}
}

// Play ...
func (s *NullSink) Play(ctx context.Context) error {
	cycle := time.Duration(float64(time.Second) * float64(len(s.buf)) / float64(s.engine.SampleRate()))
	t := time.NewTicker(cycle)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("NullSink.Play() ended.")
			return nil
		case <-t.C:
			s.engine.Render(s.buf)
		}
	}
}

// Close ...
func (s *NullSink) Close() error {
	return nil
}

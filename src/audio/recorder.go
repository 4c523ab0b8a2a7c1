package audio

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync/atomic"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const recorderQueue = 256

// Recorder writes the engine output to a 16-bit mono WAV file. Write is
// called from the render thread and never blocks; encoding happens in Run.
type Recorder struct {
	file    *os.File
	enc     *wav.Encoder
	blocks  chan []float64
	intBuf  *goaudio.IntBuffer
	dropped atomic.Int64
	closed  atomic.Bool
}

var _ Tap = (*Recorder)(nil)

// NewRecorder ...
func NewRecorder(path string, sampleRate int) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("cannot create recording: %w", err)
	}
	return &Recorder{
		file:   f,
		enc:    wav.NewEncoder(f, sampleRate, 16, 1, 1),
		blocks: make(chan []float64, recorderQueue),
		intBuf: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: 1,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: 16,
		},
	}, nil
}

// Write ...
func (r *Recorder) Write(samples []float64) {
	if r.closed.Load() {
		return
	}
	block := make([]float64, len(samples))
	copy(block, samples)
	select {
	case r.blocks <- block:
	default:
		r.dropped.Add(1)
	}
}

// Dropped is the number of blocks lost because the encoder fell behind.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Run encodes blocks until ctx is done, then drains the queue and finalizes
// the file.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case block := <-r.blocks:
			if err := r.encode(block); err != nil {
				r.Close()
				return err
			}
		case <-ctx.Done():
			for {
				select {
				case block := <-r.blocks:
					if err := r.encode(block); err != nil {
						r.Close()
						return err
					}
				default:
					log.Println("Recorder.Run() ended.")
					return r.Close()
				}
			}
		}
	}
}

func (r *Recorder) encode(block []float64) error {
	if cap(r.intBuf.Data) < len(block) {
		r.intBuf.Data = make([]int, len(block))
	}
	r.intBuf.Data = r.intBuf.Data[:len(block)]
	for i, v := range block {
		r.intBuf.Data[i] = int(v * 32767)
	}
	if err := r.enc.Write(r.intBuf); err != nil {
		return fmt.Errorf("cannot write recording: %w", err)
	}
	return nil
}

// Close finalizes the WAV header. Safe to call more than once.
func (r *Recorder) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	if n := r.Dropped(); n > 0 {
		log.Printf("WARN: recorder dropped %d blocks\n", n)
	}
	if err := r.enc.Close(); err != nil {
		r.file.Close()
		return fmt.Errorf("cannot finalize recording: %w", err)
	}
	return r.file.Close()
}

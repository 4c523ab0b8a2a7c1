package scope

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Source provides the most recent output samples, oldest first.
type Source interface {
	TimeDomain(dst []float64) []float64
}

// FrameSink receives every rendered frame. samples and img are reused by
// the next frame.
type FrameSink interface {
	WriteFrame(samples []float64, img image.Image) error
}

// FrameSinkFunc ...
type FrameSinkFunc func(samples []float64, img image.Image) error

// WriteFrame ...
func (f FrameSinkFunc) WriteFrame(samples []float64, img image.Image) error {
	return f(samples, img)
}

// Scope renders the source at a fixed rate until stopped.
type Scope struct {
	source  Source
	canvas  *Canvas
	fps     int
	sinks   []FrameSink
	samples []float64
}

// New ...
func New(source Source, width int, height int, fps int) *Scope {
	if fps <= 0 {
		fps = 30
	}
	return &Scope{
		source: source,
		canvas: NewCanvas(width, height),
		fps:    fps,
	}
}

// AddSink ...
func (s *Scope) AddSink(sink FrameSink) {
	s.sinks = append(s.sinks, sink)
}

// Frame renders one frame and hands it to the sinks. A failing sink is
// logged and does not stop the others.
func (s *Scope) Frame() {
	s.samples = s.source.TimeDomain(s.samples)
	s.canvas.Render(s.samples)
	for _, sink := range s.sinks {
		if err := sink.WriteFrame(s.samples, s.canvas.Image()); err != nil {
			log.Printf("WARN: scope frame: %v\n", err)
		}
	}
}

// Run renders frames until ctx is done.
func (s *Scope) Run(ctx context.Context) error {
	return Loop(ctx, time.Second/time.Duration(s.fps), func() {
		s.Frame()
	})
}

// Loop calls f every interval until ctx is done.
func Loop(ctx context.Context, interval time.Duration, f func()) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("scope.Loop() ended.")
			return nil
		case <-t.C:
			f()
		}
	}
}

// ----- Sinks ----- //

// PNGWriter overwrites a PNG file with the latest frame.
type PNGWriter struct {
	Path string
}

// WriteFrame writes to a temporary file first so readers never see a
// partial image.
func (p *PNGWriter) WriteFrame(_ []float64, img image.Image) error {
	tmp, err := os.CreateTemp(filepath.Dir(p.Path), ".scope-*.png")
	if err != nil {
		return fmt.Errorf("cannot write frame: %w", err)
	}
	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("cannot encode frame: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), p.Path)
}

// ReportLine formats samples as "scope v1 v2 ...", reduced to at most points
// values by taking every n-th sample.
func ReportLine(samples []float64, points int) string {
	return formatLine("scope", samples, points, 4)
}

// SpectrumLine formats a magnitude spectrum as "fft v1 v2 ...".
func SpectrumLine(spectrum []float64, points int) string {
	return formatLine("fft", spectrum, points, 6)
}

func formatLine(name string, values []float64, points int, prec int) string {
	step := 1
	if points > 0 && len(values) > points {
		step = (len(values) + points - 1) / points
	}
	var sb strings.Builder
	sb.WriteString(name)
	for i := 0; i < len(values); i += step {
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatFloat(values[i], 'f', prec, 64))
	}
	return sb.String()
}

// NotesLine formats active notes as "notes 60 64 67".
func NotesLine(notes []int) string {
	var sb strings.Builder
	sb.WriteString("notes")
	for _, n := range notes {
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(n))
	}
	return sb.String()
}

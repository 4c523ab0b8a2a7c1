package audio

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	wav "github.com/youpy/go-wav"
)

func readWav(t *testing.T, path string) (*wav.WavFormat, []int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	r := wav.NewReader(f)
	format, err := r.Format()
	if err != nil {
		t.Fatal(err)
	}
	var values []int
	for {
		samples, err := r.ReadSamples()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		for _, sample := range samples {
			values = append(values, r.IntValue(sample, 0))
		}
	}
	return format, values
}

func TestRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	r, err := NewRecorder(path, 8000)
	if err != nil {
		t.Fatal(err)
	}
	r.Write([]float64{0, 0.5, -0.5})
	r.Write([]float64{1, -1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatal(err)
	}
	// writes after close are ignored
	r.Write([]float64{1})
	expectEqual(t, r.Close(), nil)

	format, values := readWav(t, path)
	expectEqual(t, format.NumChannels, uint16(1))
	expectEqual(t, format.SampleRate, uint32(8000))
	expectEqual(t, format.BitsPerSample, uint16(16))
	expected := []int{0, 16383, -16383, 32767, -32767}
	expectEqual(t, len(values), len(expected))
	for i := range expected {
		expectEqual(t, values[i], expected[i])
	}
	expectEqual(t, r.Dropped(), int64(0))
}

func TestRecorderAsEngineTap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tap.wav")
	r, err := NewRecorder(path, 8000)
	if err != nil {
		t.Fatal(err)
	}
	e := newTestEngine(2)
	e.AddTap(r)
	out := make([]float64, 100)
	for i := 0; i < 3; i++ {
		e.Render(out)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatal(err)
	}
	_, values := readWav(t, path)
	expectEqual(t, len(values), 300)
}

func TestNewRecorderBadPath(t *testing.T) {
	_, err := NewRecorder(filepath.Join(t.TempDir(), "missing", "out.wav"), 8000)
	if err == nil {
		t.Error("expected error")
	}
}

package main

import (
	"bufio"
	"context"
	"errors"
	"go/parser"
	"go/token"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jinjor/midiscope/src/synth"
)

type fakeTarget struct {
	notes chan int
}

func (f *fakeTarget) NoteOn(note int, velocity int)                { f.notes <- note }
func (f *fakeTarget) NoteOff(note int)                             {}
func (f *fakeTarget) RouteControlChange(controller int, value int) {}
func (f *fakeTarget) HandleMessage(data []byte)                    {}
func (f *fakeTarget) Panic()                                       {}
func (f *fakeTarget) ActiveNotes() []int                           { return nil }

func TestReceiveCommands(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	target := &fakeTarget{notes: make(chan int, 4)}
	done := make(chan error, 1)
	go func() {
		done <- receiveCommands(context.Background(), server, target)
	}()
	if _, err := client.Write([]byte("note_on C%234\nbogus\nnote_on 64\nquit\n")); err != nil {
		t.Fatal(err)
	}
	for _, expected := range []int{61, 64} {
		select {
		case n := <-target.notes:
			if n != expected {
				t.Errorf("expected %d, got %d", expected, n)
			}
		case <-time.After(time.Second):
			t.Fatal("command was not executed")
		}
	}
	select {
	case err := <-done:
		if !errors.Is(err, errQuitConnection) {
			t.Errorf("expected errQuitConnection, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("receiveCommands did not end")
	}
}

type constSource struct{}

func (constSource) TimeDomain(dst []float64) []float64 {
	return append(dst[:0], 0.5, -0.5)
}

func (constSource) Spectrum() []float64 {
	return []float64{1}
}

type noHost struct{}

func (noHost) NewSound(float64, float64, synth.Waveform) (synth.Sound, error) {
	return nil, synth.ErrSoundUnavailable
}

func TestSendReports(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	ctx, cancel := context.WithCancel(context.Background())
	inst := synth.NewInstrument(noHost{}, synth.DefaultOptions())
	done := make(chan error, 1)
	go func() {
		done <- sendReports(ctx, server, constSource{}, inst, 100)
	}()
	r := bufio.NewReader(client)
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(line) != "scope 0.5000 -0.5000" {
		t.Errorf("unexpected line %q", line)
	}
	line, err = r.ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(line) != "fft 1.000000" {
		t.Errorf("unexpected line %q", line)
	}
	line, err = r.ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(line) != "notes" {
		t.Errorf("unexpected line %q", line)
	}
	cancel()
	server.Close()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

const modulePath = "github.com/jinjor/midiscope/src"

var cgoBackends = []string{
	"github.com/hajimehoshi/oto",
	"github.com/gordonklaus/portaudio",
	"gitlab.com/gomidi/rtmididrv",
}

// imports returns the non-test imports of the package in dir.
func imports(t *testing.T, dir string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		t.Fatal(err)
	}
	var paths []string
	for _, f := range files {
		if strings.HasSuffix(f, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(token.NewFileSet(), f, nil, parser.ImportsOnly)
		if err != nil {
			t.Fatal(err)
		}
		for _, spec := range file.Imports {
			path, _ := strconv.Unquote(spec.Path.Value)
			paths = append(paths, path)
		}
	}
	return paths
}

func TestCorePackagesBuildWithoutCgo(t *testing.T) {
	for _, pkg := range []string{"audio", "config", "command", "midi", "synth", "scope"} {
		seen := map[string]bool{}
		queue := []string{pkg}
		for len(queue) > 0 {
			dir := queue[0]
			queue = queue[1:]
			if seen[dir] {
				continue
			}
			seen[dir] = true
			for _, path := range imports(t, dir) {
				for _, backend := range cgoBackends {
					if path == backend {
						t.Errorf("%s reaches %s through %s", pkg, backend, dir)
					}
				}
				if rel, ok := strings.CutPrefix(path, modulePath+"/"); ok {
					queue = append(queue, rel)
				}
			}
		}
	}
}

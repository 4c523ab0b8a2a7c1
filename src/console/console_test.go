package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

type fakeReader struct {
	lines []string
	err   error
}

func (r *fakeReader) Readline() (string, error) {
	if len(r.lines) == 0 {
		if r.err != nil {
			return "", r.err
		}
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

type fakeTarget struct {
	notes []int
}

func (f *fakeTarget) NoteOn(note int, velocity int)                { f.notes = append(f.notes, note) }
func (f *fakeTarget) NoteOff(note int)                             {}
func (f *fakeTarget) RouteControlChange(controller int, value int) {}
func (f *fakeTarget) HandleMessage(data []byte)                    {}
func (f *fakeTarget) Panic()                                       { f.notes = nil }
func (f *fakeTarget) ActiveNotes() []int                           { return f.notes }

func TestServe(t *testing.T) {
	target := &fakeTarget{}
	var out bytes.Buffer
	r := &fakeReader{lines: []string{"note_on 60", "", "bogus", "notes", "quit", "note_on 61"}}
	if err := serve(context.Background(), r, &out, target); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("unexpected output %q", out.String())
	}
	if lines[0] != "note-on C4 velocity 100" {
		t.Errorf("unexpected line %q", lines[0])
	}
	if !strings.Contains(lines[1], "unknown command") {
		t.Errorf("unexpected line %q", lines[1])
	}
	if lines[2] != "1 active: C4" {
		t.Errorf("unexpected line %q", lines[2])
	}
	// quit stops before the last line
	if len(target.notes) != 1 {
		t.Errorf("expected 1 note, got %v", target.notes)
	}
}

func TestServeEOF(t *testing.T) {
	if err := serve(context.Background(), &fakeReader{}, io.Discard, &fakeTarget{}); err != nil {
		t.Fatal(err)
	}
	broken := errors.New("broken terminal")
	err := serve(context.Background(), &fakeReader{err: broken}, io.Discard, &fakeTarget{})
	if !errors.Is(err, broken) {
		t.Errorf("expected %v, got %v", broken, err)
	}
}

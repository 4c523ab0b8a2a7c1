package command

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jinjor/midiscope/src/midi"
	"github.com/jinjor/midiscope/src/synth"
)

// ErrQuit is returned by the quit command.
var ErrQuit = errors.New("quit")

const defaultVelocity = 100

// Target receives commands. *synth.Instrument implements it.
type Target interface {
	NoteOn(note int, velocity int)
	NoteOff(note int)
	RouteControlChange(controller int, value int)
	HandleMessage(data []byte)
	Panic()
	ActiveNotes() []int
}

var _ Target = (*synth.Instrument)(nil)

type command struct {
	name    string
	usage   string
	minArgs int
	maxArgs int // -1 = unlimited
	run     func(t Target, args []string) (string, error)
}

var commands []command

func init() {
	commands = []command{
		{"note_on", "note_on <note> [velocity]", 1, 2, noteOnCommand},
		{"note_off", "note_off <note>", 1, 1, noteOffCommand},
		{"cc", "cc <controller> <value>", 2, 2, ccCommand},
		{"midi", "midi <hex bytes...>", 1, -1, midiCommand},
		{"notes", "notes", 0, 0, notesCommand},
		{"panic", "panic", 0, 0, panicCommand},
		{"help", "help", 0, 0, helpCommand},
		{"quit", "quit", 0, 0, quitCommand},
	}
}

// Parse splits a line on spaces and query-unescapes every item.
func Parse(line string) ([]string, error) {
	items := strings.Fields(line)
	for i, item := range items {
		escaped, err := url.QueryUnescape(item)
		if err != nil {
			return nil, err
		}
		items[i] = escaped
	}
	return items, nil
}

// Execute runs a parsed command against t and returns its output.
func Execute(t Target, args []string) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	name := args[0]
	args = args[1:]
	for _, cmd := range commands {
		if name != cmd.name {
			continue
		}
		if len(args) < cmd.minArgs || (cmd.maxArgs >= 0 && len(args) > cmd.maxArgs) {
			return "", fmt.Errorf("usage: %s", cmd.usage)
		}
		result, err := cmd.run(t, args)
		if err != nil && !errors.Is(err, ErrQuit) {
			return result, fmt.Errorf("%s error: %w", cmd.name, err)
		}
		return result, err
	}
	return "", fmt.Errorf("unknown command: %s", name)
}

// Eval parses and executes one line.
func Eval(t Target, line string) (string, error) {
	args, err := Parse(line)
	if err != nil {
		return "", err
	}
	return Execute(t, args)
}

func parseData(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > 127 {
		return 0, fmt.Errorf("%d out of range 0..127", v)
	}
	return v, nil
}

func noteOnCommand(t Target, args []string) (string, error) {
	note, err := synth.ParseNote(args[0])
	if err != nil {
		return "", err
	}
	velocity := defaultVelocity
	if len(args) > 1 {
		if velocity, err = parseData(args[1]); err != nil {
			return "", err
		}
	}
	t.NoteOn(note, velocity)
	return fmt.Sprintf("note-on %s velocity %d", synth.NoteName(note), velocity), nil
}

func noteOffCommand(t Target, args []string) (string, error) {
	note, err := synth.ParseNote(args[0])
	if err != nil {
		return "", err
	}
	t.NoteOff(note)
	return "note-off " + synth.NoteName(note), nil
}

func ccCommand(t Target, args []string) (string, error) {
	controller, err := parseData(args[0])
	if err != nil {
		return "", err
	}
	value, err := parseData(args[1])
	if err != nil {
		return "", err
	}
	t.RouteControlChange(controller, value)
	return fmt.Sprintf("control-change %d value %d", controller, value), nil
}

func midiCommand(t Target, args []string) (string, error) {
	data := make([]byte, 0, len(args))
	for _, arg := range args {
		b, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(arg), "0x"), 16, 8)
		if err != nil {
			return "", fmt.Errorf("invalid byte %q", arg)
		}
		data = append(data, byte(b))
	}
	t.HandleMessage(data)
	return midi.Describe(data), nil
}

func notesCommand(t Target, _ []string) (string, error) {
	notes := t.ActiveNotes()
	names := make([]string, len(notes))
	for i, n := range notes {
		names[i] = synth.NoteName(n)
	}
	return fmt.Sprintf("%d active: %s", len(notes), strings.Join(names, " ")), nil
}

func panicCommand(t Target, _ []string) (string, error) {
	t.Panic()
	return "all notes off", nil
}

func helpCommand(Target, []string) (string, error) {
	usages := make([]string, len(commands))
	for i, cmd := range commands {
		usages[i] = cmd.usage
	}
	return strings.Join(usages, "\n"), nil
}

func quitCommand(Target, []string) (string, error) {
	return "", ErrQuit
}

// Names lists every command name, for completion.
func Names() []string {
	names := make([]string, len(commands))
	for i, cmd := range commands {
		names[i] = cmd.name
	}
	return names
}

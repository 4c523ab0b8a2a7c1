package midi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/jinjor/midiscope/src/synth"
	gomidi "gitlab.com/gomidi/midi/v2"
)

// ErrNoInput is returned when MIDI access fails or no input port matches.
// It is not fatal: the instrument is still playable from the UI.
var ErrNoInput = errors.New("no access to MIDI devices")

// Port is one MIDI input.
type Port interface {
	Open() error
	Close() error
	String() string
	SetListener(func(data []byte, deltaMicroseconds int64)) error
	StopListening() error
}

// Driver enumerates MIDI inputs.
type Driver interface {
	Ins() ([]Port, error)
	Close() error
}

// SelectPorts returns every port whose name starts with prefix, or all
// ports when prefix is empty.
func SelectPorts(ports []Port, prefix string) ([]Port, error) {
	var selected []Port
	for _, p := range ports {
		if prefix == "" || strings.HasPrefix(p.String(), prefix) {
			selected = append(selected, p)
		}
	}
	if len(selected) > 0 {
		return selected, nil
	}
	if prefix == "" {
		return nil, fmt.Errorf("%w: MIDI IN not found", ErrNoInput)
	}
	return nil, fmt.Errorf("%w: no MIDI IN matches %q", ErrNoInput, prefix)
}

// openPort opens in and starts forwarding its messages to handle. A port that
// opens but cannot listen is closed again.
func openPort(in Port, handle func(data []byte)) error {
	if err := in.Open(); err != nil {
		return fmt.Errorf("failed to open %s: %w", in, err)
	}
	if err := in.SetListener(func(data []byte, deltaMicroseconds int64) {
		handle(data)
	}); err != nil {
		if err := in.Close(); err != nil {
			log.Printf("failed to close MIDI IN: %v\n", err)
		}
		return fmt.Errorf("failed to set listener on %s: %w", in, err)
	}
	return nil
}

func closePort(in Port) {
	log.Println("stop listening " + in.String())
	if err := in.StopListening(); err != nil {
		log.Printf("failed to stop listening: %v\n", err)
	}
	if err := in.Close(); err != nil {
		log.Printf("failed to close MIDI IN: %v\n", err)
	}
}

// Listen opens every selected input of drv and passes their messages to
// handle until ctx is done. Ports that fail to open are skipped. Calls to
// handle are serialized but run on the driver's threads, so handle must not
// block.
func Listen(ctx context.Context, drv Driver, prefix string, handle func(data []byte)) error {
	ins, err := drv.Ins()
	if err != nil {
		return fmt.Errorf("%w: failed to get MIDI IN: %v", ErrNoInput, err)
	}
	log.Printf("MIDI IN: %v\n", ins)
	selected, err := SelectPorts(ins, prefix)
	if err != nil {
		return err
	}
	var mu sync.Mutex
	serialized := func(data []byte) {
		mu.Lock()
		defer mu.Unlock()
		handle(data)
	}
	var opened []Port
	defer func() {
		for _, in := range opened {
			closePort(in)
		}
	}()
	for _, in := range selected {
		if err := openPort(in, serialized); err != nil {
			log.Printf("WARN: %v\n", err)
			continue
		}
		log.Println("start listening " + in.String())
		opened = append(opened, in)
	}
	if len(opened) == 0 {
		return fmt.Errorf("%w: no MIDI IN could be opened", ErrNoInput)
	}
	<-ctx.Done()
	return nil
}

// ListenToMidiIn opens a driver with openDriver and listens like Listen. A
// missing driver or port is logged once and reported as nil, so callers can
// run it in an errgroup without taking the program down.
func ListenToMidiIn(ctx context.Context, openDriver func() (Driver, error), prefix string, handle func(data []byte)) error {
	drv, err := openDriver()
	if err == nil {
		defer func() {
			err := drv.Close()
			if err != nil {
				log.Printf("failed to close MIDI driver: %v\n", err)
			}
		}()
		err = Listen(ctx, drv, prefix, handle)
	}
	if errors.Is(err, ErrNoInput) {
		log.Printf("WARN: %v\n", err)
		return nil
	}
	if err != nil {
		return err
	}
	log.Println("ListenToMidiIn() ended.")
	return nil
}

// Describe formats a raw message for logs, with note names for notes.
func Describe(data []byte) string {
	msg := gomidi.Message(data)
	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return fmt.Sprintf("%s (%s)", msg.String(), synth.NoteName(int(key)))
	case msg.GetNoteEnd(&ch, &key):
		return fmt.Sprintf("%s (%s)", msg.String(), synth.NoteName(int(key)))
	}
	return msg.String()
}

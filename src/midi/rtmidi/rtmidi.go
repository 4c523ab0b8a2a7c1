// Package rtmidi connects the system MIDI inputs through RtMidi. It is kept
// apart from package midi because it needs cgo.
package rtmidi

import (
	"fmt"

	"github.com/jinjor/midiscope/src/midi"
	"gitlab.com/gomidi/rtmididrv"
)

type driver struct {
	drv *rtmididrv.Driver
}

// OpenDriver opens the system MIDI driver.
func OpenDriver() (midi.Driver, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize MIDI driver: %v", midi.ErrNoInput, err)
	}
	return &driver{drv: drv}, nil
}

func (d *driver) Ins() ([]midi.Port, error) {
	ins, err := d.drv.Ins()
	if err != nil {
		return nil, err
	}
	ports := make([]midi.Port, 0, len(ins))
	for _, in := range ins {
		ports = append(ports, in)
	}
	return ports, nil
}

func (d *driver) Close() error {
	return d.drv.Close()
}

package synth

const (
	statusNoteOff       = 0x8
	statusNoteOn        = 0x9
	statusControlChange = 0xB
)

// Kind classifies a raw MIDI message.
type Kind int

const (
	KindIgnored Kind = iota
	KindNoteOn
	KindNoteOff
	KindControlChange
)

func (k Kind) String() string {
	switch k {
	case KindNoteOn:
		return "note-on"
	case KindNoteOff:
		return "note-off"
	case KindControlChange:
		return "control-change"
	}
	return "ignored"
}

// Classify decodes a channel message into its kind and two data bytes.
// channel is 0 for omni or 1-16. A missing second data byte reads as 0, so a
// two-byte note-on is a note-off.
func Classify(msg []byte, channel int) (kind Kind, data1 int, data2 int) {
	if len(msg) < 2 || msg[0] < 0x80 || msg[0] >= 0xF0 {
		return KindIgnored, 0, 0
	}
	if channel > 0 && int(msg[0]&0x0F)+1 != channel {
		return KindIgnored, 0, 0
	}
	data1 = clampData(int(msg[1]))
	if len(msg) > 2 {
		data2 = clampData(int(msg[2]))
	}
	switch msg[0] >> 4 {
	case statusNoteOn:
		if data2 > 0 {
			return KindNoteOn, data1, data2
		}
		return KindNoteOff, data1, 0
	case statusNoteOff:
		return KindNoteOff, data1, data2
	case statusControlChange:
		return KindControlChange, data1, data2
	}
	return KindIgnored, 0, 0
}

// Dispatcher routes raw MIDI messages to the registry and router. It keeps
// no state between messages.
type Dispatcher struct {
	registry *Registry
	router   *Router
	channel  int
}

// NewDispatcher ...
func NewDispatcher(registry *Registry, router *Router, channel int) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		router:   router,
		channel:  channel,
	}
}

// Dispatch handles one message. Only voice creation can fail.
func (d *Dispatcher) Dispatch(msg []byte) (Kind, error) {
	kind, data1, data2 := Classify(msg, d.channel)
	switch kind {
	case KindNoteOn:
		if _, err := d.registry.NoteOn(data1, data2); err != nil {
			return kind, err
		}
	case KindNoteOff:
		d.registry.NoteOff(data1)
	case KindControlChange:
		d.router.Route(data1, data2, d.registry)
	}
	return kind, nil
}

package synth

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
)

const defaultQueueSize = 1024

// Options ...
type Options struct {
	Waveform    Waveform
	Controllers Controllers
	Channel     int // 0 = omni
	QueueSize   int
	Debug       bool
}

// DefaultOptions ...
func DefaultOptions() Options {
	return Options{
		Waveform:    Sine,
		Controllers: DefaultControllers,
		QueueSize:   defaultQueueSize,
	}
}

// Status is an immutable snapshot of the instrument, safe to read from any
// goroutine.
type Status struct {
	Notes  []int
	Last   string
	Errors int
}

// ----- Event ----- //

type eventKind int

const (
	eventMessage eventKind = iota
	eventNoteOn
	eventNoteOff
	eventControlChange
	eventPanic
	eventBarrier
)

type event struct {
	kind eventKind
	a, b int
	raw  []byte
	done chan struct{}
}

// ----- Instrument ----- //

// Instrument serializes every input (MIDI callbacks, UI commands) onto the
// goroutine running Run, which is the only one touching the registry.
type Instrument struct {
	registry   *Registry
	router     *Router
	dispatcher *Dispatcher
	events     chan event
	status     atomic.Pointer[Status]
	errors     int
	debug      bool
}

// NewInstrument ...
func NewInstrument(host SoundHost, opts Options) *Instrument {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	registry := NewRegistry(host, opts.Waveform)
	router := NewRouter(opts.Controllers)
	i := &Instrument{
		registry:   registry,
		router:     router,
		dispatcher: NewDispatcher(registry, router, opts.Channel),
		events:     make(chan event, opts.QueueSize),
		debug:      opts.Debug,
	}
	i.status.Store(&Status{Notes: []int{}})
	return i
}

func (i *Instrument) enqueue(e event) bool {
	select {
	case i.events <- e:
		return true
	default:
		log.Println("WARN: instrument queue is full, event dropped")
		return false
	}
}

// HandleMessage queues a raw MIDI message. The slice is copied.
func (i *Instrument) HandleMessage(data []byte) {
	raw := make([]byte, len(data))
	copy(raw, data)
	i.enqueue(event{kind: eventMessage, raw: raw})
}

// NoteOn ...
func (i *Instrument) NoteOn(note int, velocity int) {
	i.enqueue(event{kind: eventNoteOn, a: note, b: velocity})
}

// NoteOff ...
func (i *Instrument) NoteOff(note int) {
	i.enqueue(event{kind: eventNoteOff, a: note})
}

// RouteControlChange ...
func (i *Instrument) RouteControlChange(controller int, value int) {
	i.enqueue(event{kind: eventControlChange, a: controller, b: value})
}

// Panic releases every sounding voice.
func (i *Instrument) Panic() {
	i.enqueue(event{kind: eventPanic})
}

// Flush waits until every event queued before the call has been handled.
func (i *Instrument) Flush(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case i.events <- event{kind: eventBarrier, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the latest published snapshot.
func (i *Instrument) Status() *Status {
	return i.status.Load()
}

// ActiveNotes ...
func (i *Instrument) ActiveNotes() []int {
	return i.Status().Notes
}

// Run handles events until ctx is done, then stops every voice.
func (i *Instrument) Run(ctx context.Context) error {
	defer func() {
		i.registry.ShutdownAll()
		i.publish("shutdown")
		log.Println("Instrument.Run() ended.")
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-i.events:
			i.handle(e)
		}
	}
}

func (i *Instrument) handle(e event) {
	var last string
	var err error
	switch e.kind {
	case eventMessage:
		var kind Kind
		kind, err = i.dispatcher.Dispatch(e.raw)
		if kind == KindIgnored {
			return
		}
		last = fmt.Sprintf("%v % X", kind, e.raw)
	case eventNoteOn:
		_, err = i.registry.NoteOn(e.a, e.b)
		last = fmt.Sprintf("note-on %s velocity %d", NoteName(clampData(e.a)), clampData(e.b))
	case eventNoteOff:
		i.registry.NoteOff(e.a)
		last = fmt.Sprintf("note-off %s", NoteName(clampData(e.a)))
	case eventControlChange:
		if !i.router.Route(e.a, e.b, i.registry) && i.debug {
			log.Printf("unassigned controller %d\n", e.a)
		}
		last = fmt.Sprintf("control-change %d value %d", clampData(e.a), clampData(e.b))
	case eventPanic:
		i.registry.ShutdownAll()
		last = "panic"
	case eventBarrier:
		close(e.done)
		return
	}
	if err != nil {
		i.errors++
		log.Printf("error: %v\n", err)
	}
	if i.debug {
		log.Printf("%s -> %d voices\n", last, i.registry.Len())
	}
	i.publish(last)
}

func (i *Instrument) publish(last string) {
	i.status.Store(&Status{
		Notes:  i.registry.Notes(),
		Last:   last,
		Errors: i.errors,
	})
}

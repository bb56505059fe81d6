package monitor

import "sync"

// InputKind names a user interaction that counts as activity.
type InputKind string

const (
	InputPointer  InputKind = "pointer"
	InputKeyboard InputKind = "keyboard"
	InputTouch    InputKind = "touch"
	InputScroll   InputKind = "scroll"
	InputWheel    InputKind = "wheel"
	InputFocus    InputKind = "focus"
	InputBlur     InputKind = "blur"
	InputResize   InputKind = "resize"
	InputForm     InputKind = "input"
	InputChange   InputKind = "change"
)

var qualifyingInputs = map[InputKind]bool{
	InputPointer:  true,
	InputKeyboard: true,
	InputTouch:    true,
	InputScroll:   true,
	InputWheel:    true,
	InputFocus:    true,
	InputBlur:     true,
	InputResize:   true,
	InputForm:     true,
	InputChange:   true,
}

// Qualifies reports whether the input kind counts as user activity.
func (k InputKind) Qualifies() bool {
	return qualifyingInputs[k]
}

type EventKind int

const (
	EventInput EventKind = iota
	EventVisibility
	EventUnload
)

// Event is what a host environment reports to the monitor.
type Event struct {
	Kind EventKind

	// Input is set for EventInput.
	Input InputKind

	// Hidden is set for EventVisibility.
	Hidden bool
}

func InputEvent(kind InputKind) Event {
	return Event{Kind: EventInput, Input: kind}
}

func VisibilityEvent(hidden bool) Event {
	return Event{Kind: EventVisibility, Hidden: hidden}
}

func UnloadEvent() Event {
	return Event{Kind: EventUnload}
}

// EventSource delivers host events. Subscribe returns the function that
// removes the handler again.
type EventSource interface {
	Subscribe(handler func(Event)) (unsubscribe func())
}

// Emitter is an in-process EventSource, hosts call Emit from their own
// input plumbing.
type Emitter struct {
	mu       sync.Mutex
	next     int
	handlers map[int]func(Event)
}

func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[int]func(Event))}
}

func (e *Emitter) Subscribe(handler func(Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.next
	e.next++
	e.handlers[id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.handlers, id)
			e.mu.Unlock()
		})
	}
}

// Emit calls every subscribed handler synchronously.
func (e *Emitter) Emit(evt Event) {
	e.mu.Lock()
	handlers := make([]func(Event), 0, len(e.handlers))
	for _, h := range e.handlers {
		handlers = append(handlers, h)
	}
	e.mu.Unlock()

	for _, h := range handlers {
		h(evt)
	}
}

func (e *Emitter) Subscribers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers)
}

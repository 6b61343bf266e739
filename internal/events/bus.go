package events

import (
	"sync"
	"time"
)

// Handler reacts to a published event. Handlers must not expect the
// publisher to inspect anything they do.
type Handler func(Event)

type subscription struct {
	handle  int
	filter  Type
	handler Handler
}

// Bus is a synchronous publish/subscribe fan-out owned by one session.
// A nil *Bus is valid and drops every event.
type Bus struct {
	mu         sync.RWMutex
	subs       []subscription
	nextHandle int
	now        func() time.Time
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{now: time.Now}
}

// Subscribe registers a handler for every event and returns its handle.
func (b *Bus) Subscribe(handler Handler) int {
	return b.subscribe("", handler)
}

// SubscribeType registers a handler for a single event type.
func (b *Bus) SubscribeType(eventType Type, handler Handler) int {
	if eventType == "" {
		return -1
	}
	return b.subscribe(eventType, handler)
}

func (b *Bus) subscribe(filter Type, handler Handler) int {
	if b == nil || handler == nil {
		return -1
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	handle := b.nextHandle
	b.nextHandle++
	b.subs = append(b.subs, subscription{handle: handle, filter: filter, handler: handler})
	return handle
}

// Unsubscribe removes the handler identified by handle.
func (b *Bus) Unsubscribe(handle int) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub.handle == handle {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Clear drops every subscription.
func (b *Bus) Clear() {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.subs = nil
	b.mu.Unlock()
}

// Publish delivers an event to matching handlers in subscription order.
func (b *Bus) Publish(eventType Type, data map[string]any) {
	if b == nil {
		return
	}

	b.mu.RLock()
	targets := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.filter == "" || sub.filter == eventType {
			targets = append(targets, sub.handler)
		}
	}
	now := b.now
	b.mu.RUnlock()

	if len(targets) == 0 {
		return
	}
	if now == nil {
		now = time.Now
	}

	evt := Event{Type: eventType, Timestamp: now(), Data: data}
	for _, handler := range targets {
		handler(evt)
	}
}

// Recorder collects published events, mostly for tests and transcripts.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Attach subscribes the recorder to bus and returns the handle.
func (r *Recorder) Attach(bus *Bus) int {
	return bus.Subscribe(r.Handle)
}

// Handle records evt.
func (r *Recorder) Handle(evt Event) {
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns recorded events of the given type.
func (r *Recorder) OfType(eventType Type) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, evt := range r.events {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}

// Reset forgets recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

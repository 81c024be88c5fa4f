package session

import "sync"

// Event names published by a Session.
const (
	EventLoadStart     = "load_start"
	EventLoadDone      = "load_done"
	EventLoadFailed    = "load_failed"
	EventUnload        = "unload"
	EventGenerateStart = "generate_start"
	EventGenerateDone  = "generate_done"
	EventClose         = "close"
)

// Event represents a session lifecycle event.
type Event struct {
	Name    string
	Session string
	Fields  map[string]any
}

// EventPublisher receives events from sessions. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// MemoryPublisher stores events in-memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) Publish(e Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Names returns the published event names in order.
func (p *MemoryPublisher) Names() []string {
	evs := p.Events()
	out := make([]string, len(evs))
	for i, e := range evs {
		out[i] = e.Name
	}
	return out
}

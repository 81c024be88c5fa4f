package manager

import "sessiond/internal/session"

// Manager-level event names. Session events are published by the sessions
// themselves on the same publisher.
const (
	EventSessionCreate = "session_create"
	EventSessionClose  = "session_close"
)

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(session.Event) {}

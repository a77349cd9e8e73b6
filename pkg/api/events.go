package api

import "time"

// EventType identifies a burn request change event.
type EventType string

const (
	EventRequestSubmitted EventType = "request.submitted"
	EventRequestClaimed   EventType = "request.claimed"
	EventRequestCompleted EventType = "request.completed"
	EventRequestFailed    EventType = "request.failed"
)

// ChangeEvent is published on every successful write. It carries a
// snapshot of the full record after the transition.
//
// Delivery is advisory and best-effort: a subscriber that is not
// listening when the event fires may miss it and must fall back to a
// direct query. The store row is always the source of truth.
type ChangeEvent struct {
	Type    EventType
	Request BurnRequest
	At      time.Time
}

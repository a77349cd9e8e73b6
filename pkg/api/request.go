package api

import "time"

// Status represents the lifecycle state of a burn request.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are possible from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the transition s -> next is legal.
// Status only moves forward: pending -> processing -> {completed, failed}.
// Terminal states allow no further transitions.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// BurnRequest is a single firmware burn task.
//
// The store row is always the source of truth for a request; in-memory
// copies handed out by Service methods and change events are snapshots.
type BurnRequest struct {
	// ID is assigned at submission and never changes.
	ID string

	// FirmwareID and FirmwareVersion identify the artifact to burn.
	// Both are set at submission and immutable. FirmwareID is an opaque
	// reference into an external firmware catalog; it is not validated here.
	FirmwareID      string
	FirmwareVersion string

	Status Status

	// InitiatedBy identifies the submitter (human or controller).
	InitiatedBy string

	// CompletedBy identifies the burner that claimed the request.
	// Empty until claimed; once set it never changes.
	CompletedBy string

	// ErrorMessage is set exactly when Status is StatusFailed.
	ErrorMessage string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a copy of the request. Stores and the feed hand out
// clones so callers can never mutate shared state.
func (r *BurnRequest) Clone() *BurnRequest {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// SubmitParams are the inputs to Service.Submit.
type SubmitParams struct {
	FirmwareID      string
	FirmwareVersion string
	InitiatedBy     string
}

// ListOptions selects requests for Service.List.
// A zero Status means "all statuses". Limit <= 0 selects DefaultListLimit.
type ListOptions struct {
	Status Status
	Limit  int
}

const (
	// DefaultListLimit is used when ListOptions.Limit is not positive.
	DefaultListLimit = 20

	// MaxListLimit caps ListOptions.Limit.
	MaxListLimit = 100
)

// AuditRecord is one entry in the append-only transition history of a
// request. Records are written by the service on every successful
// transition (submission included, with From set to the empty status)
// and are never mutated or deleted.
type AuditRecord struct {
	RequestID string
	From      Status
	To        Status

	// Actor is the identity that caused the transition: the initiator
	// for submission, the burner for claim/complete/fail.
	Actor string

	At time.Time
}

package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/petrijr/burnq/pkg/api"
)

var (
	// ErrRequestNotFound is returned when no request exists for the id.
	ErrRequestNotFound = errors.New("request not found")

	// ErrNoPendingRequest is returned by ClaimOldestPending when no row is
	// claimable at call time, including when every candidate row is being
	// claimed by a concurrent caller.
	ErrNoPendingRequest = errors.New("no pending request")

	// ErrOwnerMismatch is returned by FinishRequest when the request is
	// processing but owned by a different burner.
	ErrOwnerMismatch = errors.New("owner mismatch")

	// ErrNotProcessing is returned by FinishRequest when the request is
	// not currently in the processing state.
	ErrNotProcessing = errors.New("request not processing")
)

// RequestFilter selects requests from the store.
// A zero Status means "no filter"; Limit must be positive.
type RequestFilter struct {
	Status api.Status
	Limit  int
}

// RequestStore is the durable home of burn request rows. It is the single
// source of truth for request state; callers hold no authoritative state
// of their own.
//
// Implementations must make ClaimOldestPending and FinishRequest atomic
// with respect to concurrent callers: two claimants must never receive
// the same row, and a finish must check status and ownership in the same
// atomic step as the write.
type RequestStore interface {
	// CreateRequest inserts a new row. The request must already carry its
	// id, timestamps and pending status.
	CreateRequest(ctx context.Context, req *api.BurnRequest) error

	// GetRequest returns a copy of the row, or ErrRequestNotFound.
	GetRequest(ctx context.Context, id string) (*api.BurnRequest, error)

	// ListRequests returns rows most-recent-first (CreatedAt descending,
	// id descending for determinism), filtered and bounded by f.
	ListRequests(ctx context.Context, f RequestFilter) ([]*api.BurnRequest, error)

	// ClaimOldestPending atomically selects the oldest pending row
	// (CreatedAt ascending, id ascending on ties), moves it to processing
	// with CompletedBy set to burnerID and UpdatedAt set to now, and
	// returns the updated row. It never blocks waiting on a row that a
	// concurrent claimant holds; it returns ErrNoPendingRequest instead.
	ClaimOldestPending(ctx context.Context, burnerID string, now time.Time) (*api.BurnRequest, error)

	// FinishRequest moves a processing row owned by burnerID to the
	// terminal status to (completed or failed), recording errMsg for
	// failures and setting UpdatedAt to now. The status and ownership
	// check is atomic with the write. On refusal the row is unchanged
	// and one of ErrRequestNotFound, ErrOwnerMismatch or ErrNotProcessing
	// is returned.
	FinishRequest(ctx context.Context, id, burnerID string, to api.Status, errMsg string, now time.Time) (*api.BurnRequest, error)
}

// AuditStore is an append-only history store for request transitions.
type AuditStore interface {
	AppendAudit(ctx context.Context, rec api.AuditRecord) error
	ListAudit(ctx context.Context, requestID string) ([]api.AuditRecord, error)
}

// NoopAuditStore discards all audit records.
type NoopAuditStore struct{}

func (NoopAuditStore) AppendAudit(ctx context.Context, rec api.AuditRecord) error { return nil }
func (NoopAuditStore) ListAudit(ctx context.Context, requestID string) ([]api.AuditRecord, error) {
	return nil, nil
}

// Persistence bundles the stores a service needs.
type Persistence struct {
	Requests RequestStore
	Audit    AuditStore
}

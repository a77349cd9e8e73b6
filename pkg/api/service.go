package api

import "context"

// Service is the burn-task queue API.
//
// Any number of independent processes (submitters, burners, dashboards)
// may call into a Service concurrently; all coordination state lives in
// the durable store behind it, never in the Service itself.
type Service interface {
	// Submit creates a new burn request in StatusPending and returns it.
	// It validates its inputs before touching the store: the firmware id,
	// firmware version and initiator must all be non-empty. Submit does
	// not itself trigger a burn.
	Submit(ctx context.Context, params SubmitParams) (*BurnRequest, error)

	// Claim atomically takes ownership of the oldest pending request on
	// behalf of burnerID: the request moves to StatusProcessing with
	// CompletedBy set to burnerID. Ties on creation time break by id.
	//
	// At most one burner ever claims a given request. Concurrent callers
	// never observe the same row and never block on each other: when the
	// only candidates are being claimed by someone else, Claim returns
	// ErrNoPendingRequest rather than waiting.
	//
	// There is no reclaim of stalled work: a burner that claims a request
	// and then crashes leaves it in StatusProcessing, owned, forever.
	// Recovering such requests is a deliberate non-feature; see the
	// package documentation.
	Claim(ctx context.Context, burnerID string) (*BurnRequest, error)

	// Complete transitions a processing request to StatusCompleted.
	// Only the owning burner may complete a request (ErrNotOwner
	// otherwise); a request that is not currently processing is left
	// unchanged and ErrInvalidTransition is returned.
	Complete(ctx context.Context, requestID, burnerID string) (*BurnRequest, error)

	// Fail transitions a processing request to StatusFailed, recording
	// errorMessage (which must be non-empty). Ownership and transition
	// rules are the same as for Complete.
	Fail(ctx context.Context, requestID, burnerID, errorMessage string) (*BurnRequest, error)

	// Get returns the current state of a request, or ErrNotFound.
	Get(ctx context.Context, requestID string) (*BurnRequest, error)

	// List returns requests most-recent-first, optionally filtered by
	// status, bounded by opts.Limit.
	List(ctx context.Context, opts ListOptions) ([]*BurnRequest, error)

	// History returns the append-only audit trail of a request in the
	// order the transitions happened. ErrNotFound if the request does
	// not exist.
	History(ctx context.Context, requestID string) ([]AuditRecord, error)
}

package burnq

import (
	"context"
	"database/sql"

	"github.com/petrijr/burnq/internal/service"
	"github.com/petrijr/burnq/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Service              = api.Service
	BurnRequest          = api.BurnRequest
	SubmitParams         = api.SubmitParams
	ListOptions          = api.ListOptions
	Status               = api.Status
	AuditRecord          = api.AuditRecord
	ChangeEvent          = api.ChangeEvent
	EventType            = api.EventType
	PersistenceError     = api.PersistenceError
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
)

// Re-export common observer helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export status values for convenience.

const (
	StatusPending    = api.StatusPending
	StatusProcessing = api.StatusProcessing
	StatusCompleted  = api.StatusCompleted
	StatusFailed     = api.StatusFailed
)

// Re-export event types.

const (
	EventRequestSubmitted = api.EventRequestSubmitted
	EventRequestClaimed   = api.EventRequestClaimed
	EventRequestCompleted = api.EventRequestCompleted
	EventRequestFailed    = api.EventRequestFailed
)

// Re-export the error taxonomy.

var (
	ErrNotFound          = api.ErrNotFound
	ErrNoPendingRequest  = api.ErrNoPendingRequest
	ErrNotOwner          = api.ErrNotOwner
	ErrInvalidTransition = api.ErrInvalidTransition
	ErrValidation        = api.ErrValidation
)

// Service constructors
// These wrap the internal/service package so external callers
// never need to import internal packages.

// NewInMemoryService returns a Service backed entirely by in-memory stores.
func NewInMemoryService() Service {
	return service.NewInMemoryService()
}

// NewInMemoryServiceWithObserver returns an in-memory Service with the given Observer.
func NewInMemoryServiceWithObserver(obs Observer) Service {
	return service.NewInMemoryServiceWithObserver(obs)
}

// NewSQLiteService returns a Service that persists burn requests and
// their audit trail in a SQLite database.
func NewSQLiteService(db *sql.DB) (Service, error) {
	return service.NewSQLiteService(db)
}

// NewSQLiteServiceWithObserver returns a SQLite-backed Service with the given Observer.
func NewSQLiteServiceWithObserver(db *sql.DB, obs Observer) (Service, error) {
	return service.NewSQLiteServiceWithObserver(db, obs)
}

// Convenience helpers that just forward to the underlying Service.

// Submit creates a new pending burn request.
func Submit(ctx context.Context, svc Service, params SubmitParams) (*BurnRequest, error) {
	return svc.Submit(ctx, params)
}

// Claim takes ownership of the oldest pending request for burnerID.
func Claim(ctx context.Context, svc Service, burnerID string) (*BurnRequest, error) {
	return svc.Claim(ctx, burnerID)
}

// Complete reports a claimed request as successfully burned.
func Complete(ctx context.Context, svc Service, requestID, burnerID string) (*BurnRequest, error) {
	return svc.Complete(ctx, requestID, burnerID)
}

// Fail reports a claimed request as failed with the given message.
func Fail(ctx context.Context, svc Service, requestID, burnerID, errorMessage string) (*BurnRequest, error) {
	return svc.Fail(ctx, requestID, burnerID, errorMessage)
}

// Get fetches a request by ID.
func Get(ctx context.Context, svc Service, requestID string) (*BurnRequest, error) {
	return svc.Get(ctx, requestID)
}

// List lists burn requests according to the given options.
func List(ctx context.Context, svc Service, opts ListOptions) ([]*BurnRequest, error) {
	return svc.List(ctx, opts)
}

// History returns the audit trail of a request.
func History(ctx context.Context, svc Service, requestID string) ([]AuditRecord, error) {
	return svc.History(ctx, requestID)
}

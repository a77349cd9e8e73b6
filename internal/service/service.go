package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/burnq/internal/persistence"
	"github.com/petrijr/burnq/pkg/api"
)

// serviceImpl coordinates the burn-task queue on top of a RequestStore.
// It holds no task state of its own; every call reads and writes the
// store, so any number of processes can share one store safely.
type serviceImpl struct {
	requests persistence.RequestStore
	audit    persistence.AuditStore
	observer api.Observer

	now func() time.Time
}

// Config describes how to construct a service.
// Only used inside this package; external callers use the helper functions.
type Config struct {
	Persistence persistence.Persistence
	Observer    api.Observer
}

func NewInMemoryService() api.Service {
	return NewInMemoryServiceWithObserver(nil)
}

func NewInMemoryServiceWithObserver(obs api.Observer) api.Service {
	mem := persistence.NewInMemoryStore()
	return NewServiceWithConfig(Config{
		Persistence: persistence.Persistence{
			Requests: mem,
			Audit:    mem,
		},
		Observer: obs,
	})
}

func NewSQLiteService(db *sql.DB) (api.Service, error) {
	return NewSQLiteServiceWithObserver(db, nil)
}

func NewSQLiteServiceWithObserver(db *sql.DB, obs api.Observer) (api.Service, error) {
	requests, err := persistence.NewSQLiteRequestStore(db)
	if err != nil {
		return nil, err
	}
	audit, err := persistence.NewSQLiteAuditStore(db)
	if err != nil {
		return nil, err
	}
	return NewServiceWithConfig(Config{
		Persistence: persistence.Persistence{
			Requests: requests,
			Audit:    audit,
		},
		Observer: obs,
	}), nil
}

// NewServiceWithConfig creates a new Service using the given configuration.
func NewServiceWithConfig(cfg Config) api.Service {
	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}
	audit := cfg.Persistence.Audit
	if audit == nil {
		audit = persistence.NoopAuditStore{}
	}
	return &serviceImpl{
		requests: cfg.Persistence.Requests,
		audit:    audit,
		observer: obs,
		now:      time.Now,
	}
}

func (s *serviceImpl) Submit(ctx context.Context, params api.SubmitParams) (*api.BurnRequest, error) {
	if strings.TrimSpace(params.FirmwareID) == "" {
		return nil, fmt.Errorf("%w: firmware id must not be empty", api.ErrValidation)
	}
	if strings.TrimSpace(params.FirmwareVersion) == "" {
		return nil, fmt.Errorf("%w: firmware version must not be empty", api.ErrValidation)
	}
	if strings.TrimSpace(params.InitiatedBy) == "" {
		return nil, fmt.Errorf("%w: initiator must not be empty", api.ErrValidation)
	}

	now := s.now()
	req := &api.BurnRequest{
		ID:              uuid.NewString(),
		FirmwareID:      params.FirmwareID,
		FirmwareVersion: params.FirmwareVersion,
		Status:          api.StatusPending,
		InitiatedBy:     params.InitiatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.requests.CreateRequest(ctx, req); err != nil {
		return nil, api.NewPersistenceError("submit", req.ID, err)
	}

	s.recordTransition(ctx, req.ID, "", api.StatusPending, params.InitiatedBy, now)
	s.observer.OnRequestSubmitted(ctx, req.Clone())
	return req, nil
}

func (s *serviceImpl) Claim(ctx context.Context, burnerID string) (*api.BurnRequest, error) {
	if strings.TrimSpace(burnerID) == "" {
		return nil, fmt.Errorf("%w: burner id must not be empty", api.ErrValidation)
	}

	now := s.now()
	req, err := s.requests.ClaimOldestPending(ctx, burnerID, now)
	if err != nil {
		if errors.Is(err, persistence.ErrNoPendingRequest) {
			return nil, api.ErrNoPendingRequest
		}
		// The claim may or may not have taken effect; the caller must
		// re-query before retrying.
		return nil, api.NewPersistenceError("claim", "", err)
	}

	s.recordTransition(ctx, req.ID, api.StatusPending, api.StatusProcessing, burnerID, now)
	s.observer.OnRequestClaimed(ctx, req.Clone())
	return req, nil
}

func (s *serviceImpl) Complete(ctx context.Context, requestID, burnerID string) (*api.BurnRequest, error) {
	req, err := s.finish(ctx, "complete", requestID, burnerID, api.StatusCompleted, "")
	if err != nil {
		return nil, err
	}
	s.observer.OnRequestCompleted(ctx, req.Clone())
	return req, nil
}

func (s *serviceImpl) Fail(ctx context.Context, requestID, burnerID, errorMessage string) (*api.BurnRequest, error) {
	if strings.TrimSpace(errorMessage) == "" {
		return nil, fmt.Errorf("%w: error message must not be empty", api.ErrValidation)
	}
	req, err := s.finish(ctx, "fail", requestID, burnerID, api.StatusFailed, errorMessage)
	if err != nil {
		return nil, err
	}
	s.observer.OnRequestFailed(ctx, req.Clone())
	return req, nil
}

// finish runs the shared half of Complete and Fail: the conditional
// status+ownership update plus the audit append.
func (s *serviceImpl) finish(ctx context.Context, op, requestID, burnerID string, to api.Status, errMsg string) (*api.BurnRequest, error) {
	if strings.TrimSpace(requestID) == "" {
		return nil, fmt.Errorf("%w: request id must not be empty", api.ErrValidation)
	}
	if strings.TrimSpace(burnerID) == "" {
		return nil, fmt.Errorf("%w: burner id must not be empty", api.ErrValidation)
	}

	now := s.now()
	req, err := s.requests.FinishRequest(ctx, requestID, burnerID, to, errMsg, now)
	if err != nil {
		switch {
		case errors.Is(err, persistence.ErrRequestNotFound):
			return nil, fmt.Errorf("%s burn request %s: %w", op, requestID, api.ErrNotFound)
		case errors.Is(err, persistence.ErrOwnerMismatch):
			return nil, fmt.Errorf("%s burn request %s: %w", op, requestID, api.ErrNotOwner)
		case errors.Is(err, persistence.ErrNotProcessing):
			return nil, fmt.Errorf("%s burn request %s: %w", op, requestID, api.ErrInvalidTransition)
		default:
			return nil, api.NewPersistenceError(op, requestID, err)
		}
	}

	s.recordTransition(ctx, req.ID, api.StatusProcessing, to, burnerID, now)
	return req, nil
}

func (s *serviceImpl) Get(ctx context.Context, requestID string) (*api.BurnRequest, error) {
	req, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, persistence.ErrRequestNotFound) {
			return nil, fmt.Errorf("get burn request %s: %w", requestID, api.ErrNotFound)
		}
		return nil, api.NewPersistenceError("get", requestID, err)
	}
	return req, nil
}

func (s *serviceImpl) List(ctx context.Context, opts api.ListOptions) ([]*api.BurnRequest, error) {
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", api.ErrValidation, opts.Status)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = api.DefaultListLimit
	}
	if limit > api.MaxListLimit {
		limit = api.MaxListLimit
	}

	requests, err := s.requests.ListRequests(ctx, persistence.RequestFilter{
		Status: opts.Status,
		Limit:  limit,
	})
	if err != nil {
		return nil, api.NewPersistenceError("list", "", err)
	}
	return requests, nil
}

func (s *serviceImpl) History(ctx context.Context, requestID string) ([]api.AuditRecord, error) {
	if _, err := s.Get(ctx, requestID); err != nil {
		return nil, err
	}
	recs, err := s.audit.ListAudit(ctx, requestID)
	if err != nil {
		return nil, api.NewPersistenceError("history", requestID, err)
	}
	return recs, nil
}

// recordTransition appends one audit record. The transition itself has
// already been committed; a failed append must not roll it back, so the
// error is deliberately dropped after the write succeeded. The audit
// trail is diagnostic, the request row is authoritative.
func (s *serviceImpl) recordTransition(ctx context.Context, requestID string, from, to api.Status, actor string, at time.Time) {
	_ = s.audit.AppendAudit(ctx, api.AuditRecord{
		RequestID: requestID,
		From:      from,
		To:        to,
		Actor:     actor,
		At:        at,
	})
}

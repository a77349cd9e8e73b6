package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/petrijr/burnq/pkg/api"
)

// InMemoryStore is a goroutine-safe RequestStore and AuditStore backed by
// maps. It is not durable and is intended for tests and examples.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[string]*api.BurnRequest
	audit    map[string][]api.AuditRecord
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		requests: make(map[string]*api.BurnRequest),
		audit:    make(map[string][]api.AuditRecord),
	}
}

// Ensure InMemoryStore implements the interfaces.
var _ RequestStore = (*InMemoryStore)(nil)

var _ AuditStore = (*InMemoryStore)(nil)

func (s *InMemoryStore) CreateRequest(ctx context.Context, req *api.BurnRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests[req.ID] = req.Clone()
	return nil
}

func (s *InMemoryStore) GetRequest(ctx context.Context, id string) (*api.BurnRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return req.Clone(), nil
}

func (s *InMemoryStore) ListRequests(ctx context.Context, f RequestFilter) ([]*api.BurnRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*api.BurnRequest
	for _, req := range s.requests {
		if f.Status != "" && req.Status != f.Status {
			continue
		}
		result = append(result, req.Clone())
	}

	// Most recent first; id descending keeps equal timestamps stable.
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

func (s *InMemoryStore) ClaimOldestPending(ctx context.Context, burnerID string, now time.Time) (*api.BurnRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var oldest *api.BurnRequest
	for _, req := range s.requests {
		if req.Status != api.StatusPending {
			continue
		}
		if oldest == nil {
			oldest = req
			continue
		}
		if req.CreatedAt.Before(oldest.CreatedAt) ||
			(req.CreatedAt.Equal(oldest.CreatedAt) && req.ID < oldest.ID) {
			oldest = req
		}
	}
	if oldest == nil {
		return nil, ErrNoPendingRequest
	}

	oldest.Status = api.StatusProcessing
	oldest.CompletedBy = burnerID
	oldest.UpdatedAt = now
	return oldest.Clone(), nil
}

func (s *InMemoryStore) FinishRequest(ctx context.Context, id, burnerID string, to api.Status, errMsg string, now time.Time) (*api.BurnRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	if req.Status != api.StatusProcessing {
		return nil, ErrNotProcessing
	}
	if req.CompletedBy != burnerID {
		return nil, ErrOwnerMismatch
	}

	req.Status = to
	req.ErrorMessage = errMsg
	req.UpdatedAt = now
	return req.Clone(), nil
}

func (s *InMemoryStore) AppendAudit(ctx context.Context, rec api.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.audit[rec.RequestID] = append(s.audit[rec.RequestID], rec)
	return nil
}

func (s *InMemoryStore) ListAudit(ctx context.Context, requestID string) ([]api.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.audit[requestID]
	out := make([]api.AuditRecord, len(recs))
	copy(out, recs)
	return out, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/petrijr/burnq/pkg/api"
)

// TestConcurrentClaimSingleRequest races many burners against a single
// pending request: exactly one claim must succeed, every other caller
// must see "no pending request".
func TestConcurrentClaimSingleRequest(t *testing.T) {
	t.Parallel()

	svc := NewInMemoryService()
	ctx := context.Background()

	req := submitOne(t, svc)

	const burners = 64

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   []string
		noPending int
	)

	for i := 0; i < burners; i++ {
		wg.Add(1)
		burner := fmt.Sprintf("burner-%d", i)
		go func() {
			defer wg.Done()
			claimed, err := svc.Claim(ctx, burner)
			if err != nil {
				if errors.Is(err, api.ErrNoPendingRequest) {
					mu.Lock()
					noPending++
					mu.Unlock()
					return
				}
				t.Errorf("unexpected claim error: %v", err)
				return
			}
			mu.Lock()
			winners = append(winners, claimed.CompletedBy)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("expected exactly one winner, got %d", len(winners))
	}
	if noPending != burners-1 {
		t.Fatalf("expected %d no-pending results, got %d", burners-1, noPending)
	}

	got, err := svc.Get(ctx, req.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != api.StatusProcessing || got.CompletedBy != winners[0] {
		t.Fatalf("row does not match the winner: %+v", got)
	}
}

// TestConcurrentClaimManyRequests races burners against a pool of
// requests: every request is claimed exactly once and no two burners
// ever share one.
func TestConcurrentClaimManyRequests(t *testing.T) {
	t.Parallel()

	svc := NewInMemoryService()
	ctx := context.Background()

	const requests = 20
	for i := 0; i < requests; i++ {
		submitOne(t, svc)
	}

	const burners = 8

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed = make(map[string]string) // request id -> burner
	)

	for i := 0; i < burners; i++ {
		wg.Add(1)
		burner := fmt.Sprintf("burner-%d", i)
		go func() {
			defer wg.Done()
			for {
				req, err := svc.Claim(ctx, burner)
				if err != nil {
					if errors.Is(err, api.ErrNoPendingRequest) {
						return
					}
					t.Errorf("unexpected claim error: %v", err)
					return
				}
				mu.Lock()
				if prev, ok := claimed[req.ID]; ok {
					t.Errorf("request %s claimed twice: %s and %s", req.ID, prev, burner)
				}
				claimed[req.ID] = burner
				mu.Unlock()

				if _, err := svc.Complete(ctx, req.ID, burner); err != nil {
					t.Errorf("Complete failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if len(claimed) != requests {
		t.Fatalf("expected all %d requests claimed, got %d", requests, len(claimed))
	}

	done, err := svc.List(ctx, api.ListOptions{Status: api.StatusCompleted, Limit: api.MaxListLimit})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(done) != requests {
		t.Fatalf("expected all %d requests completed, got %d", requests, len(done))
	}
}

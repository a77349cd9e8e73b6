package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	corep "github.com/petrijr/burnq/internal/persistence"
)

func (p *PostgresStoreTestSuite) TestPostgresRequestStore_ConcurrentClaimOnlyOne() {
	ctx := context.Background()
	created := time.Now()

	err := p.store.CreateRequest(ctx, pgPendingRequest("pg-race-1", created))
	p.NoErrorf(err, "CreateRequest failed: %v", "formatted")

	const burners = 16

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := 0; i < burners; i++ {
		wg.Add(1)
		go func(burnerID string) {
			defer wg.Done()
			req, err := p.store.ClaimOldestPending(ctx, burnerID, time.Now())
			if errors.Is(err, corep.ErrNoPendingRequest) {
				return
			}
			if err != nil {
				return
			}
			mu.Lock()
			winners = append(winners, req.CompletedBy)
			mu.Unlock()
		}(fmt.Sprintf("burner-%d", i))
	}
	wg.Wait()

	p.EqualValues(1, len(winners), "expected exactly one claimant, got %d: %v", len(winners), winners)
}

func (p *PostgresStoreTestSuite) TestPostgresRequestStore_ConcurrentClaimNoDoubleAssignment() {
	ctx := context.Background()
	base := time.Now()

	const requests = 12
	for i := 0; i < requests; i++ {
		req := pgPendingRequest(fmt.Sprintf("pg-race-batch-%02d", i), base.Add(time.Duration(i)*time.Millisecond))
		err := p.store.CreateRequest(ctx, req)
		p.NoErrorf(err, "CreateRequest failed: %v", "formatted")
	}

	const burners = 6

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed = map[string]string{}
	)
	for i := 0; i < burners; i++ {
		wg.Add(1)
		go func(burnerID string) {
			defer wg.Done()
			for {
				req, err := p.store.ClaimOldestPending(ctx, burnerID, time.Now())
				if errors.Is(err, corep.ErrNoPendingRequest) {
					return
				}
				if err != nil {
					return
				}
				mu.Lock()
				if prev, ok := claimed[req.ID]; ok {
					mu.Unlock()
					p.Failf("double claim", "request %s claimed by %s and %s", req.ID, prev, burnerID)
					return
				}
				claimed[req.ID] = burnerID
				mu.Unlock()
			}
		}(fmt.Sprintf("burner-%d", i))
	}
	wg.Wait()

	p.EqualValues(requests, len(claimed), "expected all requests claimed exactly once")
}

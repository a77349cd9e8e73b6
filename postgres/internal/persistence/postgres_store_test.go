package persistence

import (
	"context"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	corep "github.com/petrijr/burnq/internal/persistence"
	"github.com/petrijr/burnq/pkg/api"
)

func pgPendingRequest(id string, created time.Time) *api.BurnRequest {
	return &api.BurnRequest{
		ID:              id,
		FirmwareID:      "fw-7",
		FirmwareVersion: "2.1.0",
		Status:          api.StatusPending,
		InitiatedBy:     "alice",
		CreatedAt:       created,
		UpdatedAt:       created,
	}
}

func (p *PostgresStoreTestSuite) TestPostgresRequestStore_CreateGet() {
	ctx := context.Background()
	created := time.Now()

	req := pgPendingRequest("pg-req-1", created)
	err := p.store.CreateRequest(ctx, req)
	p.NoErrorf(err, "CreateRequest failed: %v", "formatted")

	got, err := p.store.GetRequest(ctx, "pg-req-1")
	p.NoErrorf(err, "GetRequest failed: %v", "formatted")

	if got.ID != req.ID || got.FirmwareID != req.FirmwareID || got.FirmwareVersion != req.FirmwareVersion {
		p.Failf("unexpected request", "unexpected request after Get: %+v", got)
	}
	p.Equal(api.StatusPending, got.Status)
	p.Equal("alice", got.InitiatedBy)
	p.Equal(created.UnixNano(), got.CreatedAt.UnixNano())
}

func (p *PostgresStoreTestSuite) TestPostgresRequestStore_GetMissing() {
	_, err := p.store.GetRequest(context.Background(), "no-such-request")
	p.True(errors.Is(err, corep.ErrRequestNotFound), "expected ErrRequestNotFound, got %v", err)
}

func (p *PostgresStoreTestSuite) TestPostgresRequestStore_ListFilterAndOrder() {
	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"pg-list-1", "pg-list-2", "pg-list-3"} {
		req := pgPendingRequest(id, base.Add(time.Duration(i)*time.Second))
		err := p.store.CreateRequest(ctx, req)
		p.NoErrorf(err, "CreateRequest %s failed: %v", id, "formatted")
	}

	claimed, err := p.store.ClaimOldestPending(ctx, "burner-1", base.Add(time.Hour))
	p.NoErrorf(err, "ClaimOldestPending failed: %v", "formatted")
	p.Equal("pg-list-1", claimed.ID)

	all, err := p.store.ListRequests(ctx, corep.RequestFilter{Limit: 10})
	p.NoErrorf(err, "ListRequests failed: %v", "formatted")
	p.Len(all, 3)
	// Most recent first.
	p.Equal("pg-list-3", all[0].ID)
	p.Equal("pg-list-2", all[1].ID)
	p.Equal("pg-list-1", all[2].ID)

	pending, err := p.store.ListRequests(ctx, corep.RequestFilter{Status: api.StatusPending, Limit: 10})
	p.NoErrorf(err, "ListRequests pending failed: %v", "formatted")
	p.Len(pending, 2)

	limited, err := p.store.ListRequests(ctx, corep.RequestFilter{Limit: 1})
	p.NoErrorf(err, "ListRequests limited failed: %v", "formatted")
	p.Len(limited, 1)
	p.Equal("pg-list-3", limited[0].ID)
}

func (p *PostgresStoreTestSuite) TestPostgresRequestStore_ClaimMarksProcessing() {
	ctx := context.Background()
	created := time.Now()

	err := p.store.CreateRequest(ctx, pgPendingRequest("pg-claim-1", created))
	p.NoErrorf(err, "CreateRequest failed: %v", "formatted")

	claimedAt := created.Add(time.Minute)
	got, err := p.store.ClaimOldestPending(ctx, "burner-9", claimedAt)
	p.NoErrorf(err, "ClaimOldestPending failed: %v", "formatted")
	p.Equal("pg-claim-1", got.ID)
	p.Equal(api.StatusProcessing, got.Status)
	p.Equal("burner-9", got.CompletedBy)
	p.Equal(claimedAt.UnixNano(), got.UpdatedAt.UnixNano())

	_, err = p.store.ClaimOldestPending(ctx, "burner-10", claimedAt)
	p.True(errors.Is(err, corep.ErrNoPendingRequest), "expected ErrNoPendingRequest, got %v", err)
}

func (p *PostgresStoreTestSuite) TestPostgresRequestStore_FinishVerifiesOwner() {
	ctx := context.Background()
	created := time.Now()

	err := p.store.CreateRequest(ctx, pgPendingRequest("pg-finish-1", created))
	p.NoErrorf(err, "CreateRequest failed: %v", "formatted")

	_, err = p.store.FinishRequest(ctx, "pg-finish-1", "burner-1", api.StatusCompleted, "", created)
	p.True(errors.Is(err, corep.ErrNotProcessing), "expected ErrNotProcessing for pending request, got %v", err)

	_, err = p.store.ClaimOldestPending(ctx, "burner-1", created.Add(time.Minute))
	p.NoErrorf(err, "ClaimOldestPending failed: %v", "formatted")

	_, err = p.store.FinishRequest(ctx, "pg-finish-1", "burner-2", api.StatusCompleted, "", created)
	p.True(errors.Is(err, corep.ErrOwnerMismatch), "expected ErrOwnerMismatch, got %v", err)

	done, err := p.store.FinishRequest(ctx, "pg-finish-1", "burner-1", api.StatusFailed, "verify failed at block 4", created.Add(2*time.Minute))
	p.NoErrorf(err, "FinishRequest failed: %v", "formatted")
	p.Equal(api.StatusFailed, done.Status)
	p.Equal("verify failed at block 4", done.ErrorMessage)

	_, err = p.store.FinishRequest(ctx, "pg-finish-1", "burner-1", api.StatusCompleted, "", created)
	p.True(errors.Is(err, corep.ErrNotProcessing), "expected ErrNotProcessing for finished request, got %v", err)

	_, err = p.store.FinishRequest(ctx, "pg-finish-missing", "burner-1", api.StatusCompleted, "", created)
	p.True(errors.Is(err, corep.ErrRequestNotFound), "expected ErrRequestNotFound, got %v", err)
}

func (p *PostgresStoreTestSuite) TestPostgresAuditStore_AppendList() {
	ctx := context.Background()
	at := time.Now()

	records := []api.AuditRecord{
		{RequestID: "pg-audit-1", From: "", To: api.StatusPending, Actor: "alice", At: at},
		{RequestID: "pg-audit-1", From: api.StatusPending, To: api.StatusProcessing, Actor: "burner-1", At: at.Add(time.Second)},
		{RequestID: "pg-audit-1", From: api.StatusProcessing, To: api.StatusCompleted, Actor: "burner-1", At: at.Add(2 * time.Second)},
		{RequestID: "pg-audit-2", From: "", To: api.StatusPending, Actor: "bob", At: at},
	}
	for _, rec := range records {
		err := p.audit.AppendAudit(ctx, rec)
		p.NoErrorf(err, "AppendAudit failed: %v", "formatted")
	}

	got, err := p.audit.ListAudit(ctx, "pg-audit-1")
	p.NoErrorf(err, "ListAudit failed: %v", "formatted")
	p.Len(got, 3)
	p.Equal(api.StatusPending, got[0].To)
	p.Equal(api.StatusProcessing, got[1].To)
	p.Equal(api.StatusCompleted, got[2].To)
	p.Equal("burner-1", got[2].Actor)

	none, err := p.audit.ListAudit(ctx, "pg-audit-none")
	p.NoErrorf(err, "ListAudit empty failed: %v", "formatted")
	p.Len(none, 0)
}

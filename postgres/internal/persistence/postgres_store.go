package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	corep "github.com/petrijr/burnq/internal/persistence"
	"github.com/petrijr/burnq/pkg/api"
)

// PostgresRequestStore is a RequestStore backed by PostgreSQL.
//
// It expects an *sql.DB that uses a PostgreSQL driver (for example,
// "github.com/jackc/pgx/v5/stdlib" or "github.com/lib/pq").
//
// The caller is responsible for:
//   - importing the driver for its side effects, e.g.:
//     _ "github.com/jackc/pgx/v5/stdlib"
//   - providing a DSN via sql.Open.
//
// The claim is a single statement built around FOR UPDATE SKIP LOCKED,
// so concurrent claimants neither block on each other nor ever receive
// the same row.
type PostgresRequestStore struct {
	db *sql.DB
}

// Ensure PostgresRequestStore implements RequestStore.
var _ corep.RequestStore = (*PostgresRequestStore)(nil)

// NewPostgresRequestStore initializes the required schema in the given
// database and returns a new PostgresRequestStore.
func NewPostgresRequestStore(db *sql.DB) (*PostgresRequestStore, error) {
	s := &PostgresRequestStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *PostgresRequestStore) initSchema() error {
	_, err := p.db.Exec(`
		CREATE TABLE IF NOT EXISTS burn_requests (
			id TEXT PRIMARY KEY,
			firmware_id TEXT NOT NULL,
			firmware_version TEXT NOT NULL,
			status TEXT NOT NULL,
			initiated_by TEXT NOT NULL,
			completed_by TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_burn_requests_status_created ON burn_requests(status, created_at, id);
	`)
	return err
}

const requestColumns = `id, firmware_id, firmware_version, status, initiated_by, completed_by, error_message, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*api.BurnRequest, error) {
	var (
		req       api.BurnRequest
		statusStr string
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(
		&req.ID,
		&req.FirmwareID,
		&req.FirmwareVersion,
		&statusStr,
		&req.InitiatedBy,
		&req.CompletedBy,
		&req.ErrorMessage,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	req.Status = api.Status(statusStr)
	req.CreatedAt = time.Unix(0, createdAt)
	req.UpdatedAt = time.Unix(0, updatedAt)
	return &req, nil
}

func (p *PostgresRequestStore) CreateRequest(ctx context.Context, req *api.BurnRequest) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO burn_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		req.ID,
		req.FirmwareID,
		req.FirmwareVersion,
		string(req.Status),
		req.InitiatedBy,
		req.CompletedBy,
		req.ErrorMessage,
		req.CreatedAt.UnixNano(),
		req.UpdatedAt.UnixNano(),
	)
	return err
}

func (p *PostgresRequestStore) GetRequest(ctx context.Context, id string) (*api.BurnRequest, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM burn_requests
		WHERE id = $1`,
		id,
	)

	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, corep.ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

func (p *PostgresRequestStore) ListRequests(ctx context.Context, f corep.RequestFilter) ([]*api.BurnRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM burn_requests`
	var args []any

	if f.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(f.Status))
	}
	if len(args) == 1 {
		query += ` ORDER BY created_at DESC, id DESC LIMIT $2`
	} else {
		query += ` ORDER BY created_at DESC, id DESC LIMIT $1`
	}
	args = append(args, f.Limit)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*api.BurnRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (p *PostgresRequestStore) ClaimOldestPending(ctx context.Context, burnerID string, now time.Time) (*api.BurnRequest, error) {
	// SKIP LOCKED makes losing claimants fall through to the next row,
	// or to no row at all, instead of queueing on the winner's lock.
	row := p.db.QueryRowContext(ctx, `
		UPDATE burn_requests
		SET status = $1, completed_by = $2, updated_at = $3
		WHERE id = (
			SELECT id
			FROM burn_requests
			WHERE status = $4
			ORDER BY created_at, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+requestColumns,
		string(api.StatusProcessing),
		burnerID,
		now.UnixNano(),
		string(api.StatusPending),
	)

	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, corep.ErrNoPendingRequest
		}
		return nil, err
	}
	return req, nil
}

func (p *PostgresRequestStore) FinishRequest(ctx context.Context, id, burnerID string, to api.Status, errMsg string, now time.Time) (*api.BurnRequest, error) {
	row := p.db.QueryRowContext(ctx, `
		UPDATE burn_requests
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4 AND status = $5 AND completed_by = $6
		RETURNING `+requestColumns,
		string(to),
		errMsg,
		now.UnixNano(),
		id,
		string(api.StatusProcessing),
		burnerID,
	)

	req, err := scanRequest(row)
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// Nothing matched: look at the row to report why.
	var statusStr, owner string
	err = p.db.QueryRowContext(ctx, `
		SELECT status, completed_by FROM burn_requests WHERE id = $1`,
		id,
	).Scan(&statusStr, &owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, corep.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	if api.Status(statusStr) != api.StatusProcessing {
		return nil, corep.ErrNotProcessing
	}
	return nil, corep.ErrOwnerMismatch
}

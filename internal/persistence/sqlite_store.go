package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/petrijr/burnq/pkg/api"
)

// SQLiteRequestStore is a RequestStore backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
//
// SQLite serializes writers, so the select-then-update pair inside the
// claim transaction is atomic with respect to concurrent claimants.
type SQLiteRequestStore struct {
	db *sql.DB
}

// Ensure SQLiteRequestStore implements RequestStore.
var _ RequestStore = (*SQLiteRequestStore)(nil)

// NewSQLiteRequestStore initializes the required schema in the given
// database and returns a new SQLiteRequestStore.
func NewSQLiteRequestStore(db *sql.DB) (*SQLiteRequestStore, error) {
	s := &SQLiteRequestStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteRequestStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS burn_requests (
			id TEXT PRIMARY KEY,
			firmware_id TEXT NOT NULL,
			firmware_version TEXT NOT NULL,
			status TEXT NOT NULL,
			initiated_by TEXT NOT NULL,
			completed_by TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_burn_requests_status_created ON burn_requests(status, created_at, id);
	`)
	return err
}

const sqliteRequestColumns = `id, firmware_id, firmware_version, status, initiated_by, completed_by, error_message, created_at, updated_at`

type sqliteRowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRequest(row sqliteRowScanner) (*api.BurnRequest, error) {
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

func (s *SQLiteRequestStore) CreateRequest(ctx context.Context, req *api.BurnRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO burn_requests (`+sqliteRequestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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

func (s *SQLiteRequestStore) GetRequest(ctx context.Context, id string) (*api.BurnRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sqliteRequestColumns+`
		FROM burn_requests
		WHERE id = ?`,
		id,
	)

	req, err := scanSQLiteRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

func (s *SQLiteRequestStore) ListRequests(ctx context.Context, f RequestFilter) ([]*api.BurnRequest, error) {
	query := `
		SELECT ` + sqliteRequestColumns + `
		FROM burn_requests`
	var args []any

	if f.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, f.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*api.BurnRequest
	for rows.Next() {
		req, err := scanSQLiteRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (s *SQLiteRequestStore) ClaimOldestPending(ctx context.Context, burnerID string, now time.Time) (*api.BurnRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	var id string
	err = tx.QueryRowContext(ctx, `
		SELECT id
		FROM burn_requests
		WHERE status = ?
		ORDER BY created_at, id
		LIMIT 1`,
		string(api.StatusPending),
	).Scan(&id)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoPendingRequest
		}
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE burn_requests
		SET status = ?, completed_by = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(api.StatusProcessing),
		burnerID,
		now.UnixNano(),
		id,
		string(api.StatusPending),
	)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if affected == 0 {
		// Lost the race to another claimant between select and update.
		_ = tx.Rollback()
		return nil, ErrNoPendingRequest
	}

	row := tx.QueryRowContext(ctx, `
		SELECT `+sqliteRequestColumns+`
		FROM burn_requests
		WHERE id = ?`,
		id,
	)
	req, err := scanSQLiteRequest(row)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *SQLiteRequestStore) FinishRequest(ctx context.Context, id, burnerID string, to api.Status, errMsg string, now time.Time) (*api.BurnRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE burn_requests
		SET status = ?, error_message = ?, updated_at = ?
		WHERE id = ? AND status = ? AND completed_by = ?`,
		string(to),
		errMsg,
		now.UnixNano(),
		id,
		string(api.StatusProcessing),
		burnerID,
	)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if affected == 0 {
		// Nothing matched: look at the row to report why.
		var statusStr, owner string
		err := tx.QueryRowContext(ctx, `
			SELECT status, completed_by FROM burn_requests WHERE id = ?`,
			id,
		).Scan(&statusStr, &owner)
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		if err != nil {
			return nil, err
		}
		if api.Status(statusStr) != api.StatusProcessing {
			return nil, ErrNotProcessing
		}
		return nil, ErrOwnerMismatch
	}

	row := tx.QueryRowContext(ctx, `
		SELECT `+sqliteRequestColumns+`
		FROM burn_requests
		WHERE id = ?`,
		id,
	)
	req, err := scanSQLiteRequest(row)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return req, nil
}

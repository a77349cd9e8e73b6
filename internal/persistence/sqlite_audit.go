package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/petrijr/burnq/pkg/api"
)

// SQLiteAuditStore stores request transition history in SQLite.
type SQLiteAuditStore struct {
	db *sql.DB
}

// Ensure SQLiteAuditStore implements the interfaces.
var _ AuditStore = (*SQLiteAuditStore)(nil)

func NewSQLiteAuditStore(db *sql.DB) (*SQLiteAuditStore, error) {
	s := &SQLiteAuditStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteAuditStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS burn_request_audit (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL,
			from_status TEXT NOT NULL DEFAULT '',
			to_status TEXT NOT NULL,
			actor TEXT NOT NULL,
			at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_burn_request_audit_request_id ON burn_request_audit(request_id, id);
	`)
	return err
}

func (s *SQLiteAuditStore) AppendAudit(ctx context.Context, rec api.AuditRecord) error {
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO burn_request_audit (request_id, from_status, to_status, actor, at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.RequestID,
		string(rec.From),
		string(rec.To),
		rec.Actor,
		at.UnixNano(),
	)
	return err
}

func (s *SQLiteAuditStore) ListAudit(ctx context.Context, requestID string) ([]api.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT request_id, from_status, to_status, actor, at
		FROM burn_request_audit
		WHERE request_id = ?
		ORDER BY id ASC`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.AuditRecord
	for rows.Next() {
		var (
			id    string
			from  string
			to    string
			actor string
			atN   int64
		)
		if err := rows.Scan(&id, &from, &to, &actor, &atN); err != nil {
			return nil, err
		}
		out = append(out, api.AuditRecord{
			RequestID: id,
			From:      api.Status(from),
			To:        api.Status(to),
			Actor:     actor,
			At:        time.Unix(0, atN),
		})
	}
	return out, rows.Err()
}

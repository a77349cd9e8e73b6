package persistence

import (
	"context"
	"database/sql"
	"time"

	corep "github.com/petrijr/burnq/internal/persistence"
	"github.com/petrijr/burnq/pkg/api"
)

// PostgresAuditStore is an append-only AuditStore backed by PostgreSQL.
type PostgresAuditStore struct {
	db *sql.DB
}

var _ corep.AuditStore = (*PostgresAuditStore)(nil)

// NewPostgresAuditStore initializes the audit schema and returns a new
// PostgresAuditStore.
func NewPostgresAuditStore(db *sql.DB) (*PostgresAuditStore, error) {
	s := &PostgresAuditStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *PostgresAuditStore) initSchema() error {
	_, err := p.db.Exec(`
		CREATE TABLE IF NOT EXISTS burn_request_audit (
			id BIGSERIAL PRIMARY KEY,
			request_id TEXT NOT NULL,
			from_status TEXT NOT NULL,
			to_status TEXT NOT NULL,
			actor TEXT NOT NULL,
			at BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_burn_request_audit_request ON burn_request_audit(request_id, id);
	`)
	return err
}

func (p *PostgresAuditStore) AppendAudit(ctx context.Context, rec api.AuditRecord) error {
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO burn_request_audit (request_id, from_status, to_status, actor, at)
		VALUES ($1, $2, $3, $4, $5)`,
		rec.RequestID,
		string(rec.From),
		string(rec.To),
		rec.Actor,
		at.UnixNano(),
	)
	return err
}

func (p *PostgresAuditStore) ListAudit(ctx context.Context, requestID string) ([]api.AuditRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT request_id, from_status, to_status, actor, at
		FROM burn_request_audit
		WHERE request_id = $1
		ORDER BY id ASC`,
		requestID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []api.AuditRecord
	for rows.Next() {
		var (
			rec     api.AuditRecord
			fromStr string
			toStr   string
			atNanos int64
		)
		if err := rows.Scan(&rec.RequestID, &fromStr, &toStr, &rec.Actor, &atNanos); err != nil {
			return nil, err
		}
		rec.From = api.Status(fromStr)
		rec.To = api.Status(toStr)
		rec.At = time.Unix(0, atNanos)
		records = append(records, rec)
	}
	return records, rows.Err()
}

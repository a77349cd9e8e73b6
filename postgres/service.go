// Package postgres provides a PostgreSQL-backed burn request service.
//
// It requires a database/sql connection using a PostgreSQL driver, for
// example:
//
//	import _ "github.com/jackc/pgx/v5/stdlib"
//
//	db, err := sql.Open("pgx", dsn)
//	...
//	svc, err := postgres.NewPostgresService(db)
//
// The claim uses FOR UPDATE SKIP LOCKED, which makes this backend the
// right choice when multiple burner processes share one queue.
package postgres

import (
	"database/sql"

	corep "github.com/petrijr/burnq/internal/persistence"
	"github.com/petrijr/burnq/internal/service"
	"github.com/petrijr/burnq/pkg/api"

	pstore "github.com/petrijr/burnq/postgres/internal/persistence"
)

// NewPostgresService returns a Service that persists burn requests in PostgreSQL.
func NewPostgresService(db *sql.DB) (api.Service, error) {
	return NewPostgresServiceWithObserver(db, nil)
}

// NewPostgresServiceWithObserver returns a Postgres-backed Service with the given Observer.
func NewPostgresServiceWithObserver(db *sql.DB, obs api.Observer) (api.Service, error) {
	requests, err := pstore.NewPostgresRequestStore(db)
	if err != nil {
		return nil, err
	}
	audit, err := pstore.NewPostgresAuditStore(db)
	if err != nil {
		return nil, err
	}

	return service.NewServiceWithConfig(service.Config{
		Persistence: corep.Persistence{
			Requests: requests,
			Audit:    audit,
		},
		Observer: obs,
	}), nil
}

// Package postgres is the remote, table-backed implementation of the
// storage interfaces, used when the storage backend is configured to
// "remote". It preserves the in-memory backend's ordering guarantees only
// where §5 requires them and otherwise leaves ordering to the caller.
package postgres

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/flightledger/core/pkg/config"
)

// Ledger wraps the shared sqlx connection pool used by every remote store.
type Ledger struct {
	db *sqlx.DB
}

// Connect opens a connection pool against the given DSN and runs the
// embedded migrations.
func Connect(cfg config.StorageConfig) (*Ledger, error) {
	sqlDB, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := Migrate(sqlDB); err != nil {
		return nil, err
	}
	return &Ledger{db: sqlx.NewDb(sqlDB, "postgres")}, nil
}

// NewLedgerFromDB wraps an already-open connection, used by tests against
// sqlmock.
func NewLedgerFromDB(db *sql.DB) *Ledger {
	return &Ledger{db: sqlx.NewDb(db, "postgres")}
}

// Close releases the underlying connection pool.
func (l *Ledger) Close() error {
	return l.db.Close()
}

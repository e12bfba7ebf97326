package sql

import (
	"context"
	"database/sql"
)

// dbExecutor prepares statements on either *sql.DB or *sql.Tx, so product and
// event writes can share the transaction opened by TransactionalRepository.
type dbExecutor interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// executorFor returns txn when a transaction is active and db otherwise.
func executorFor(db *sql.DB, txn *sql.Tx) dbExecutor {
	if txn != nil {
		return txn
	}
	return db
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

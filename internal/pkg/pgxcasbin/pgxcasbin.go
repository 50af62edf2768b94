// Package pgxcasbin persists Casbin policies in Postgres through pgx
// and propagates policy changes across instances with LISTEN/NOTIFY.
package pgxcasbin

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrPingPool indicates the database is unreachable.
	ErrPingPool = errors.New("pgxcasbin: failed to ping pool")
	// ErrInsertRow indicates a row insert failure.
	ErrInsertRow = errors.New("pgxcasbin: failed to insert row")
	// ErrSelectRows indicates a select failure.
	ErrSelectRows = errors.New("pgxcasbin: failed to select rows")
	// ErrScanRow indicates a row scan failure.
	ErrScanRow = errors.New("pgxcasbin: failed to scan row")
	// ErrDeleteRows indicates a delete failure.
	ErrDeleteRows = errors.New("pgxcasbin: failed to delete rows")
	// ErrBatchExec indicates a batch execution failure.
	ErrBatchExec = errors.New("pgxcasbin: failed to execute batch")
	// ErrBatchClose indicates a batch close failure.
	ErrBatchClose = errors.New("pgxcasbin: failed to close batch")
	// ErrBeginTx indicates a transaction begin failure.
	ErrBeginTx = errors.New("pgxcasbin: failed to begin transaction")
	// ErrCommitTx indicates a transaction commit failure.
	ErrCommitTx = errors.New("pgxcasbin: failed to commit transaction")
	// ErrRollbackTx indicates a transaction rollback failure.
	ErrRollbackTx = errors.New("pgxcasbin: failed to rollback transaction")
	// ErrRuleTooLong indicates a rule exceeds the column count.
	ErrRuleTooLong = errors.New("pgxcasbin: rule length exceeds field count")
	// ErrEmptyPtype indicates a missing policy type.
	ErrEmptyPtype = errors.New("pgxcasbin: ptype is empty")
	// ErrNotifyMessage indicates a pg_notify failure.
	ErrNotifyMessage = errors.New("pgxcasbin: failed to notify")
	// ErrAcquireConn indicates a connection acquisition failure.
	ErrAcquireConn = errors.New("pgxcasbin: failed to acquire connection")
	// ErrListenChannel indicates a listen failure.
	ErrListenChannel = errors.New("pgxcasbin: failed to listen on channel")
	// ErrWaitNotification indicates a notification wait failure.
	ErrWaitNotification = errors.New("pgxcasbin: failed to wait for notification")
)

// Commander defines the pgx operations the adapter needs. It is
// satisfied by *pgxpool.Pool.
type Commander interface {
	Begin(context.Context) (pgx.Tx, error)
	SendBatch(context.Context, *pgx.Batch) pgx.BatchResults
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

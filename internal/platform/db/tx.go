package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sethvargo/go-retry"

	"LABO-backend/internal/platform/apierr"
)

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RunInTx begins a transaction and runs fn in it. nil commits; an error or a
// panic rolls back. Storage failures worth retrying come back as *TransientError.
func RunInTx(ctx context.Context, conn *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := conn.BeginTx(ctx, opts)
	if err != nil {
		return classify(err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return classify(err)
	}
	if err = tx.Commit(); err != nil {
		return classify(err)
	}
	return nil
}

// ReadOnly runs fn in a read-only transaction.
func ReadOnly(ctx context.Context, conn *sql.DB, fn func(ctx context.Context, tx DBTX) error) error {
	return RunInTx(ctx, conn, &sql.TxOptions{ReadOnly: true}, fn)
}

// ReadCommitted is the isolation every ledger mutation uses together with row locks.
var ReadCommitted = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

// ---------- transient errors ----------

const (
	erLockWaitTimeout = 1205
	erLockDeadlock    = 1213
	erDupEntry        = 1062
	erNoReferencedRow = 1452
	erRowIsReferenced = 1451
)

// TransientError marks a failure after which the whole operation may be retried.
// Nothing of the failed attempt was committed.
type TransientError struct{ Err error }

func (e *TransientError) Error() string          { return "transient storage error: " + e.Err.Error() }
func (e *TransientError) Unwrap() error          { return e.Err }
func (e *TransientError) ErrorCode() apierr.Code { return apierr.CodeUnavailable }
func (e *TransientError) ErrorReason() string    { return "RETRY" }

func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == erLockWaitTimeout || me.Number == erLockDeadlock
	}
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, context.DeadlineExceeded)
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var te *TransientError
	if errors.As(err, &te) {
		return err
	}
	if IsTransient(err) {
		return &TransientError{Err: err}
	}
	return err
}

// Transient wraps err so callers treat it as retryable.
func Transient(err error) error { return &TransientError{Err: err} }

// MapConstraint turns duplicate-key and foreign-key violations into API errors.
func MapConstraint(err error, what string) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case erDupEntry:
		return apierr.New(apierr.CodeConflict, "DUPLICATE", what+" already exists")
	case erNoReferencedRow:
		return apierr.New(apierr.CodeInvalidArgument, "UNKNOWN_REFERENCE", what+" references a missing row")
	case erRowIsReferenced:
		return apierr.New(apierr.CodeConflict, "IN_USE", what+" is still referenced")
	}
	return err
}

// ---------- whole-call retry ----------

// Retry runs fn up to attempts times while it fails with a transient error.
// fn must be a complete operation; partial work is never retried.
func Retry(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	b := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(25*time.Millisecond))
	b = retry.WithCappedDuration(500*time.Millisecond, b)
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

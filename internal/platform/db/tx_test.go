package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LABO-backend/internal/platform/apierr"
	"LABO-backend/internal/platform/config"
)

func TestRunInTxCommits(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE materials").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = RunInTx(context.Background(), conn, ReadCommitted, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, "UPDATE materials SET available_quantity = 1")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err = RunInTx(context.Background(), conn, nil, func(ctx context.Context, tx DBTX) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsTransient(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTxRollsBackOnPanic(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = RunInTx(context.Background(), conn, nil, func(ctx context.Context, tx DBTX) error {
			panic("bad")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTxClassifiesDeadlock(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE").WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"})
	mock.ExpectRollback()

	err = RunInTx(context.Background(), conn, nil, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, "UPDATE materials SET available_quantity = 0")
		return err
	})
	var te *TransientError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, apierr.CodeUnavailable, apierr.CodeOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&mysql.MySQLError{Number: 1205}))
	assert.True(t, IsTransient(fmt.Errorf("wrap: %w", &mysql.MySQLError{Number: 1213})))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(Transient(errors.New("x"))))
	assert.False(t, IsTransient(&mysql.MySQLError{Number: 1062}))
	assert.False(t, IsTransient(apierr.ErrConflict("no stock")))
	assert.False(t, IsTransient(nil))
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	perm := apierr.ErrConflict("no stock")
	err := Retry(context.Background(), 5, func(ctx context.Context) error {
		calls++
		return perm
	})
	assert.ErrorIs(t, err, perm)
	assert.Equal(t, 1, calls)
}

func TestRetryRepeatsTransient(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Transient(errors.New("lock wait timeout"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = Retry(context.Background(), 2, func(ctx context.Context) error {
		calls++
		return Transient(errors.New("lock wait timeout"))
	})
	assert.True(t, IsTransient(err))
	assert.Equal(t, 2, calls)
}

func TestMapConstraint(t *testing.T) {
	err := MapConstraint(&mysql.MySQLError{Number: 1062}, "material")
	assert.Equal(t, apierr.CodeConflict, apierr.CodeOf(err))

	err = MapConstraint(&mysql.MySQLError{Number: 1452}, "loan")
	assert.Equal(t, apierr.CodeInvalidArgument, apierr.CodeOf(err))

	plain := errors.New("x")
	assert.Equal(t, plain, MapConstraint(plain, "loan"))
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host: "db", Port: 3306, Username: "labo", Password: "pw", DBName: "labo", LockWaitTimeout: 7,
	})
	assert.Contains(t, dsn, "labo:pw@tcp(db:3306)/labo?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "innodb_lock_wait_timeout=7")
}

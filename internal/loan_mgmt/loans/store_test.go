package loans_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"LABO-backend/internal/loan_mgmt/loans"
	"LABO-backend/internal/platform/apierr"
	"LABO-backend/internal/platform/auth"
	"LABO-backend/internal/platform/db"
)

var (
	materialColumns = []string{"material_id", "name", "description", "category", "available_quantity", "active"}
	loanColumns     = []string{
		"loan_id", "folio", "created_at", "scheduled_for", "career_id", "subject_id", "teacher_id",
		"practice_id", "location", "observation", "importance", "state", "visible",
		"user_id", "returned_at", "returned_by",
	}
	sqlNow = time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
)

func sqlService(t *testing.T) (*loans.Service, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	svc := loans.NewService(loans.NewStore(conn), zap.NewNop(), cst,
		loans.WithClock(&stepClock{t: sqlNow}),
		loans.WithIDGen(&seqIDs{}),
	)
	return svc, mock
}

func expectInsertLoan(mock sqlmock.Sqlmock) *sqlmock.ExpectedExec {
	return mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO loans`)).
		WithArgs(sqlmock.AnyArg(), sqlNow, nil, int64(1), int64(2), int64(3), nil,
			"Lab 3", "", "normal", "active", true, int64(9))
}

func sqlRequest() loans.CreateLoanRequest {
	return loans.CreateLoanRequest{
		CareerID: 1, SubjectID: 2, TeacherID: 3, Location: "Lab 3",
		Lines:        []loans.LineInput{{MaterialID: 4, Quantity: 2}},
		Participants: []loans.ParticipantInput{{Name: "Eva", Identifier: "A01"}},
	}
}

func TestSQLCreateLoanWritesInOneTransaction(t *testing.T) {
	svc, mock := sqlService(t)

	mock.ExpectBegin()
	expectInsertLoan(mock).WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM materials WHERE material_id = ? FOR UPDATE`)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(materialColumns).AddRow(4, "Multímetro", "", "medición", 6, true))
	mock.ExpectExec(regexp.QuoteMeta(`SET available_quantity = available_quantity + ?`)).
		WithArgs(-2, int64(4), -2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO loan_lines (loan_id, material_id, quantity) VALUES (?, ?, ?)`)).
		WithArgs(int64(5), int64(4), 2).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO participants`)).
		WithArgs(int64(5), "Eva", "A01", nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	res, err := svc.CreateLoan(context.Background(), auth.Actor{UserID: 9}, sqlRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.LoanID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCreateLoanMapsForeignKeys(t *testing.T) {
	svc, mock := sqlService(t)

	mock.ExpectBegin()
	expectInsertLoan(mock).WillReturnError(&mysql.MySQLError{Number: 1452, Message: "fk"})
	mock.ExpectRollback()

	_, err := svc.CreateLoan(context.Background(), auth.Actor{UserID: 9}, sqlRequest())
	assert.Equal(t, apierr.CodeInvalidArgument, apierr.CodeOf(err))
	assert.Equal(t, "UNKNOWN_REFERENCE", apierr.FromErr(err).Error.Reason)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCreateLoanRetriesDeadlock(t *testing.T) {
	svc, mock := sqlService(t)

	mock.ExpectBegin()
	expectInsertLoan(mock).WillReturnError(&mysql.MySQLError{Number: 1213, Message: "deadlock"})
	mock.ExpectRollback()

	mock.ExpectBegin()
	expectInsertLoan(mock).WillReturnResult(sqlmock.NewResult(6, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(materialColumns).AddRow(4, "Multímetro", "", "medición", 6, true))
	mock.ExpectExec(regexp.QuoteMeta(`SET available_quantity`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO loan_lines`)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO participants`)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	var res loans.LoanCreatedResponse
	err := db.Retry(context.Background(), 3, func(ctx context.Context) error {
		var err error
		res, err = svc.CreateLoan(ctx, auth.Actor{UserID: 9}, sqlRequest())
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6), res.LoanID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLReturnLoanReleasesLines(t *testing.T) {
	svc, mock := sqlService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM loans l WHERE l.loan_id = ? FOR UPDATE`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(loanColumns).AddRow(
			5, "F1", sqlNow, nil, 1, 2, 3, nil, "Lab 3", "", "normal", "active", false, 9, nil, nil))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT material_id, quantity FROM loan_lines WHERE loan_id = ?`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"material_id", "quantity"}).AddRow(4, 2).AddRow(7, 1))
	mock.ExpectExec(regexp.QuoteMeta(`SET available_quantity = available_quantity + ?`)).
		WithArgs(2, int64(4), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`SET available_quantity = available_quantity + ?`)).
		WithArgs(1, int64(7), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`SET state = 'returned', returned_at = ?, returned_by = ?`)).
		WithArgs(sqlNow, int64(9), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.ReturnLoan(context.Background(), auth.Actor{UserID: 9}, 5)
	require.NoError(t, err)
	assert.Len(t, res.Released, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLReturnLoanTwice(t *testing.T) {
	svc, mock := sqlService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(loanColumns).AddRow(
			5, "F1", sqlNow, nil, 1, 2, 3, nil, "Lab 3", "", "normal", "returned", true, 9, sqlNow, 9))
	mock.ExpectRollback()

	_, err := svc.ReturnLoan(context.Background(), auth.Actor{UserID: 9}, 5)
	assert.ErrorIs(t, err, loans.ErrAlreadyReturned)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBulkHideUsesZoneBounds(t *testing.T) {
	svc, mock := sqlService(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SET visible = FALSE`)).
		WithArgs(time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC), time.Date(2024, 4, 1, 6, 0, 0, 0, time.UTC)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	res, err := svc.BulkHide(context.Background(), auth.Actor{UserID: 1, Role: auth.RoleAdmin},
		loans.DateRange{From: "2024-03-01", To: "2024-03-31"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

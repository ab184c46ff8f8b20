package loans_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LABO-backend/internal/loan_mgmt/inventory"
	"LABO-backend/internal/loan_mgmt/loans"
	"LABO-backend/internal/platform/apierr"
)

func TestCreateAndReturnMovesStock(t *testing.T) {
	ctx := context.Background()
	l := newLab(t)

	first, err := l.svc.CreateLoan(ctx, l.student, l.request(line(l.multimetro, 3)))
	require.NoError(t, err)
	assert.Equal(t, loans.StateActive, first.State)
	assert.Equal(t, "FOLIO-0001", first.Folio)
	assert.Equal(t, 7, l.stock(t, l.multimetro))

	_, err = l.svc.CreateLoan(ctx, l.student, l.request(line(l.multimetro, 8)))
	var ise *inventory.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, inventory.InsufficientStockError{MaterialID: l.multimetro, Requested: 8, Available: 7}, *ise)
	assert.Equal(t, 7, l.stock(t, l.multimetro))

	ret, err := l.svc.ReturnLoan(ctx, l.student, first.LoanID)
	require.NoError(t, err)
	assert.Equal(t, loans.StateReturned, ret.State)
	assert.Equal(t, []loans.LineInput{line(l.multimetro, 3)}, ret.Released)
	assert.Equal(t, 10, l.stock(t, l.multimetro))

	_, err = l.svc.ReturnLoan(ctx, l.student, first.LoanID)
	assert.ErrorIs(t, err, loans.ErrAlreadyReturned)
	assert.Equal(t, 10, l.stock(t, l.multimetro))

	d, err := l.svc.LoanDetail(ctx, first.LoanID)
	require.NoError(t, err)
	require.NotNil(t, d.ReturnedBy)
	assert.Equal(t, l.student.UserID, *d.ReturnedBy)
	assert.Equal(t, l.clock.t, *d.ReturnedAt)
}

func TestCreateLoanIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	l := newLab(t)

	_, err := l.svc.CreateLoan(ctx, l.student, l.request(
		line(l.multimetro, 2),
		line(l.osciloscopio, 5),
	))
	var ise *inventory.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, l.osciloscopio, ise.MaterialID)

	assert.Equal(t, 10, l.stock(t, l.multimetro))
	assert.Equal(t, 4, l.stock(t, l.osciloscopio))
	_, err = l.svc.LoanDetail(ctx, 1)
	assert.ErrorIs(t, err, loans.ErrLoanNotFound)
}

func TestCreateLoanValidation(t *testing.T) {
	ctx := context.Background()
	l := newLab(t)

	_, err := l.svc.CreateLoan(ctx, l.student, l.request())
	assert.ErrorIs(t, err, loans.ErrEmptyLineSet)

	var qe *inventory.InvalidQuantityError
	_, err = l.svc.CreateLoan(ctx, l.student, l.request(line(l.multimetro, 1), line(l.fuente, 0)))
	assert.ErrorAs(t, err, &qe)

	var ume *inventory.UnknownMaterialError
	_, err = l.svc.CreateLoan(ctx, l.student, l.request(line(404, 1)))
	assert.ErrorAs(t, err, &ume)

	l.store.SetMaterialActive(l.osciloscopio, false)
	var ie *inventory.MaterialInactiveError
	_, err = l.svc.CreateLoan(ctx, l.student, l.request(line(l.osciloscopio, 1)))
	assert.ErrorAs(t, err, &ie)

	req := l.request(line(l.multimetro, 1))
	req.TeacherID = 999
	_, err = l.svc.CreateLoan(ctx, l.student, req)
	assert.Equal(t, apierr.CodeInvalidArgument, apierr.CodeOf(err))

	req = l.request(line(l.multimetro, 1))
	req.Importance = "critical"
	_, err = l.svc.CreateLoan(ctx, l.student, req)
	assert.Equal(t, apierr.CodeInvalidArgument, apierr.CodeOf(err))

	assert.Equal(t, 10, l.stock(t, l.multimetro))
	assert.Equal(t, 1, l.stock(t, l.fuente))
}

func TestCreateLoanMergesRepeatedMaterials(t *testing.T) {
	ctx := context.Background()
	l := newLab(t)

	req := l.request(line(l.osciloscopio, 1), line(l.multimetro, 2), line(l.osciloscopio, 2))
	req.Importance = " URGENT "
	req.Participants = []loans.ParticipantInput{
		{Name: " Eva Ruiz ", Identifier: "A0142"},
		{Name: "Iván Soto", Signature: []byte{0x89, 'P', 'N', 'G'}},
	}
	res, err := l.svc.CreateLoan(ctx, l.student, req)
	require.NoError(t, err)
	assert.Equal(t, []loans.LineInput{line(l.multimetro, 2), line(l.osciloscopio, 3)}, res.Lines)
	assert.Equal(t, 1, l.stock(t, l.osciloscopio))

	d, err := l.svc.LoanDetail(ctx, res.LoanID)
	require.NoError(t, err)
	assert.Equal(t, loans.ImportanceUrgent, d.Importance)
	assert.Equal(t, "Circuitos Eléctricos", d.SubjectName)
	require.Len(t, d.Lines, 2)
	assert.Equal(t, "Multímetro", d.Lines[0].MaterialName)
	require.Len(t, d.Participants, 2)
	assert.Equal(t, "Eva Ruiz", d.Participants[0].Name)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, d.Participants[1].Signature)

	req = l.request(line(l.multimetro, 1))
	req.Participants = []loans.ParticipantInput{{Name: "  "}}
	_, err = l.svc.CreateLoan(ctx, l.student, req)
	assert.Equal(t, apierr.CodeInvalidArgument, apierr.CodeOf(err))
}

func TestBulkHideKeepsReservations(t *testing.T) {
	ctx := context.Background()
	l := newLab(t)

	// 21:00 on March 4th in the ledger zone
	l.clock.t = time.Date(2024, 3, 5, 3, 0, 0, 0, time.UTC)
	late, err := l.svc.CreateLoan(ctx, l.student, l.request(line(l.multimetro, 4)))
	require.NoError(t, err)
	// March 5th locally
	l.clock.t = time.Date(2024, 3, 5, 7, 0, 0, 0, time.UTC)
	_, err = l.svc.CreateLoan(ctx, l.student, l.request(line(l.multimetro, 1)))
	require.NoError(t, err)

	res, err := l.svc.BulkHide(ctx, l.admin, loans.DateRange{From: "2024-03-04", To: "2024-03-04"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Affected)
	assert.Equal(t, 5, l.stock(t, l.multimetro), "hiding does not release stock")

	again, err := l.svc.BulkHide(ctx, l.admin, loans.DateRange{From: "2024-03-04", To: "2024-03-04"})
	require.NoError(t, err)
	assert.Zero(t, again.Affected)

	_, err = l.svc.ReturnLoan(ctx, l.student, late.LoanID)
	require.NoError(t, err)
	assert.Equal(t, 9, l.stock(t, l.multimetro))

	d, err := l.svc.LoanDetail(ctx, late.LoanID)
	require.NoError(t, err)
	assert.False(t, d.Visible)
	assert.Equal(t, loans.StateReturned, d.State)
}

func TestBulkHideRejectsBadRanges(t *testing.T) {
	ctx := context.Background()
	l := newLab(t)

	for _, r := range []loans.DateRange{
		{From: "2024-03-05", To: "2024-03-04"},
		{From: "04/03/2024", To: "2024-03-04"},
		{From: "2024-03-04"},
	} {
		_, err := l.svc.BulkHide(ctx, l.admin, r)
		assert.ErrorIs(t, err, loans.ErrInvalidRange, "%+v", r)
	}
}

func TestReturnUnknownLoan(t *testing.T) {
	l := newLab(t)
	_, err := l.svc.ReturnLoan(context.Background(), l.student, 12)
	assert.ErrorIs(t, err, loans.ErrLoanNotFound)
	_, err = l.svc.ReturnLoan(context.Background(), l.student, 0)
	assert.ErrorIs(t, err, loans.ErrLoanNotFound)
}

func TestConcurrentLoansForLastUnit(t *testing.T) {
	ctx := context.Background()
	l := newLab(t)

	const n = 12
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		refused int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.svc.CreateLoan(ctx, l.student, l.request(line(l.fuente, 1)))
			mu.Lock()
			defer mu.Unlock()
			var ise *inventory.InsufficientStockError
			switch {
			case err == nil:
				created++
			case assert.ErrorAs(t, err, &ise):
				refused++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, refused)
	assert.Equal(t, 0, l.stock(t, l.fuente))
}

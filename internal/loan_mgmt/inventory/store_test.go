package inventory

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"LABO-backend/internal/platform/auth"
)

var materialColumns = []string{"material_id", "name", "description", "category", "available_quantity", "active"}

func TestAdjustStockLocksAndAudits(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM materials WHERE material_id = ? FOR UPDATE`)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(materialColumns).AddRow(4, "Protoboard", "", "electronica", 6, true))
	mock.ExpectExec(regexp.QuoteMeta(`SET available_quantity = available_quantity + ?`)).
		WithArgs(-2, int64(4), -2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO stock_adjustments`)).
		WithArgs(sqlmock.AnyArg(), int64(4), -2, 4, "broken", int64(9), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(31, 1))
	mock.ExpectCommit()

	svc := NewService(NewStore(conn), zap.NewNop())
	res, err := svc.AdjustStock(context.Background(), auth.Actor{UserID: 9, Role: auth.RoleAdmin}, 4,
		AdjustStockRequest{Delta: -2, Reason: " broken "})
	require.NoError(t, err)
	assert.Equal(t, 4, res.ResultingQty)
	assert.Equal(t, "broken", res.Reason)
	assert.Len(t, res.AdjustmentULID, 26)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustStockRollsBackBelowZero(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(materialColumns).AddRow(4, "Protoboard", "", "electronica", 1, true))
	mock.ExpectRollback()

	svc := NewService(NewStore(conn), zap.NewNop())
	_, err = svc.AdjustStock(context.Background(), auth.Actor{UserID: 9}, 4, AdjustStockRequest{Delta: -3, Reason: "lost"})
	var ise *InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, 1, ise.Available)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockMaterialUnknown(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs(int64(77)).
		WillReturnRows(sqlmock.NewRows(materialColumns))

	_, err = NewSQLStock(conn).LockMaterial(context.Background(), 77)
	var ume *UnknownMaterialError
	require.ErrorAs(t, err, &ume)
	assert.Equal(t, int64(77), ume.MaterialID)
}

func TestAddQuantityGuardFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE materials`)).
		WithArgs(-5, int64(1), -5).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewSQLStock(conn).AddQuantity(context.Background(), 1, -5)
	assert.Error(t, err)
}

func TestListMaterialsFilters(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM materials WHERE active = TRUE AND available_quantity > ? AND category = ? ORDER BY name`)).
		WithArgs(0, "optica").
		WillReturnRows(sqlmock.NewRows(materialColumns).
			AddRow(1, "Lente", "convergente", "optica", 3, true))

	cat := " optica "
	ms, err := NewStore(conn).ListMaterials(context.Background(), MaterialFilter{Category: &cat, InStockOnly: true})
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, "Lente", ms[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

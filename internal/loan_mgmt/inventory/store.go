package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"LABO-backend/internal/platform/apierr"
	"LABO-backend/internal/platform/db"
	"LABO-backend/internal/platform/predicate"
)

const materialCols = `material_id, name, COALESCE(description, ''), category, available_quantity, active`

func scanMaterial(row interface{ Scan(...any) error }) (Material, error) {
	var m Material
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Category, &m.AvailableQuantity, &m.Active)
	return m, err
}

// SQLStock implements Stock on an open MySQL transaction.
type SQLStock struct{ q db.DBTX }

func NewSQLStock(q db.DBTX) *SQLStock { return &SQLStock{q: q} }

// LockMaterial reads the row with FOR UPDATE; the lock is held until commit/rollback.
func (s *SQLStock) LockMaterial(ctx context.Context, materialID int64) (Material, error) {
	q := `SELECT ` + materialCols + ` FROM materials WHERE material_id = ? FOR UPDATE`
	m, err := scanMaterial(s.q.QueryRowContext(ctx, q, materialID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Material{}, &UnknownMaterialError{MaterialID: materialID}
		}
		return Material{}, err
	}
	return m, nil
}

// AddQuantity applies delta; the guard keeps the row non-negative even without a prior lock.
func (s *SQLStock) AddQuantity(ctx context.Context, materialID int64, delta int) error {
	const q = `
	UPDATE materials
	SET available_quantity = available_quantity + ?
	WHERE material_id = ? AND available_quantity + ? >= 0`
	res, err := s.q.ExecContext(ctx, q, delta, materialID, delta)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff != 1 {
		return apierr.ErrInternal(fmt.Sprintf("failed to update available_quantity of material %d", materialID))
	}
	return nil
}

type sqlTx struct {
	*SQLStock
}

func (t *sqlTx) InsertAdjustment(ctx context.Context, a *Adjustment) error {
	const q = `
	INSERT INTO stock_adjustments
	(adjustment_ulid, material_id, delta, resulting_qty, reason, user_id, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := t.q.ExecContext(ctx, q, a.ULID, a.MaterialID, a.Delta, a.ResultingQty, a.Reason, a.UserID, a.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

// Store is the MySQL Repository.
type Store struct {
	db *sql.DB
}

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return db.RunInTx(ctx, s.db, db.ReadCommitted, func(ctx context.Context, q db.DBTX) error {
		return fn(ctx, &sqlTx{SQLStock: NewSQLStock(q)})
	})
}

func (s *Store) GetMaterial(ctx context.Context, materialID int64) (Material, error) {
	q := `SELECT ` + materialCols + ` FROM materials WHERE material_id = ?`
	m, err := scanMaterial(s.db.QueryRowContext(ctx, q, materialID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Material{}, ErrMaterialNotFound
		}
		return Material{}, err
	}
	return m, nil
}

func (s *Store) ListMaterials(ctx context.Context, f MaterialFilter) ([]Material, error) {
	b := predicate.New().
		AndIf(!f.IncludeInactive, func() predicate.P { return predicate.IsTrue("active") }).
		AndIf(f.InStockOnly, func() predicate.P { return predicate.Gt("available_quantity", 0) }).
		AndIf(f.Category != nil, func() predicate.P { return predicate.Eq("category", strings.TrimSpace(*f.Category)) })
	where, args := b.Where()

	rows, err := s.db.QueryContext(ctx, `SELECT `+materialCols+` FROM materials`+where+` ORDER BY name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Material, 0)
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) ListAdjustments(ctx context.Context, materialID int64, limit int) ([]Adjustment, error) {
	const q = `
	SELECT adjustment_id, adjustment_ulid, material_id, delta, resulting_qty, reason, user_id, created_at
	FROM stock_adjustments
	WHERE material_id = ?
	ORDER BY created_at DESC, adjustment_id DESC
	LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, materialID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Adjustment, 0)
	for rows.Next() {
		var a Adjustment
		if err := rows.Scan(&a.ID, &a.ULID, &a.MaterialID, &a.Delta, &a.ResultingQty, &a.Reason, &a.UserID, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

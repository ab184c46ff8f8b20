package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"LABO-backend/internal/loan_mgmt/inventory"
	"LABO-backend/internal/platform/db"
)

type Store struct {
	db *sql.DB
}

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

func (s *Store) ListActiveMaterials(ctx context.Context) ([]inventory.Material, error) {
	const q = `
	SELECT material_id, name, COALESCE(description, ''), category, available_quantity, active
	FROM materials
	WHERE active = TRUE
	ORDER BY name`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]inventory.Material, 0)
	for rows.Next() {
		var m inventory.Material
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.Category, &m.AvailableQuantity, &m.Active); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) MaterialExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM materials WHERE material_id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) PracticeRequirements(ctx context.Context, practiceID int64) ([]Requirement, error) {
	var out []Requirement
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, q db.DBTX) error {
		var one int
		err := q.QueryRowContext(ctx, `SELECT 1 FROM practices WHERE practice_id = ?`, practiceID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPracticeNotFound
		}
		if err != nil {
			return err
		}

		rows, err := q.QueryContext(ctx, `
		SELECT pm.material_id, m.name, pm.required_quantity, m.available_quantity
		FROM practice_materials pm
		JOIN materials m ON m.material_id = pm.material_id
		WHERE pm.practice_id = ?
		ORDER BY m.name`, practiceID)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Requirement, 0)
		for rows.Next() {
			var r Requirement
			if err := rows.Scan(&r.MaterialID, &r.MaterialName, &r.Quantity, &r.Available); err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListEntities(ctx context.Context, kind EntityKind, activeOnly bool) ([]Entity, error) {
	t, ok := kind.table()
	if !ok {
		return nil, ErrUnknownKind
	}
	parent := "NULL"
	if t.parent != "" {
		parent = t.parent
	}
	q := fmt.Sprintf(`SELECT %s, name, active, %s FROM %s`, t.id, parent, t.name)
	if activeOnly {
		q += ` WHERE active = TRUE`
	}
	q += ` ORDER BY name, ` + t.id

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entity, 0)
	for rows.Next() {
		var (
			e  = Entity{Kind: kind}
			pn sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Active, &pn); err != nil {
			return nil, err
		}
		if pn.Valid {
			v := pn.Int64
			e.ParentID = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"LABO-backend/internal/platform/apierr"
	"LABO-backend/internal/platform/db"
)

// Mutation is one catalog change. Apply and Revert each run inside their own
// transaction; Revert undoes exactly what the preceding Apply did.
type Mutation interface {
	Validate() error
	Apply(ctx context.Context, tx db.DBTX) error
	Revert(ctx context.Context, tx db.DBTX) error
}

// Created is implemented by mutations that insert a row.
type Created interface {
	CreatedID() int64
}

// normalizeName trims, collapses inner whitespace and composes to NFC.
func normalizeName(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

func requireName(name string, max int) error {
	if name == "" {
		return apierr.ErrInvalid("name is required")
	}
	if n := len([]rune(name)); n > max {
		return apierr.ErrInvalid(fmt.Sprintf("name longer than %d characters", max))
	}
	return nil
}

// lastID maps constraint violations and returns the new row id.
func lastID(res sql.Result, err error, what string) (int64, error) {
	if err != nil {
		return 0, db.MapConstraint(err, what)
	}
	return res.LastInsertId()
}

func deleteRow(ctx context.Context, tx db.DBTX, t table, id int64) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, t.name, t.id), id)
	return db.MapConstraint(err, t.name)
}

// ---------- create, one type per kind ----------

type CreateCareer struct {
	Name string
	id   int64
}

func (m *CreateCareer) Validate() error {
	m.Name = normalizeName(m.Name)
	return requireName(m.Name, 150)
}

func (m *CreateCareer) Apply(ctx context.Context, tx db.DBTX) error {
	res, err := tx.ExecContext(ctx, `INSERT INTO careers (name) VALUES (?)`, m.Name)
	m.id, err = lastID(res, err, "career")
	return err
}

func (m *CreateCareer) Revert(ctx context.Context, tx db.DBTX) error {
	t, _ := KindCareer.table()
	return deleteRow(ctx, tx, t, m.id)
}

func (m *CreateCareer) CreatedID() int64 { return m.id }

type CreateSubject struct {
	CareerID int64
	Name     string
	id       int64
}

func (m *CreateSubject) Validate() error {
	m.Name = normalizeName(m.Name)
	if m.CareerID <= 0 {
		return apierr.ErrInvalid("career_id required")
	}
	return requireName(m.Name, 150)
}

func (m *CreateSubject) Apply(ctx context.Context, tx db.DBTX) error {
	res, err := tx.ExecContext(ctx, `INSERT INTO subjects (career_id, name) VALUES (?, ?)`, m.CareerID, m.Name)
	m.id, err = lastID(res, err, "subject")
	return err
}

func (m *CreateSubject) Revert(ctx context.Context, tx db.DBTX) error {
	t, _ := KindSubject.table()
	return deleteRow(ctx, tx, t, m.id)
}

func (m *CreateSubject) CreatedID() int64 { return m.id }

type CreateTeacher struct {
	Name string
	id   int64
}

func (m *CreateTeacher) Validate() error {
	m.Name = normalizeName(m.Name)
	return requireName(m.Name, 150)
}

func (m *CreateTeacher) Apply(ctx context.Context, tx db.DBTX) error {
	res, err := tx.ExecContext(ctx, `INSERT INTO teachers (name) VALUES (?)`, m.Name)
	m.id, err = lastID(res, err, "teacher")
	return err
}

func (m *CreateTeacher) Revert(ctx context.Context, tx db.DBTX) error {
	t, _ := KindTeacher.table()
	return deleteRow(ctx, tx, t, m.id)
}

func (m *CreateTeacher) CreatedID() int64 { return m.id }

type CreatePractice struct {
	SubjectID   int64
	Name        string
	Description string
	id          int64
}

func (m *CreatePractice) Validate() error {
	m.Name = normalizeName(m.Name)
	m.Description = strings.TrimSpace(m.Description)
	if m.SubjectID <= 0 {
		return apierr.ErrInvalid("subject_id required")
	}
	return requireName(m.Name, 200)
}

func (m *CreatePractice) Apply(ctx context.Context, tx db.DBTX) error {
	res, err := tx.ExecContext(ctx, `INSERT INTO practices (subject_id, name, description) VALUES (?, ?, ?)`,
		m.SubjectID, m.Name, m.Description)
	m.id, err = lastID(res, err, "practice")
	return err
}

func (m *CreatePractice) Revert(ctx context.Context, tx db.DBTX) error {
	t, _ := KindPractice.table()
	return deleteRow(ctx, tx, t, m.id)
}

func (m *CreatePractice) CreatedID() int64 { return m.id }

// CreateMaterial registers a material with zero stock; stock enters through
// inventory adjustments.
type CreateMaterial struct {
	Name        string
	Description string
	Category    string
	id          int64
}

func (m *CreateMaterial) Validate() error {
	m.Name = normalizeName(m.Name)
	m.Description = strings.TrimSpace(m.Description)
	m.Category = normalizeName(m.Category)
	return requireName(m.Name, 150)
}

func (m *CreateMaterial) Apply(ctx context.Context, tx db.DBTX) error {
	res, err := tx.ExecContext(ctx, `INSERT INTO materials (name, description, category, available_quantity) VALUES (?, ?, ?, 0)`,
		m.Name, m.Description, m.Category)
	m.id, err = lastID(res, err, "material")
	return err
}

func (m *CreateMaterial) Revert(ctx context.Context, tx db.DBTX) error {
	t, _ := KindMaterial.table()
	return deleteRow(ctx, tx, t, m.id)
}

func (m *CreateMaterial) CreatedID() int64 { return m.id }

// ---------- rename / activate / deactivate ----------

// Rename changes the display name of any kind.
type Rename struct {
	Kind     EntityKind
	ID       int64
	Name     string
	previous string
}

func (m *Rename) Validate() error {
	if _, ok := m.Kind.table(); !ok {
		return ErrUnknownKind
	}
	if m.ID <= 0 {
		return apierr.ErrInvalid("id required")
	}
	m.Name = normalizeName(m.Name)
	return requireName(m.Name, 200)
}

func (m *Rename) Apply(ctx context.Context, tx db.DBTX) error {
	t, _ := m.Kind.table()
	q := fmt.Sprintf(`SELECT name FROM %s WHERE %s = ? FOR UPDATE`, t.name, t.id)
	if err := tx.QueryRowContext(ctx, q, m.ID).Scan(&m.previous); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEntityNotFound
		}
		return err
	}
	return setName(ctx, tx, t, m.ID, m.Name)
}

func (m *Rename) Revert(ctx context.Context, tx db.DBTX) error {
	t, _ := m.Kind.table()
	return setName(ctx, tx, t, m.ID, m.previous)
}

func setName(ctx context.Context, tx db.DBTX, t table, id int64, name string) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET name = ? WHERE %s = ?`, t.name, t.id), name, id)
	return db.MapConstraint(err, t.name)
}

// SetActive activates or deactivates any kind. Deactivating a material hides it
// from new loans; its stock is untouched.
type SetActive struct {
	Kind     EntityKind
	ID       int64
	Active   bool
	previous bool
}

func (m *SetActive) Validate() error {
	if _, ok := m.Kind.table(); !ok {
		return ErrUnknownKind
	}
	if m.ID <= 0 {
		return apierr.ErrInvalid("id required")
	}
	return nil
}

func (m *SetActive) Apply(ctx context.Context, tx db.DBTX) error {
	t, _ := m.Kind.table()
	q := fmt.Sprintf(`SELECT active FROM %s WHERE %s = ? FOR UPDATE`, t.name, t.id)
	if err := tx.QueryRowContext(ctx, q, m.ID).Scan(&m.previous); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEntityNotFound
		}
		return err
	}
	return setActive(ctx, tx, t, m.ID, m.Active)
}

func (m *SetActive) Revert(ctx context.Context, tx db.DBTX) error {
	t, _ := m.Kind.table()
	return setActive(ctx, tx, t, m.ID, m.previous)
}

func setActive(ctx context.Context, tx db.DBTX, t table, id int64, active bool) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET active = ? WHERE %s = ?`, t.name, t.id), active, id)
	return err
}

// ---------- boundary decoding ----------

// MutationInput is the wire form of one mutation. Op and Kind select the
// concrete Mutation; the remaining fields are read as that type needs them.
type MutationInput struct {
	Op          string `json:"op"` // create | rename | activate | deactivate
	Kind        string `json:"kind"`
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	CareerID    int64  `json:"career_id,omitempty"`
	SubjectID   int64  `json:"subject_id,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

func (in MutationInput) Decode() (Mutation, error) {
	kind, err := ParseEntityKind(in.Kind)
	if err != nil {
		return nil, apierr.ErrInvalid(fmt.Sprintf("unknown kind %q", in.Kind))
	}
	switch strings.ToLower(in.Op) {
	case "create":
		switch kind {
		case KindCareer:
			return &CreateCareer{Name: in.Name}, nil
		case KindSubject:
			return &CreateSubject{CareerID: in.CareerID, Name: in.Name}, nil
		case KindTeacher:
			return &CreateTeacher{Name: in.Name}, nil
		case KindPractice:
			return &CreatePractice{SubjectID: in.SubjectID, Name: in.Name, Description: in.Description}, nil
		case KindMaterial:
			return &CreateMaterial{Name: in.Name, Description: in.Description, Category: in.Category}, nil
		}
	case "rename":
		return &Rename{Kind: kind, ID: in.ID, Name: in.Name}, nil
	case "activate":
		return &SetActive{Kind: kind, ID: in.ID, Active: true}, nil
	case "deactivate":
		return &SetActive{Kind: kind, ID: in.ID, Active: false}, nil
	}
	return nil, apierr.ErrInvalid(fmt.Sprintf("unknown op %q", in.Op))
}

package loans

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"LABO-backend/internal/loan_mgmt/inventory"
	"LABO-backend/internal/platform/db"
)

type Store struct {
	db *sql.DB
}

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

// RunInTx runs fn at READ COMMITTED; material and loan rows are locked explicitly.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return db.RunInTx(ctx, s.db, db.ReadCommitted, func(ctx context.Context, q db.DBTX) error {
		return fn(ctx, &sqlTx{SQLStock: inventory.NewSQLStock(q), q: q})
	})
}

type sqlTx struct {
	*inventory.SQLStock
	q db.DBTX
}

func (t *sqlTx) InsertLoan(ctx context.Context, l *Loan) error {
	const q = `
	INSERT INTO loans
	(folio, created_at, scheduled_for, career_id, subject_id, teacher_id, practice_id,
	 location, observation, importance, state, visible, user_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := t.q.ExecContext(ctx, q,
		l.Folio,
		l.CreatedAt,
		timeOrNil(l.ScheduledFor),
		l.CareerID,
		l.SubjectID,
		l.TeacherID,
		int64OrNil(l.PracticeID),
		l.Location,
		l.Observation,
		string(l.Importance),
		string(l.State),
		l.Visible,
		l.UserID,
	)
	if err != nil {
		return db.MapConstraint(err, "loan")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = id
	return nil
}

func (t *sqlTx) InsertLine(ctx context.Context, loanID int64, ln Line) error {
	const q = `INSERT INTO loan_lines (loan_id, material_id, quantity) VALUES (?, ?, ?)`
	if _, err := t.q.ExecContext(ctx, q, loanID, ln.MaterialID, ln.Quantity); err != nil {
		return db.MapConstraint(err, "loan line")
	}
	return nil
}

func (t *sqlTx) InsertParticipant(ctx context.Context, loanID int64, p Participant) error {
	const q = `INSERT INTO participants (loan_id, name, identifier, signature) VALUES (?, ?, ?, ?)`
	var sig any
	if len(p.Signature) > 0 {
		sig = p.Signature
	}
	_, err := t.q.ExecContext(ctx, q, loanID, p.Name, p.Identifier, sig)
	return err
}

const loanCols = `
	l.loan_id, l.folio, l.created_at, l.scheduled_for, l.career_id, l.subject_id, l.teacher_id,
	l.practice_id, l.location, COALESCE(l.observation, ''), l.importance, l.state, l.visible,
	l.user_id, l.returned_at, l.returned_by`

type loanRow struct {
	Loan
	scheduledFor sql.NullTime
	practiceID   sql.NullInt64
	returnedAt   sql.NullTime
	returnedBy   sql.NullInt64
	importance   string
	state        string
}

func (r *loanRow) dest() []any {
	return []any{
		&r.ID, &r.Folio, &r.CreatedAt, &r.scheduledFor, &r.CareerID, &r.SubjectID, &r.TeacherID,
		&r.practiceID, &r.Location, &r.Observation, &r.importance, &r.state, &r.Visible,
		&r.UserID, &r.returnedAt, &r.returnedBy,
	}
}

func (r *loanRow) loan() Loan {
	l := r.Loan
	l.ScheduledFor = nullTimeToPtr(r.scheduledFor)
	l.PracticeID = nullInt64ToPtr(r.practiceID)
	l.ReturnedAt = nullTimeToPtr(r.returnedAt)
	l.ReturnedBy = nullInt64ToPtr(r.returnedBy)
	l.Importance = Importance(r.importance)
	l.State = State(r.state)
	return l
}

// LockLoan reads the loan with FOR UPDATE so concurrent returns serialize.
func (t *sqlTx) LockLoan(ctx context.Context, loanID int64) (Loan, error) {
	q := `SELECT ` + loanCols + ` FROM loans l WHERE l.loan_id = ? FOR UPDATE`
	var r loanRow
	if err := t.q.QueryRowContext(ctx, q, loanID).Scan(r.dest()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Loan{}, ErrLoanNotFound
		}
		return Loan{}, err
	}
	return r.loan(), nil
}

func (t *sqlTx) ListLines(ctx context.Context, loanID int64) ([]Line, error) {
	return listLines(ctx, t.q, loanID)
}

func listLines(ctx context.Context, q db.DBTX, loanID int64) ([]Line, error) {
	const stmt = `SELECT material_id, quantity FROM loan_lines WHERE loan_id = ? ORDER BY material_id`
	rows, err := q.QueryContext(ctx, stmt, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Line, 0)
	for rows.Next() {
		var ln Line
		if err := rows.Scan(&ln.MaterialID, &ln.Quantity); err != nil {
			return nil, err
		}
		out = append(out, ln)
	}
	return out, rows.Err()
}

func (t *sqlTx) MarkReturned(ctx context.Context, loanID int64, at time.Time, by int64) error {
	const q = `
	UPDATE loans
	SET state = 'returned', returned_at = ?, returned_by = ?
	WHERE loan_id = ? AND state = 'active'`
	res, err := t.q.ExecContext(ctx, q, at, by, loanID)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff != 1 {
		return ErrAlreadyReturned
	}
	return nil
}

func (t *sqlTx) HideCreatedBetween(ctx context.Context, start, end time.Time) (int64, error) {
	const q = `
	UPDATE loans
	SET visible = FALSE
	WHERE created_at >= ? AND created_at < ? AND visible = TRUE`
	res, err := t.q.ExecContext(ctx, q, start, end)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetDetail reads header, lines and participants from one read-only snapshot.
func (s *Store) GetDetail(ctx context.Context, loanID int64) (Detail, error) {
	var d Detail
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, q db.DBTX) error {
		head := `SELECT ` + loanCols + `,
			COALESCE(c.name, ''), COALESCE(sj.name, ''), COALESCE(t.name, ''), COALESCE(p.name, '')
		FROM loans l
		LEFT JOIN careers c ON c.career_id = l.career_id
		LEFT JOIN subjects sj ON sj.subject_id = l.subject_id
		LEFT JOIN teachers t ON t.teacher_id = l.teacher_id
		LEFT JOIN practices p ON p.practice_id = l.practice_id
		WHERE l.loan_id = ?`
		var r loanRow
		dest := append(r.dest(), &d.CareerName, &d.SubjectName, &d.TeacherName, &d.PracticeName)
		if err := q.QueryRowContext(ctx, head, loanID).Scan(dest...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrLoanNotFound
			}
			return err
		}
		d.Loan = r.loan()

		lines, err := q.QueryContext(ctx, `
		SELECT ll.material_id, ll.quantity, m.name
		FROM loan_lines ll
		JOIN materials m ON m.material_id = ll.material_id
		WHERE ll.loan_id = ?
		ORDER BY ll.material_id`, loanID)
		if err != nil {
			return err
		}
		defer lines.Close()
		d.Lines = make([]DetailLine, 0)
		for lines.Next() {
			var ln DetailLine
			if err := lines.Scan(&ln.MaterialID, &ln.Quantity, &ln.MaterialName); err != nil {
				return err
			}
			d.Lines = append(d.Lines, ln)
		}
		if err := lines.Err(); err != nil {
			return err
		}

		ps, err := q.QueryContext(ctx, `
		SELECT name, identifier, signature
		FROM participants
		WHERE loan_id = ?
		ORDER BY participant_id`, loanID)
		if err != nil {
			return err
		}
		defer ps.Close()
		d.Participants = make([]Participant, 0)
		for ps.Next() {
			var p Participant
			if err := ps.Scan(&p.Name, &p.Identifier, &p.Signature); err != nil {
				return err
			}
			d.Participants = append(d.Participants, p)
		}
		return ps.Err()
	})
	if err != nil {
		return Detail{}, err
	}
	return d, nil
}

// ---------- helpers ----------

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func int64OrNil(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

func nullInt64ToPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

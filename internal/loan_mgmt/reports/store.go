package reports

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"LABO-backend/internal/loan_mgmt/loans"
	"LABO-backend/internal/platform/db"
	"LABO-backend/internal/platform/predicate"
)

type Store struct {
	db *sql.DB
}

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

// where renders the filter for the loans table aliased as l.
func where(f Filter, includeHidden bool, extra ...predicate.P) (string, []any) {
	start, end := f.Bounds()
	b := predicate.New().
		AndIf(!includeHidden, func() predicate.P { return predicate.IsTrue("l.visible") }).
		AndIf(start != nil, func() predicate.P { return predicate.Gte("l.created_at", *start) }).
		AndIf(end != nil, func() predicate.P { return predicate.Lt("l.created_at", *end) }).
		AndIf(f.CareerID != nil, func() predicate.P { return predicate.Eq("l.career_id", *f.CareerID) }).
		AndIf(f.State != nil, func() predicate.P { return predicate.Eq("l.state", string(*f.State)) })
	for _, p := range extra {
		b.And(p)
	}
	return b.Where()
}

const summaryCols = `
	l.loan_id, l.folio, l.created_at, l.scheduled_for,
	l.career_id, COALESCE(c.name, ''), l.subject_id, COALESCE(sj.name, ''),
	l.teacher_id, COALESCE(t.name, ''), l.practice_id, COALESCE(p.name, ''),
	l.location, COALESCE(l.observation, ''), l.importance, l.state, l.visible,
	l.user_id, COALESCE(u.username, ''),
	(SELECT COUNT(*) FROM loan_lines ll WHERE ll.loan_id = l.loan_id),
	(SELECT COALESCE(SUM(ll.quantity), 0) FROM loan_lines ll WHERE ll.loan_id = l.loan_id)`

const summaryJoins = `
	FROM loans l
	LEFT JOIN careers c ON c.career_id = l.career_id
	LEFT JOIN subjects sj ON sj.subject_id = l.subject_id
	LEFT JOIN teachers t ON t.teacher_id = l.teacher_id
	LEFT JOIN practices p ON p.practice_id = l.practice_id
	LEFT JOIN users u ON u.user_id = l.user_id`

func scanSummary(rows *sql.Rows) (LoanSummary, error) {
	var (
		s          LoanSummary
		scheduled  sql.NullTime
		practiceID sql.NullInt64
		importance string
		state      string
	)
	err := rows.Scan(
		&s.ID, &s.Folio, &s.CreatedAt, &scheduled,
		&s.CareerID, &s.CareerName, &s.SubjectID, &s.SubjectName,
		&s.TeacherID, &s.TeacherName, &practiceID, &s.PracticeName,
		&s.Location, &s.Observation, &importance, &state, &s.Visible,
		&s.UserID, &s.Username, &s.LineCount, &s.UnitCount,
	)
	if err != nil {
		return LoanSummary{}, err
	}
	if scheduled.Valid {
		t := scheduled.Time
		s.ScheduledFor = &t
	}
	if practiceID.Valid {
		v := practiceID.Int64
		s.PracticeID = &v
	}
	s.Importance = loans.Importance(importance)
	s.State = loans.State(state)
	return s, nil
}

func (s *Store) ListLoans(ctx context.Context, f Filter, p Page) ([]LoanSummary, int, error) {
	var (
		items []LoanSummary
		total int
	)
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, q db.DBTX) error {
		w, args := where(f, f.IncludeHidden)

		if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM loans l`+w, args...).Scan(&total); err != nil {
			return err
		}

		order := "DESC"
		if p.Order == "asc" {
			order = "ASC"
		}
		stmt := fmt.Sprintf(`SELECT %s %s%s ORDER BY l.created_at %s, l.loan_id %s LIMIT ? OFFSET ?`,
			summaryCols, summaryJoins, w, order, order)
		rows, err := q.QueryContext(ctx, stmt, append(args, p.Limit, p.Offset)...)
		if err != nil {
			return err
		}
		defer rows.Close()

		items = make([]LoanSummary, 0)
		for rows.Next() {
			sm, err := scanSummary(rows)
			if err != nil {
				return err
			}
			items = append(items, sm)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ParticipantsPerSubject counts distinct participants, keyed by identifier or by
// name when no identifier was given.
func (s *Store) ParticipantsPerSubject(ctx context.Context, f Filter) ([]SubjectParticipants, error) {
	w, args := where(f, false)
	stmt := `
	SELECT l.subject_id, COALESCE(sj.name, ''),
	       COUNT(DISTINCT COALESCE(NULLIF(pt.identifier, ''), pt.name))
	FROM loans l
	JOIN participants pt ON pt.loan_id = l.loan_id
	LEFT JOIN subjects sj ON sj.subject_id = l.subject_id` + w + `
	GROUP BY l.subject_id, sj.name
	ORDER BY 3 DESC, 2 ASC`
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SubjectParticipants, 0)
	for rows.Next() {
		var r SubjectParticipants
		if err := rows.Scan(&r.SubjectID, &r.SubjectName, &r.Participants); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) DistinctSubjects(ctx context.Context, f Filter) (int, error) {
	w, args := where(f, false)
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT l.subject_id) FROM loans l`+w, args...).Scan(&n)
	return n, err
}

func (s *Store) MaterialUsage(ctx context.Context, f Filter) ([]MaterialUsage, error) {
	w, args := where(f, false)
	stmt := `
	SELECT m.material_id, m.name, COUNT(*), COALESCE(SUM(ll.quantity), 0)
	FROM loans l
	JOIN loan_lines ll ON ll.loan_id = l.loan_id
	JOIN materials m ON m.material_id = ll.material_id` + w + `
	GROUP BY m.material_id, m.name
	ORDER BY 3 DESC, 2 ASC`
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]MaterialUsage, 0)
	for rows.Next() {
		var u MaterialUsage
		if err := rows.Scan(&u.MaterialID, &u.MaterialName, &u.TimesUsed, &u.TotalUnits); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Observations lists loans with a non-blank observation, urgent first, newest first.
func (s *Store) Observations(ctx context.Context, f Filter, importance *loans.Importance) ([]Observation, error) {
	extra := []predicate.P{predicate.NotBlank("l.observation")}
	if importance != nil {
		extra = append(extra, predicate.Eq("l.importance", string(*importance)))
	}
	w, args := where(f, false, extra...)
	stmt := `
	SELECT l.loan_id, l.folio, l.created_at, COALESCE(sj.name, ''), COALESCE(t.name, ''),
	       l.location, l.observation, l.importance, l.state
	FROM loans l
	LEFT JOIN subjects sj ON sj.subject_id = l.subject_id
	LEFT JOIN teachers t ON t.teacher_id = l.teacher_id` + w + `
	ORDER BY (l.importance = 'urgent') DESC, l.created_at DESC, l.loan_id DESC`
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Observation, 0)
	for rows.Next() {
		var (
			o          Observation
			imp, state string
		)
		if err := rows.Scan(&o.LoanID, &o.Folio, &o.CreatedAt, &o.SubjectName, &o.TeacherName,
			&o.Location, &o.Observation, &imp, &state); err != nil {
			return nil, err
		}
		o.Importance = loans.Importance(imp)
		o.State = loans.State(state)
		out = append(out, o)
	}
	return out, rows.Err()
}

// Dashboard counts visible loans, except ActiveLoans which counts every loan
// still holding stock.
func (s *Store) Dashboard(ctx context.Context, dayStart, dayEnd time.Time, recent int) (Dashboard, error) {
	var d Dashboard
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, q db.DBTX) error {
		const counts = `
		SELECT
			COALESCE(SUM(visible = TRUE), 0),
			COALESCE(SUM(state = 'active'), 0),
			COALESCE(SUM(visible = TRUE AND created_at >= ? AND created_at < ?), 0)
		FROM loans`
		if err := q.QueryRowContext(ctx, counts, dayStart, dayEnd).Scan(&d.TotalLoans, &d.ActiveLoans, &d.LoansToday); err != nil {
			return err
		}
		const inStock = `SELECT COUNT(*) FROM materials WHERE active = TRUE AND available_quantity > 0`
		if err := q.QueryRowContext(ctx, inStock).Scan(&d.MaterialsInStock); err != nil {
			return err
		}

		rows, err := q.QueryContext(ctx,
			`SELECT `+summaryCols+summaryJoins+` WHERE l.visible = TRUE ORDER BY l.created_at DESC, l.loan_id DESC LIMIT ?`,
			recent)
		if err != nil {
			return err
		}
		defer rows.Close()
		d.Recent = make([]LoanSummary, 0, recent)
		for rows.Next() {
			sm, err := scanSummary(rows)
			if err != nil {
				return err
			}
			d.Recent = append(d.Recent, sm)
		}
		return rows.Err()
	})
	if err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

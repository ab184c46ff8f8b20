package reports

import (
	"context"
	"time"

	"LABO-backend/internal/loan_mgmt/loans"
)

// Filter is the conjunctive filter set of the query service. Nil fields impose
// no constraint. From/To are calendar dates (midnight in the ledger zone).
type Filter struct {
	From          *time.Time
	To            *time.Time
	CareerID      *int64
	State         *loans.State
	IncludeHidden bool // honoured by ListLoans only
}

// Bounds returns the UTC instants for created_at >= start and created_at < end.
func (f Filter) Bounds() (start, end *time.Time) {
	if f.From != nil {
		s := f.From.UTC()
		start = &s
	}
	if f.To != nil {
		e := f.To.AddDate(0, 0, 1).UTC()
		end = &e
	}
	return start, end
}

// Match reports whether l passes the filter. Hidden loans pass only when
// includeHidden is true.
func (f Filter) Match(l loans.Loan, includeHidden bool) bool {
	if !l.Visible && !includeHidden {
		return false
	}
	start, end := f.Bounds()
	if start != nil && l.CreatedAt.Before(*start) {
		return false
	}
	if end != nil && !l.CreatedAt.Before(*end) {
		return false
	}
	if f.CareerID != nil && l.CareerID != *f.CareerID {
		return false
	}
	if f.State != nil && l.State != *f.State {
		return false
	}
	return true
}

type Page struct {
	Limit  int
	Offset int
	Order  string // asc | desc on created_at
}

type LoanSummary struct {
	ID           int64
	Folio        string
	CreatedAt    time.Time
	ScheduledFor *time.Time
	CareerID     int64
	CareerName   string
	SubjectID    int64
	SubjectName  string
	TeacherID    int64
	TeacherName  string
	PracticeID   *int64
	PracticeName string
	Location     string
	Observation  string
	Importance   loans.Importance
	State        loans.State
	Visible      bool
	UserID       int64
	Username     string
	LineCount    int
	UnitCount    int
}

type SubjectParticipants struct {
	SubjectID    int64
	SubjectName  string
	Participants int
}

type MaterialUsage struct {
	MaterialID   int64
	MaterialName string
	TimesUsed    int
	TotalUnits   int
}

type Observation struct {
	LoanID      int64
	Folio       string
	CreatedAt   time.Time
	SubjectName string
	TeacherName string
	Location    string
	Observation string
	Importance  loans.Importance
	State       loans.State
}

type Dashboard struct {
	TotalLoans       int
	ActiveLoans      int
	LoansToday       int
	MaterialsInStock int
	Recent           []LoanSummary
}

// Repository is read-only. Every method except ListLoans excludes hidden loans
// regardless of Filter.IncludeHidden.
type Repository interface {
	ListLoans(ctx context.Context, f Filter, p Page) ([]LoanSummary, int, error)
	ParticipantsPerSubject(ctx context.Context, f Filter) ([]SubjectParticipants, error)
	DistinctSubjects(ctx context.Context, f Filter) (int, error)
	MaterialUsage(ctx context.Context, f Filter) ([]MaterialUsage, error)
	Observations(ctx context.Context, f Filter, importance *loans.Importance) ([]Observation, error)
	Dashboard(ctx context.Context, dayStart, dayEnd time.Time, recent int) (Dashboard, error)
}

package loans

import (
	"context"
	"time"

	"LABO-backend/internal/loan_mgmt/inventory"
)

type State string

const (
	StateActive   State = "active"
	StateReturned State = "returned"
)

func (s State) Valid() bool { return s == StateActive || s == StateReturned }

type Importance string

const (
	ImportanceNormal Importance = "normal"
	ImportanceUrgent Importance = "urgent"
)

func (i Importance) Valid() bool { return i == ImportanceNormal || i == ImportanceUrgent }

// Loan is the aggregate root. Catalog references are informational.
type Loan struct {
	ID           int64
	Folio        string
	CreatedAt    time.Time
	ScheduledFor *time.Time
	CareerID     int64
	SubjectID    int64
	TeacherID    int64
	PracticeID   *int64
	Location     string
	Observation  string
	Importance   Importance
	State        State
	Visible      bool
	UserID       int64
	ReturnedAt   *time.Time
	ReturnedBy   *int64
}

// Line is one reservation of a loan; Quantity > 0.
type Line struct {
	MaterialID int64
	Quantity   int
}

// Participant is descriptive only. Signature is stored as given.
type Participant struct {
	Name       string
	Identifier string
	Signature  []byte
}

type DetailLine struct {
	Line
	MaterialName string
}

type Detail struct {
	Loan
	CareerName   string
	SubjectName  string
	TeacherName  string
	PracticeName string
	Lines        []DetailLine
	Participants []Participant
}

// Tx is the unit of work every engine operation runs in. Stock methods act on
// the same transaction as the loan writes.
type Tx interface {
	inventory.Stock
	InsertLoan(ctx context.Context, l *Loan) error
	InsertLine(ctx context.Context, loanID int64, ln Line) error
	InsertParticipant(ctx context.Context, loanID int64, p Participant) error
	// LockLoan returns ErrLoanNotFound for unknown ids.
	LockLoan(ctx context.Context, loanID int64) (Loan, error)
	ListLines(ctx context.Context, loanID int64) ([]Line, error)
	MarkReturned(ctx context.Context, loanID int64, at time.Time, by int64) error
	// HideCreatedBetween hides visible loans with start <= created_at < end.
	HideCreatedBetween(ctx context.Context, start, end time.Time) (int64, error)
}

type Repository interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	GetDetail(ctx context.Context, loanID int64) (Detail, error)
}

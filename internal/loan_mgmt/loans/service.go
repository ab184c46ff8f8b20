package loans

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"LABO-backend/internal/loan_mgmt/inventory"
	"LABO-backend/internal/platform/apierr"
	"LABO-backend/internal/platform/auth"
	"LABO-backend/internal/platform/ids"
)

// Service is the loan transaction engine. Every mutation runs in exactly one
// repository transaction; an error from any step leaves no trace.
type Service struct {
	repo   Repository
	log    *zap.Logger
	loc    *time.Location
	clock  ids.Clock
	id     ids.IDGen
	tracer trace.Tracer
}

type Option func(*Service)

func WithClock(c ids.Clock) Option { return func(s *Service) { s.clock = c } }
func WithIDGen(g ids.IDGen) Option { return func(s *Service) { s.id = g } }

func NewService(repo Repository, log *zap.Logger, loc *time.Location, opts ...Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{
		repo:   repo,
		log:    log,
		loc:    loc,
		clock:  ids.RealClock{},
		id:     ids.NewULIDGen(),
		tracer: otel.Tracer("LABO-backend/loans"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// POST /loans
func (s *Service) CreateLoan(ctx context.Context, actor auth.Actor, in CreateLoanRequest) (res LoanCreatedResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "loans.create", trace.WithAttributes(
		attribute.Int64("user_id", actor.UserID),
		attribute.Int("lines", len(in.Lines)),
	))
	defer func() { endSpan(span, err) }()

	lines, err := normalizeLines(in.Lines)
	if err != nil {
		return LoanCreatedResponse{}, err
	}
	loan, err := s.buildLoan(actor, in)
	if err != nil {
		return LoanCreatedResponse{}, err
	}
	participants, err := buildParticipants(in.Participants)
	if err != nil {
		return LoanCreatedResponse{}, err
	}

	err = s.repo.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.InsertLoan(ctx, &loan); err != nil {
			return err
		}
		// ascending material id: concurrent loans lock rows in the same order
		for _, ln := range lines {
			if err := inventory.Reserve(ctx, tx, ln.MaterialID, ln.Quantity); err != nil {
				return err
			}
			if err := tx.InsertLine(ctx, loan.ID, ln); err != nil {
				return err
			}
		}
		for _, p := range participants {
			if err := tx.InsertParticipant(ctx, loan.ID, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return LoanCreatedResponse{}, err
	}

	span.SetAttributes(attribute.Int64("loan_id", loan.ID))
	s.log.Info("loan created",
		zap.Int64("loan_id", loan.ID),
		zap.String("folio", loan.Folio),
		zap.Int64("user_id", actor.UserID),
		zap.Int("lines", len(lines)),
		zap.Int("participants", len(participants)),
	)
	return LoanCreatedResponse{
		LoanID:    loan.ID,
		Folio:     loan.Folio,
		CreatedAt: loan.CreatedAt,
		State:     loan.State,
		Lines:     toLineInputs(lines),
	}, nil
}

// POST /loans/:loan_id/return
func (s *Service) ReturnLoan(ctx context.Context, actor auth.Actor, loanID int64) (res ReturnResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "loans.return", trace.WithAttributes(
		attribute.Int64("user_id", actor.UserID),
		attribute.Int64("loan_id", loanID),
	))
	defer func() { endSpan(span, err) }()

	if loanID <= 0 {
		return ReturnResponse{}, ErrLoanNotFound
	}

	now := s.clock.Now()
	var released []Line
	err = s.repo.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		loan, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if loan.State == StateReturned {
			return ErrAlreadyReturned
		}
		lines, err := tx.ListLines(ctx, loanID)
		if err != nil {
			return err
		}
		sort.Slice(lines, func(i, j int) bool { return lines[i].MaterialID < lines[j].MaterialID })
		for _, ln := range lines {
			if err := inventory.Release(ctx, tx, ln.MaterialID, ln.Quantity); err != nil {
				return err
			}
		}
		if err := tx.MarkReturned(ctx, loanID, now, actor.UserID); err != nil {
			return err
		}
		released = lines
		return nil
	})
	if err != nil {
		return ReturnResponse{}, err
	}

	s.log.Info("loan returned",
		zap.Int64("loan_id", loanID),
		zap.Int64("user_id", actor.UserID),
		zap.Int("lines", len(released)),
	)
	return ReturnResponse{
		LoanID:     loanID,
		State:      StateReturned,
		ReturnedAt: now,
		Released:   toLineInputs(released),
	}, nil
}

// POST /admin/loans/hide
// BulkHide only flips visibility; reserved stock of active loans stays reserved.
func (s *Service) BulkHide(ctx context.Context, actor auth.Actor, r DateRange) (res HideResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "loans.bulk_hide", trace.WithAttributes(
		attribute.Int64("user_id", actor.UserID),
		attribute.String("from", r.From),
		attribute.String("to", r.To),
	))
	defer func() { endSpan(span, err) }()

	start, end, err := r.Bounds(s.loc)
	if err != nil {
		return HideResponse{}, err
	}

	var affected int64
	err = s.repo.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		n, err := tx.HideCreatedBetween(ctx, start, end)
		if err != nil {
			return err
		}
		affected = n
		return nil
	})
	if err != nil {
		return HideResponse{}, err
	}

	span.SetAttributes(attribute.Int64("affected", affected))
	s.log.Info("loans hidden",
		zap.String("from", r.From),
		zap.String("to", r.To),
		zap.Int64("affected", affected),
		zap.Int64("user_id", actor.UserID),
	)
	return HideResponse{From: r.From, To: r.To, Affected: affected}, nil
}

// GET /loans/:loan_id
func (s *Service) LoanDetail(ctx context.Context, loanID int64) (res LoanDetailResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "loans.detail", trace.WithAttributes(attribute.Int64("loan_id", loanID)))
	defer func() { endSpan(span, err) }()

	if loanID <= 0 {
		return LoanDetailResponse{}, ErrLoanNotFound
	}
	d, err := s.repo.GetDetail(ctx, loanID)
	if err != nil {
		return LoanDetailResponse{}, err
	}
	return toDetailResponse(d), nil
}

// ---------- validation ----------

// normalizeLines rejects empty sets and non-positive quantities, merges repeated
// materials and sorts by material id.
func normalizeLines(in []LineInput) ([]Line, error) {
	if len(in) == 0 {
		return nil, ErrEmptyLineSet
	}
	sum := make(map[int64]int, len(in))
	for _, ln := range in {
		if ln.MaterialID <= 0 {
			return nil, &inventory.UnknownMaterialError{MaterialID: ln.MaterialID}
		}
		if ln.Quantity <= 0 {
			return nil, &inventory.InvalidQuantityError{MaterialID: ln.MaterialID, Quantity: ln.Quantity}
		}
		sum[ln.MaterialID] += ln.Quantity
	}
	out := make([]Line, 0, len(sum))
	for id, qty := range sum {
		out = append(out, Line{MaterialID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MaterialID < out[j].MaterialID })
	return out, nil
}

func (s *Service) buildLoan(actor auth.Actor, in CreateLoanRequest) (Loan, error) {
	if actor.UserID <= 0 {
		return Loan{}, apierr.ErrInvalid("user_id required")
	}
	if in.CareerID <= 0 || in.SubjectID <= 0 || in.TeacherID <= 0 {
		return Loan{}, apierr.ErrInvalid("career_id, subject_id and teacher_id required")
	}
	if in.PracticeID != nil && *in.PracticeID <= 0 {
		return Loan{}, apierr.ErrInvalid("practice_id must be > 0")
	}
	imp := ImportanceNormal
	if v := strings.TrimSpace(in.Importance); v != "" {
		imp = Importance(strings.ToLower(v))
		if !imp.Valid() {
			return Loan{}, apierr.ErrInvalid("importance must be normal or urgent")
		}
	}

	now := s.clock.Now()
	l := Loan{
		Folio:       s.id.NewULID(now),
		CreatedAt:   now,
		CareerID:    in.CareerID,
		SubjectID:   in.SubjectID,
		TeacherID:   in.TeacherID,
		PracticeID:  in.PracticeID,
		Location:    strings.TrimSpace(in.Location),
		Observation: strings.TrimSpace(in.Observation),
		Importance:  imp,
		State:       StateActive,
		Visible:     true,
		UserID:      actor.UserID,
	}
	if in.ScheduledFor != nil {
		t := in.ScheduledFor.UTC()
		l.ScheduledFor = &t
	}
	return l, nil
}

func buildParticipants(in []ParticipantInput) ([]Participant, error) {
	out := make([]Participant, 0, len(in))
	for _, p := range in {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, apierr.ErrInvalid("participant name required")
		}
		out = append(out, Participant{
			Name:       name,
			Identifier: strings.TrimSpace(p.Identifier),
			Signature:  p.Signature,
		})
	}
	return out, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

package reports

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"LABO-backend/internal/loan_mgmt/loans"
	"LABO-backend/internal/platform/auth"
	"LABO-backend/internal/platform/ids"
)

// Service answers read-only questions over the loan history. It never writes.
type Service struct {
	repo   Repository
	log    *zap.Logger
	loc    *time.Location
	clock  ids.Clock
	tracer trace.Tracer
}

func NewService(repo Repository, log *zap.Logger, loc *time.Location, clock ids.Clock) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = ids.RealClock{}
	}
	return &Service{
		repo:   repo,
		log:    log,
		loc:    loc,
		clock:  clock,
		tracer: otel.Tracer("LABO-backend/reports"),
	}
}

// Location is the zone report dates are interpreted in.
func (s *Service) Location() *time.Location { return s.loc }

// empty reports a reversed date range, which matches nothing.
func empty(f Filter) bool {
	return f.From != nil && f.To != nil && f.To.Before(*f.From)
}

func normalizePage(p Page) Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Order != "asc" {
		p.Order = "desc"
	}
	return p
}

// GET /reports/loans
// Only admins may see hidden loans.
func (s *Service) ListLoans(ctx context.Context, actor auth.Actor, f Filter, p Page) (res LoanPageResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "reports.list_loans")
	defer func() { endSpan(span, err) }()

	if !actor.IsAdmin() {
		f.IncludeHidden = false
	}
	p = normalizePage(p)
	if empty(f) {
		return LoanPageResponse{Items: []LoanSummaryResponse{}}, nil
	}

	items, total, err := s.repo.ListLoans(ctx, f, p)
	if err != nil {
		return LoanPageResponse{}, err
	}
	res = LoanPageResponse{Items: toSummaryResponses(items), Total: total}
	if next := p.Offset + len(items); len(items) > 0 && next < total {
		res.NextOffset = &next
	}
	span.SetAttributes(attribute.Int("total", total))
	return res, nil
}

// GET /reports/subjects/participants
func (s *Service) ParticipantsPerSubject(ctx context.Context, f Filter) ([]SubjectParticipantsResponse, error) {
	out := make([]SubjectParticipantsResponse, 0)
	if empty(f) {
		return out, nil
	}
	rows, err := s.repo.ParticipantsPerSubject(ctx, f)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out = append(out, SubjectParticipantsResponse{
			SubjectID:    r.SubjectID,
			SubjectName:  r.SubjectName,
			Participants: r.Participants,
		})
	}
	return out, nil
}

// GET /reports/subjects/count
func (s *Service) CountSubjects(ctx context.Context, f Filter) (SubjectCountResponse, error) {
	if empty(f) {
		return SubjectCountResponse{}, nil
	}
	n, err := s.repo.DistinctSubjects(ctx, f)
	if err != nil {
		return SubjectCountResponse{}, err
	}
	return SubjectCountResponse{Subjects: n}, nil
}

// GET /reports/materials/usage
func (s *Service) MaterialUsage(ctx context.Context, f Filter) ([]MaterialUsageResponse, error) {
	out := make([]MaterialUsageResponse, 0)
	if empty(f) {
		return out, nil
	}
	rows, err := s.repo.MaterialUsage(ctx, f)
	if err != nil {
		return nil, err
	}
	for _, u := range rows {
		out = append(out, MaterialUsageResponse(u))
	}
	return out, nil
}

// GET /reports/observations
func (s *Service) Observations(ctx context.Context, f Filter, importance *loans.Importance) ([]ObservationResponse, error) {
	out := make([]ObservationResponse, 0)
	if empty(f) {
		return out, nil
	}
	rows, err := s.repo.Observations(ctx, f, importance)
	if err != nil {
		return nil, err
	}
	for _, o := range rows {
		out = append(out, ObservationResponse(o))
	}
	return out, nil
}

// GET /reports/dashboard
// "Today" is the current calendar day in the ledger zone.
func (s *Service) Dashboard(ctx context.Context) (res DashboardResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "reports.dashboard")
	defer func() { endSpan(span, err) }()

	now := s.clock.Now().In(s.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	d, err := s.repo.Dashboard(ctx, dayStart.UTC(), dayEnd.UTC(), RecentLoans)
	if err != nil {
		return DashboardResponse{}, err
	}
	return DashboardResponse{
		TotalLoans:       d.TotalLoans,
		ActiveLoans:      d.ActiveLoans,
		LoansToday:       d.LoansToday,
		MaterialsInStock: d.MaterialsInStock,
		Recent:           toSummaryResponses(d.Recent),
	}, nil
}

// GET /reports/loans.csv
// ExportLoans streams every loan matching f, page by page, oldest first.
func (s *Service) ExportLoans(ctx context.Context, actor auth.Actor, f Filter, enc Encoding, dst io.Writer) (n int, err error) {
	ctx, span := s.tracer.Start(ctx, "reports.export_loans", trace.WithAttributes(attribute.String("encoding", string(enc))))
	defer func() { endSpan(span, err) }()

	if !actor.IsAdmin() {
		f.IncludeHidden = false
	}
	ex, err := newCSVExporter(dst, enc, s.loc)
	if err != nil {
		return 0, err
	}
	if !empty(f) {
		p := Page{Limit: MaxLimit, Order: "asc"}
		for {
			items, total, err := s.repo.ListLoans(ctx, f, p)
			if err != nil {
				return n, err
			}
			if err := ex.write(items); err != nil {
				return n, err
			}
			n += len(items)
			p.Offset += len(items)
			if len(items) == 0 || p.Offset >= total {
				break
			}
		}
	}
	if err := ex.close(); err != nil {
		return n, err
	}
	span.SetAttributes(attribute.Int("rows", n))
	s.log.Info("loans exported", zap.Int("rows", n), zap.String("encoding", string(enc)), zap.Int64("user_id", actor.UserID))
	return n, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

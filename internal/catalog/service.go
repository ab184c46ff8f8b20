package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"LABO-backend/internal/platform/apierr"
	"LABO-backend/internal/platform/auth"
	"LABO-backend/internal/platform/db"
)

const MaxBatch = 100

var ErrReadOnly = apierr.New(apierr.CodeUnavailable, "READ_ONLY_CATALOG", "catalog mutations need the mysql driver")

type Service struct {
	reader Reader
	db     *sql.DB // nil when the catalog is read-only
	log    *zap.Logger
}

func NewService(reader Reader, conn *sql.DB, log *zap.Logger) *Service {
	return &Service{reader: reader, db: conn, log: log}
}

// ---------- reads ----------

func (s *Service) ListEntities(ctx context.Context, kind EntityKind, activeOnly bool) ([]EntityResponse, error) {
	rows, err := s.reader.ListEntities(ctx, kind, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]EntityResponse, 0, len(rows))
	for _, e := range rows {
		out = append(out, toEntityResponse(e))
	}
	return out, nil
}

func (s *Service) ListActiveMaterials(ctx context.Context) ([]ActiveMaterialResponse, error) {
	rows, err := s.reader.ListActiveMaterials(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ActiveMaterialResponse, 0, len(rows))
	for _, m := range rows {
		out = append(out, ActiveMaterialResponse{
			MaterialID:        m.ID,
			Name:              m.Name,
			Category:          m.Category,
			AvailableQuantity: m.AvailableQuantity,
		})
	}
	return out, nil
}

func (s *Service) MaterialExists(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	return s.reader.MaterialExists(ctx, id)
}

func (s *Service) PracticeRequirements(ctx context.Context, practiceID int64) ([]RequirementResponse, error) {
	if practiceID <= 0 {
		return nil, ErrPracticeNotFound
	}
	rows, err := s.reader.PracticeRequirements(ctx, practiceID)
	if err != nil {
		return nil, err
	}
	out := make([]RequirementResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, RequirementResponse{
			MaterialID:   r.MaterialID,
			MaterialName: r.MaterialName,
			Quantity:     r.Quantity,
			Available:    r.Available,
			Sufficient:   r.Available >= r.Quantity,
		})
	}
	return out, nil
}

// ---------- mutations ----------

// ApplyBatch validates every mutation, then applies them in order, one
// transaction each. When one fails, the ones already applied are reverted in
// reverse order and the original error is returned.
func (s *Service) ApplyBatch(ctx context.Context, actor auth.Actor, muts []Mutation) (BatchResponse, error) {
	if s.db == nil {
		return BatchResponse{}, ErrReadOnly
	}
	if len(muts) == 0 {
		return BatchResponse{}, apierr.ErrInvalid("no mutations")
	}
	if len(muts) > MaxBatch {
		return BatchResponse{}, apierr.ErrInvalid(fmt.Sprintf("at most %d mutations per batch", MaxBatch))
	}
	for i, m := range muts {
		if err := m.Validate(); err != nil {
			return BatchResponse{}, &BatchError{Index: i, Err: err}
		}
	}

	applied := make([]Mutation, 0, len(muts))
	for i, m := range muts {
		err := db.RunInTx(ctx, s.db, db.ReadCommitted, m.Apply)
		if err != nil {
			s.compensate(ctx, applied)
			s.log.Warn("catalog batch failed",
				zap.Int("index", i),
				zap.Int("reverted", len(applied)),
				zap.Int64("user_id", actor.UserID),
				zap.Error(err),
			)
			return BatchResponse{}, &BatchError{Index: i, Err: err}
		}
		applied = append(applied, m)
	}

	res := BatchResponse{Applied: len(applied), Created: make([]int64, 0)}
	for _, m := range applied {
		if c, ok := m.(Created); ok {
			res.Created = append(res.Created, c.CreatedID())
		}
	}
	s.log.Info("catalog batch applied", zap.Int("mutations", len(applied)), zap.Int64("user_id", actor.UserID))
	return res, nil
}

// compensate reverts applied mutations newest first. A failed revert is logged
// and the rest are still attempted.
func (s *Service) compensate(ctx context.Context, applied []Mutation) {
	// the request context may already be cancelled
	ctx = context.WithoutCancel(ctx)
	for i := len(applied) - 1; i >= 0; i-- {
		if err := db.RunInTx(ctx, s.db, db.ReadCommitted, applied[i].Revert); err != nil {
			s.log.Error("catalog revert failed", zap.Int("index", i), zap.Error(err))
		}
	}
}

// BatchError carries the position of the failing mutation and keeps the
// underlying error's code.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string { return fmt.Sprintf("mutation %d: %v", e.Index, e.Err) }
func (e *BatchError) Unwrap() error { return e.Err }
func (e *BatchError) ErrorCode() apierr.Code {
	return apierr.CodeOf(e.Err)
}
func (e *BatchError) ErrorDetails() map[string]any {
	return map[string]any{"index": e.Index}
}

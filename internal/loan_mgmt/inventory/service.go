package inventory

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"LABO-backend/internal/platform/apierr"
	"LABO-backend/internal/platform/auth"
	"LABO-backend/internal/platform/ids"
)

type Service struct {
	repo  Repository
	log   *zap.Logger
	clock ids.Clock
	id    ids.IDGen
}

func NewService(repo Repository, log *zap.Logger) *Service {
	return &Service{
		repo:  repo,
		log:   log,
		clock: ids.RealClock{},
		id:    ids.NewULIDGen(),
	}
}

func (s *Service) GetMaterial(ctx context.Context, materialID int64) (MaterialResponse, error) {
	m, err := s.repo.GetMaterial(ctx, materialID)
	if err != nil {
		return MaterialResponse{}, err
	}
	return toMaterialResponse(m), nil
}

func (s *Service) ListMaterials(ctx context.Context, f MaterialFilter) ([]MaterialResponse, error) {
	ms, err := s.repo.ListMaterials(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]MaterialResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMaterialResponse(m))
	}
	return out, nil
}

// AdjustStock records an administrative correction (count fix, breakage, purchase).
// It uses the same lock and non-negativity rule as loan reservations.
func (s *Service) AdjustStock(ctx context.Context, actor auth.Actor, materialID int64, in AdjustStockRequest) (AdjustmentResponse, error) {
	if in.Delta == 0 {
		return AdjustmentResponse{}, apierr.ErrInvalid("delta must not be 0")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return AdjustmentResponse{}, apierr.ErrInvalid("reason required")
	}

	now := s.clock.Now()
	a := Adjustment{
		ULID:       s.id.NewULID(now),
		MaterialID: materialID,
		Delta:      in.Delta,
		Reason:     reason,
		UserID:     actor.UserID,
		CreatedAt:  now,
	}
	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		qty, err := Adjust(ctx, tx, materialID, in.Delta)
		if err != nil {
			return err
		}
		a.ResultingQty = qty
		return tx.InsertAdjustment(ctx, &a)
	})
	if err != nil {
		return AdjustmentResponse{}, err
	}

	s.log.Info("stock adjusted",
		zap.Int64("material_id", materialID),
		zap.Int("delta", in.Delta),
		zap.Int("resulting_quantity", a.ResultingQty),
		zap.Int64("user_id", actor.UserID),
	)
	return toAdjustmentResponse(a), nil
}

func (s *Service) ListAdjustments(ctx context.Context, materialID int64, limit int) ([]AdjustmentResponse, error) {
	if limit <= 0 {
		limit = DefaultAdjustmentLimit
	}
	if limit > MaxAdjustmentLimit {
		limit = MaxAdjustmentLimit
	}
	if _, err := s.repo.GetMaterial(ctx, materialID); err != nil {
		return nil, err
	}
	as, err := s.repo.ListAdjustments(ctx, materialID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]AdjustmentResponse, 0, len(as))
	for _, a := range as {
		out = append(out, toAdjustmentResponse(a))
	}
	return out, nil
}

package inventory

import (
	"context"
	"time"
)

type Material struct {
	ID                int64
	Name              string
	Description       string
	Category          string
	AvailableQuantity int
	Active            bool
}

// Adjustment is one administrative stock correction.
type Adjustment struct {
	ID           int64
	ULID         string
	MaterialID   int64
	Delta        int
	ResultingQty int
	Reason       string
	UserID       int64
	CreatedAt    time.Time
}

type MaterialFilter struct {
	Category        *string
	IncludeInactive bool
	InStockOnly     bool
}

// Stock is the row-level view of material quantities inside one transaction.
// LockMaterial must hold the row until the transaction ends.
type Stock interface {
	LockMaterial(ctx context.Context, materialID int64) (Material, error)
	AddQuantity(ctx context.Context, materialID int64, delta int) error
}

type Tx interface {
	Stock
	InsertAdjustment(ctx context.Context, a *Adjustment) error
}

type Repository interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	GetMaterial(ctx context.Context, materialID int64) (Material, error)
	ListMaterials(ctx context.Context, f MaterialFilter) ([]Material, error)
	ListAdjustments(ctx context.Context, materialID int64, limit int) ([]Adjustment, error)
}

package inventory

import (
	"fmt"

	"LABO-backend/internal/platform/apierr"
)

var ErrMaterialNotFound = apierr.New(apierr.CodeNotFound, "MATERIAL_NOT_FOUND", "material not found")

type InsufficientStockError struct {
	MaterialID int64
	Requested  int
	Available  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for material %d: requested %d, available %d", e.MaterialID, e.Requested, e.Available)
}
func (e *InsufficientStockError) ErrorCode() apierr.Code { return apierr.CodeConflict }
func (e *InsufficientStockError) ErrorReason() string    { return "INSUFFICIENT_STOCK" }
func (e *InsufficientStockError) ErrorDetails() map[string]any {
	return map[string]any{"material_id": e.MaterialID, "requested": e.Requested, "available": e.Available}
}

type UnknownMaterialError struct{ MaterialID int64 }

func (e *UnknownMaterialError) Error() string {
	return fmt.Sprintf("unknown material %d", e.MaterialID)
}
func (e *UnknownMaterialError) ErrorCode() apierr.Code { return apierr.CodeInvalidArgument }
func (e *UnknownMaterialError) ErrorReason() string    { return "UNKNOWN_MATERIAL" }
func (e *UnknownMaterialError) ErrorDetails() map[string]any {
	return map[string]any{"material_id": e.MaterialID}
}

type InvalidQuantityError struct {
	MaterialID int64
	Quantity   int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity for material %d must be > 0, got %d", e.MaterialID, e.Quantity)
}
func (e *InvalidQuantityError) ErrorCode() apierr.Code { return apierr.CodeInvalidArgument }
func (e *InvalidQuantityError) ErrorReason() string    { return "NON_POSITIVE_QUANTITY" }
func (e *InvalidQuantityError) ErrorDetails() map[string]any {
	return map[string]any{"material_id": e.MaterialID, "quantity": e.Quantity}
}

type MaterialInactiveError struct{ MaterialID int64 }

func (e *MaterialInactiveError) Error() string {
	return fmt.Sprintf("material %d is inactive", e.MaterialID)
}
func (e *MaterialInactiveError) ErrorCode() apierr.Code { return apierr.CodeInvalidArgument }
func (e *MaterialInactiveError) ErrorReason() string    { return "MATERIAL_INACTIVE" }
func (e *MaterialInactiveError) ErrorDetails() map[string]any {
	return map[string]any{"material_id": e.MaterialID}
}

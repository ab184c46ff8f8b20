package inventory

import "context"

// Reserve takes qty units of a material. The row stays locked by s until the
// surrounding transaction ends, so the check and the decrement cannot interleave
// with another reservation of the same material.
func Reserve(ctx context.Context, s Stock, materialID int64, qty int) error {
	if qty <= 0 {
		return &InvalidQuantityError{MaterialID: materialID, Quantity: qty}
	}
	m, err := s.LockMaterial(ctx, materialID)
	if err != nil {
		return err
	}
	if !m.Active {
		return &MaterialInactiveError{MaterialID: materialID}
	}
	if m.AvailableQuantity < qty {
		return &InsufficientStockError{MaterialID: materialID, Requested: qty, Available: m.AvailableQuantity}
	}
	return s.AddQuantity(ctx, materialID, -qty)
}

// Release gives qty units back. It has no ceiling.
func Release(ctx context.Context, s Stock, materialID int64, qty int) error {
	if qty <= 0 {
		return &InvalidQuantityError{MaterialID: materialID, Quantity: qty}
	}
	return s.AddQuantity(ctx, materialID, qty)
}

// Adjust applies an administrative correction under the same non-negativity rule.
// It returns the quantity after the change.
func Adjust(ctx context.Context, s Stock, materialID int64, delta int) (int, error) {
	m, err := s.LockMaterial(ctx, materialID)
	if err != nil {
		return 0, err
	}
	if m.AvailableQuantity+delta < 0 {
		return 0, &InsufficientStockError{MaterialID: materialID, Requested: -delta, Available: m.AvailableQuantity}
	}
	if err := s.AddQuantity(ctx, materialID, delta); err != nil {
		return 0, err
	}
	return m.AvailableQuantity + delta, nil
}

package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStock map[int64]*Material

func (s mapStock) LockMaterial(_ context.Context, id int64) (Material, error) {
	m, ok := s[id]
	if !ok {
		return Material{}, &UnknownMaterialError{MaterialID: id}
	}
	return *m, nil
}

func (s mapStock) AddQuantity(_ context.Context, id int64, delta int) error {
	s[id].AvailableQuantity += delta
	return nil
}

func TestReserve(t *testing.T) {
	ctx := context.Background()
	s := mapStock{
		1: {ID: 1, Name: "Multímetro", AvailableQuantity: 10, Active: true},
		2: {ID: 2, Name: "Osciloscopio", AvailableQuantity: 4, Active: false},
	}

	require.NoError(t, Reserve(ctx, s, 1, 3))
	assert.Equal(t, 7, s[1].AvailableQuantity)

	err := Reserve(ctx, s, 1, 8)
	var ise *InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, InsufficientStockError{MaterialID: 1, Requested: 8, Available: 7}, *ise)
	assert.Equal(t, 7, s[1].AvailableQuantity)

	var ume *UnknownMaterialError
	assert.ErrorAs(t, Reserve(ctx, s, 99, 1), &ume)

	var ie *MaterialInactiveError
	assert.ErrorAs(t, Reserve(ctx, s, 2, 1), &ie)
	assert.Equal(t, 4, s[2].AvailableQuantity)

	var qe *InvalidQuantityError
	assert.ErrorAs(t, Reserve(ctx, s, 1, 0), &qe)
	assert.ErrorAs(t, Reserve(ctx, s, 1, -2), &qe)
	assert.Equal(t, 7, s[1].AvailableQuantity)

	require.NoError(t, Reserve(ctx, s, 1, 7))
	assert.Equal(t, 0, s[1].AvailableQuantity)
}

func TestReleaseIsUnbounded(t *testing.T) {
	ctx := context.Background()
	s := mapStock{1: {ID: 1, AvailableQuantity: 0, Active: true}}

	require.NoError(t, Release(ctx, s, 1, 5))
	require.NoError(t, Release(ctx, s, 1, 5))
	assert.Equal(t, 10, s[1].AvailableQuantity)

	var qe *InvalidQuantityError
	assert.ErrorAs(t, Release(ctx, s, 1, 0), &qe)
}

func TestAdjustKeepsNonNegative(t *testing.T) {
	ctx := context.Background()
	s := mapStock{1: {ID: 1, AvailableQuantity: 2, Active: true}}

	qty, err := Adjust(ctx, s, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 7, qty)

	_, err = Adjust(ctx, s, 1, -8)
	var ise *InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, 8, ise.Requested)
	assert.Equal(t, 7, ise.Available)

	qty, err = Adjust(ctx, s, 1, -7)
	require.NoError(t, err)
	assert.Equal(t, 0, qty)
}

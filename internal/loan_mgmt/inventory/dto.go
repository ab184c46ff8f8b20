package inventory

import "time"

const (
	DefaultAdjustmentLimit = 50
	MaxAdjustmentLimit     = 200
)

type MaterialResponse struct {
	MaterialID        int64  `json:"material_id"`
	Name              string `json:"name"`
	Description       string `json:"description,omitempty"`
	Category          string `json:"category"`
	AvailableQuantity int    `json:"available_quantity"`
	Active            bool   `json:"active"`
}

type AdjustStockRequest struct {
	Delta  int    `json:"delta" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

type AdjustmentResponse struct {
	AdjustmentULID string    `json:"adjustment_ulid"`
	MaterialID     int64     `json:"material_id"`
	Delta          int       `json:"delta"`
	ResultingQty   int       `json:"resulting_quantity"`
	Reason         string    `json:"reason"`
	UserID         int64     `json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func toMaterialResponse(m Material) MaterialResponse {
	return MaterialResponse{
		MaterialID:        m.ID,
		Name:              m.Name,
		Description:       m.Description,
		Category:          m.Category,
		AvailableQuantity: m.AvailableQuantity,
		Active:            m.Active,
	}
}

func toAdjustmentResponse(a Adjustment) AdjustmentResponse {
	return AdjustmentResponse{
		AdjustmentULID: a.ULID,
		MaterialID:     a.MaterialID,
		Delta:          a.Delta,
		ResultingQty:   a.ResultingQty,
		Reason:         a.Reason,
		UserID:         a.UserID,
		CreatedAt:      a.CreatedAt,
	}
}

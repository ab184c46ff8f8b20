package catalog

type EntityResponse struct {
	Kind     string `json:"kind"`
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

type ActiveMaterialResponse struct {
	MaterialID        int64  `json:"material_id"`
	Name              string `json:"name"`
	Category          string `json:"category"`
	AvailableQuantity int    `json:"available_quantity"`
}

type RequirementResponse struct {
	MaterialID   int64  `json:"material_id"`
	MaterialName string `json:"material_name"`
	Quantity     int    `json:"quantity"`
	Available    int    `json:"available"`
	Sufficient   bool   `json:"sufficient"` // advisory; the loan engine decides
}

type BatchRequest struct {
	Mutations []MutationInput `json:"mutations" binding:"required"`
}

type BatchResponse struct {
	Applied int     `json:"applied"`
	Created []int64 `json:"created"`
}

func toEntityResponse(e Entity) EntityResponse {
	return EntityResponse{
		Kind:     e.Kind.String(),
		ID:       e.ID,
		Name:     e.Name,
		Active:   e.Active,
		ParentID: e.ParentID,
	}
}

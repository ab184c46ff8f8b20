package inventory

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"LABO-backend/internal/platform/apierr"
	"LABO-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/materials", h.ListMaterials)
	r.GET("/materials/:material_id", h.GetMaterial)
}

// RegisterAdminRoutes mounts stock correction; callers put it behind RequireRole(admin).
func RegisterAdminRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/materials/:material_id/adjustments", h.AdjustStock)
	r.GET("/materials/:material_id/adjustments", h.ListAdjustments)
}

// ---------- handlers ----------

// ListMaterials godoc
// @Summary  List materials with their available quantity
// @Tags     materials
// @Param    category          query string false "category"
// @Param    include_inactive  query bool   false "include inactive materials"
// @Param    in_stock          query bool   false "only materials with available_quantity > 0"
// @Success  200 {array} MaterialResponse
// @Router   /materials [get]
func (h *Handler) ListMaterials(c *gin.Context) {
	f := MaterialFilter{
		IncludeInactive: c.Query("include_inactive") == "true",
		InStockOnly:     c.Query("in_stock") == "true",
	}
	if v := c.Query("category"); v != "" {
		f.Category = &v
	}
	res, err := h.svc.ListMaterials(c.Request.Context(), f)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res, "total": len(res)})
}

func (h *Handler) GetMaterial(c *gin.Context) {
	id, ok := materialIDParam(c)
	if !ok {
		return
	}
	res, err := h.svc.GetMaterial(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) AdjustStock(c *gin.Context) {
	id, ok := materialIDParam(c)
	if !ok {
		return
	}
	actor, ok := auth.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}
	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}
	res, err := h.svc.AdjustStock(c.Request.Context(), actor, id, req)
	if err != nil {
		_ = c.Error(err)
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListAdjustments(c *gin.Context) {
	id, ok := materialIDParam(c)
	if !ok {
		return
	}
	res, err := h.svc.ListAdjustments(c.Request.Context(), id, parseIntDefault(c.Query("limit"), DefaultAdjustmentLimit))
	if err != nil {
		c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res})
}

// ---------- helpers ----------

func materialIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("material_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid material_id"))
		return 0, false
	}
	return id, true
}

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

package catalog

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
	r.GET("/catalog/:kind", h.ListEntities)
	r.GET("/catalog/:kind/active", h.ListActive)
	r.GET("/practices/:practice_id/requirements", h.PracticeRequirements)
}

// RegisterAdminRoutes mounts catalog mutations; callers put it behind RequireRole(admin).
func RegisterAdminRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.POST("/catalog/mutations", h.ApplyBatch)
}

// ListEntities godoc
// @Summary  Careers, subjects, teachers, practices or materials
// @Tags     catalog
// @Param    kind         path  string true  "career | subject | teacher | practice | material"
// @Param    active_only  query bool   false "only active entries"
// @Success  200 {array} EntityResponse
// @Failure  404 {object} apierr.ErrorDTO
// @Router   /catalog/{kind} [get]
func (h *Handler) ListEntities(c *gin.Context) {
	kind, err := ParseEntityKind(c.Param("kind"))
	if err != nil {
		writeErr(c, err)
		return
	}
	res, err := h.svc.ListEntities(c.Request.Context(), kind, c.Query("active_only") == "true")
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res, "total": len(res)})
}

// ListActive godoc
// @Summary  Active entries of a kind; materials come with their stock
// @Tags     catalog
// @Param    kind  path string true "career | subject | teacher | practice | material"
// @Success  200 {array} ActiveMaterialResponse
// @Router   /catalog/{kind}/active [get]
func (h *Handler) ListActive(c *gin.Context) {
	kind, err := ParseEntityKind(c.Param("kind"))
	if err != nil {
		writeErr(c, err)
		return
	}
	if kind == KindMaterial {
		res, err := h.svc.ListActiveMaterials(c.Request.Context())
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": res, "total": len(res)})
		return
	}
	res, err := h.svc.ListEntities(c.Request.Context(), kind, true)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res, "total": len(res)})
}

// PracticeRequirements godoc
// @Summary  Material template of a practice (advisory)
// @Tags     catalog
// @Param    practice_id path int true "practice id"
// @Success  200 {array} RequirementResponse
// @Failure  404 {object} apierr.ErrorDTO
// @Router   /practices/{practice_id}/requirements [get]
func (h *Handler) PracticeRequirements(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("practice_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid practice_id"))
		return
	}
	res, err := h.svc.PracticeRequirements(c.Request.Context(), id)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res, "total": len(res)})
}

// ApplyBatch godoc
// @Summary  Apply catalog mutations; a failure reverts the ones already applied
// @Tags     admin
// @Accept   json
// @Param    body body BatchRequest true "mutations"
// @Success  200 {object} BatchResponse
// @Failure  400 {object} apierr.ErrorDTO
// @Failure  409 {object} apierr.ErrorDTO
// @Router   /catalog/mutations [post]
func (h *Handler) ApplyBatch(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}
	muts := make([]Mutation, 0, len(req.Mutations))
	for i, in := range req.Mutations {
		m, err := in.Decode()
		if err != nil {
			writeErr(c, &BatchError{Index: i, Err: err})
			return
		}
		muts = append(muts, m)
	}
	res, err := h.svc.ApplyBatch(c.Request.Context(), actor, muts)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func writeErr(c *gin.Context, err error) {
	if apierr.CodeOf(err) == apierr.CodeInternal {
		_ = c.Error(err)
	}
	c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
}

package loans

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"LABO-backend/internal/platform/apierr"
	"LABO-backend/internal/platform/auth"
	"LABO-backend/internal/platform/db"
)

type Handler struct {
	svc      *Service
	attempts int
}

// RegisterRoutes mounts the engine. Mutations are retried as a whole, up to
// attempts times, when the store reports a transient failure.
func RegisterRoutes(r gin.IRoutes, svc *Service, attempts int) {
	h := &Handler{svc: svc, attempts: attempts}
	r.POST("/loans", h.CreateLoan)
	r.GET("/loans/:loan_id", h.GetLoan)
	r.POST("/loans/:loan_id/return", h.ReturnLoan)
}

// RegisterAdminRoutes mounts soft-delete; callers put it behind RequireRole(admin).
func RegisterAdminRoutes(r gin.IRoutes, svc *Service, attempts int) {
	h := &Handler{svc: svc, attempts: attempts}
	r.POST("/admin/loans/hide", h.BulkHide)
}

// ---------- handlers ----------

// CreateLoan godoc
// @Summary  Create a loan, reserving every line or nothing
// @Tags     loans
// @Accept   json
// @Produce  json
// @Param    body body CreateLoanRequest true "loan"
// @Success  201 {object} LoanCreatedResponse
// @Failure  400 {object} apierr.ErrorDTO
// @Failure  409 {object} apierr.ErrorDTO
// @Router   /loans [post]
func (h *Handler) CreateLoan(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}

	var res LoanCreatedResponse
	err := db.Retry(c.Request.Context(), h.attempts, func(ctx context.Context) error {
		var err error
		res, err = h.svc.CreateLoan(ctx, actor, req)
		return err
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.Header("Location", "/loans/"+strconv.FormatInt(res.LoanID, 10))
	c.JSON(http.StatusCreated, res)
}

// GetLoan godoc
// @Summary  Loan with its lines and participants
// @Tags     loans
// @Param    loan_id path int true "loan id"
// @Success  200 {object} LoanDetailResponse
// @Failure  404 {object} apierr.ErrorDTO
// @Router   /loans/{loan_id} [get]
func (h *Handler) GetLoan(c *gin.Context) {
	id, ok := loanIDParam(c)
	if !ok {
		return
	}
	res, err := h.svc.LoanDetail(c.Request.Context(), id)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ReturnLoan godoc
// @Summary  Return a loan and release its stock
// @Tags     loans
// @Param    loan_id path int true "loan id"
// @Success  200 {object} ReturnResponse
// @Failure  404 {object} apierr.ErrorDTO
// @Failure  409 {object} apierr.ErrorDTO
// @Router   /loans/{loan_id}/return [post]
func (h *Handler) ReturnLoan(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := loanIDParam(c)
	if !ok {
		return
	}

	var res ReturnResponse
	err := db.Retry(c.Request.Context(), h.attempts, func(ctx context.Context) error {
		var err error
		res, err = h.svc.ReturnLoan(ctx, actor, id)
		return err
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// BulkHide godoc
// @Summary  Hide loans created within an inclusive date range
// @Tags     admin
// @Param    body body DateRange true "YYYY-MM-DD range"
// @Success  200 {object} HideResponse
// @Failure  400 {object} apierr.ErrorDTO
// @Router   /admin/loans/hide [post]
func (h *Handler) BulkHide(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req DateRange
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}

	var res HideResponse
	err := db.Retry(c.Request.Context(), h.attempts, func(ctx context.Context) error {
		var err error
		res, err = h.svc.BulkHide(ctx, actor, req)
		return err
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ---------- helpers ----------

func actorOrAbort(c *gin.Context) (auth.Actor, bool) {
	a, ok := auth.ActorFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return auth.Actor{}, false
	}
	return a, true
}

func loanIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("loan_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid loan_id"))
		return 0, false
	}
	return id, true
}

func writeErr(c *gin.Context, err error) {
	if db.IsTransient(err) {
		c.Header("Retry-After", "1")
	}
	if apierr.CodeOf(err) == apierr.CodeInternal || db.IsTransient(err) {
		_ = c.Error(err)
	}
	c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
}

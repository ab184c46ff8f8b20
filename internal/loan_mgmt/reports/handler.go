package reports

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"LABO-backend/internal/loan_mgmt/loans"
	"LABO-backend/internal/platform/apierr"
	"LABO-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}
	r.GET("/reports/loans", h.ListLoans)
	r.GET("/reports/loans.csv", h.ExportLoans)
	r.GET("/reports/subjects/participants", h.ParticipantsPerSubject)
	r.GET("/reports/subjects/count", h.CountSubjects)
	r.GET("/reports/materials/usage", h.MaterialUsage)
	r.GET("/reports/observations", h.Observations)
	r.GET("/reports/dashboard", h.Dashboard)
}

// ---------- handlers ----------

// ListLoans godoc
// @Summary  Loans matching every given filter, newest first by default
// @Tags     reports
// @Param    from            query string false "YYYY-MM-DD, inclusive"
// @Param    to              query string false "YYYY-MM-DD, inclusive"
// @Param    career_id       query int    false "career"
// @Param    state           query string false "active | returned"
// @Param    include_hidden  query bool   false "admins only"
// @Param    limit           query int    false "page size (max 500)"
// @Param    offset          query int    false "offset"
// @Param    order           query string false "asc | desc"
// @Success  200 {object} LoanPageResponse
// @Failure  400 {object} apierr.ErrorDTO
// @Router   /reports/loans [get]
func (h *Handler) ListLoans(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}
	f, ok := h.filter(c)
	if !ok {
		return
	}
	p := Page{
		Limit:  parseIntDefault(c.Query("limit"), DefaultLimit),
		Offset: parseIntDefault(c.Query("offset"), 0),
		Order:  strings.ToLower(c.DefaultQuery("order", "desc")),
	}
	res, err := h.svc.ListLoans(c.Request.Context(), actor, f, p)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ExportLoans godoc
// @Summary  CSV export of the loans matching the filters
// @Tags     reports
// @Produce  text/csv
// @Param    encoding  query string false "utf-8 | windows-1252"
// @Success  200 {string} string
// @Router   /reports/loans.csv [get]
func (h *Handler) ExportLoans(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}
	f, ok := h.filter(c)
	if !ok {
		return
	}
	enc, err := ParseEncoding(c.Query("encoding"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, err.Error()))
		return
	}

	// buffered so a failed query still yields a JSON error instead of a truncated file
	var buf bytes.Buffer
	if _, err := h.svc.ExportLoans(c.Request.Context(), actor, f, enc, &buf); err != nil {
		writeErr(c, err)
		return
	}
	charset := "utf-8"
	if enc == EncodingWindows1252 {
		charset = "windows-1252"
	}
	name := "prestamos_" + time.Now().In(h.svc.Location()).Format("20060102") + ".csv"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "text/csv; charset="+charset, buf.Bytes())
}

// ParticipantsPerSubject godoc
// @Summary  Distinct participants per subject
// @Tags     reports
// @Success  200 {array} SubjectParticipantsResponse
// @Router   /reports/subjects/participants [get]
func (h *Handler) ParticipantsPerSubject(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	res, err := h.svc.ParticipantsPerSubject(c.Request.Context(), f)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res, "total": len(res)})
}

// CountSubjects godoc
// @Summary  Number of distinct subjects with loans
// @Tags     reports
// @Success  200 {object} SubjectCountResponse
// @Router   /reports/subjects/count [get]
func (h *Handler) CountSubjects(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	res, err := h.svc.CountSubjects(c.Request.Context(), f)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// MaterialUsage godoc
// @Summary  Times each material was lent and units lent
// @Tags     reports
// @Success  200 {array} MaterialUsageResponse
// @Router   /reports/materials/usage [get]
func (h *Handler) MaterialUsage(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	res, err := h.svc.MaterialUsage(c.Request.Context(), f)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res, "total": len(res)})
}

// Observations godoc
// @Summary  Loans with observations, urgent first
// @Tags     reports
// @Param    importance query string false "normal | urgent"
// @Success  200 {array} ObservationResponse
// @Router   /reports/observations [get]
func (h *Handler) Observations(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	var imp *loans.Importance
	if v := c.Query("importance"); v != "" {
		i := loans.Importance(strings.ToLower(v))
		if !i.Valid() {
			c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "importance must be normal or urgent"))
			return
		}
		imp = &i
	}
	res, err := h.svc.Observations(c.Request.Context(), f, imp)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": res, "total": len(res)})
}

// Dashboard godoc
// @Summary  Home screen counters
// @Tags     reports
// @Success  200 {object} DashboardResponse
// @Router   /reports/dashboard [get]
func (h *Handler) Dashboard(c *gin.Context) {
	res, err := h.svc.Dashboard(c.Request.Context())
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ---------- helpers ----------

// filter parses from/to/career_id/state/include_hidden; it writes 400 and
// returns false on malformed input.
func (h *Handler) filter(c *gin.Context) (Filter, bool) {
	var f Filter
	loc := h.svc.Location()
	for _, q := range []struct {
		key string
		dst **time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		v := c.Query(q.key)
		if v == "" {
			continue
		}
		t, err := time.ParseInLocation(loans.DateLayout, v, loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, q.key+" must be YYYY-MM-DD"))
			return Filter{}, false
		}
		*q.dst = &t
	}
	if v := c.Query("career_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid career_id"))
			return Filter{}, false
		}
		f.CareerID = &id
	}
	if v := c.Query("state"); v != "" {
		st := loans.State(strings.ToLower(v))
		if !st.Valid() {
			c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "state must be active or returned"))
			return Filter{}, false
		}
		f.State = &st
	}
	f.IncludeHidden = c.Query("include_hidden") == "true"
	return f, true
}

func writeErr(c *gin.Context, err error) {
	if apierr.CodeOf(err) == apierr.CodeInternal {
		_ = c.Error(err)
	}
	c.JSON(apierr.ToHTTPStatus(err), apierr.FromErr(err))
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

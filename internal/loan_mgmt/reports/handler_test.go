package reports_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LABO-backend/internal/loan_mgmt/loans"
	"LABO-backend/internal/loan_mgmt/reports"
	"LABO-backend/internal/platform/auth"
)

func reportRouter(d *desk, actor auth.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(auth.CtxActorKey, actor)
		c.Next()
	})
	reports.RegisterRoutes(r, d.reports)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestReportHandlers(t *testing.T) {
	d := newDesk(t)
	d.lend(t, time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC), d.electronica, d.circuitos, "", loans.LineInput{MaterialID: d.multimetro, Quantity: 2})
	r := reportRouter(d, d.student)

	w := get(r, "/reports/loans?from=2024-03-04&to=2024-03-04&state=active&career_id=1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var page reports.LoanPageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)

	for _, bad := range []string{
		"/reports/loans?from=04-03-2024",
		"/reports/loans?state=lost",
		"/reports/loans?career_id=x",
		"/reports/loans.csv?encoding=ebcdic",
	} {
		assert.Equal(t, http.StatusBadRequest, get(r, bad).Code, bad)
	}

	w = get(r, "/reports/materials/usage")
	require.Equal(t, http.StatusOK, w.Code)
	var usage struct {
		Items []reports.MaterialUsageResponse `json:"items"`
		Total int                             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &usage))
	require.Len(t, usage.Items, 1)
	assert.Equal(t, 2, usage.Items[0].TotalUnits)

	w = get(r, "/reports/loans.csv?encoding=windows-1252")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=windows-1252", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "prestamos_")

	w = get(r, "/reports/dashboard")
	require.Equal(t, http.StatusOK, w.Code)
	var dash reports.DashboardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dash))
	assert.Equal(t, 1, dash.ActiveLoans)
}

package loans_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LABO-backend/internal/loan_mgmt/loans"
	"LABO-backend/internal/platform/apierr"
	"LABO-backend/internal/platform/auth"
)

func router(l *lab, actor auth.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(auth.CtxActorKey, actor)
		c.Next()
	})
	loans.RegisterRoutes(r, l.svc, 2)
	loans.RegisterAdminRoutes(r, l.svc, 2)
	return r
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerCreateThenConflict(t *testing.T) {
	l := newLab(t)
	r := router(l, l.student)

	w := do(r, http.MethodPost, "/loans", l.request(line(l.osciloscopio, 3)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created loans.LoanCreatedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "/loans/"+strconv.FormatInt(created.LoanID, 10), w.Header().Get("Location"))

	w = do(r, http.MethodPost, "/loans", l.request(line(l.osciloscopio, 2)))
	require.Equal(t, http.StatusConflict, w.Code)
	var body apierr.ErrorDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apierr.CodeConflict, body.Error.Code)
	assert.Equal(t, "INSUFFICIENT_STOCK", body.Error.Reason)
	assert.EqualValues(t, 1, body.Error.Details["available"])
	assert.EqualValues(t, 2, body.Error.Details["requested"])

	w = do(r, http.MethodGet, "/loans/"+strconv.FormatInt(created.LoanID, 10), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail loans.LoanDetailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, "Osciloscopio", detail.Lines[0].MaterialName)
}

func TestHandlerReturn(t *testing.T) {
	l := newLab(t)
	r := router(l, l.student)

	w := do(r, http.MethodPost, "/loans", l.request(line(l.multimetro, 1)))
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodPost, "/loans/1/return", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(r, http.MethodPost, "/loans/1/return", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/loans/abc/return", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(r, http.MethodGet, "/loans/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerRejectsBadInput(t *testing.T) {
	l := newLab(t)
	r := router(l, l.student)

	req := httptest.NewRequest(http.MethodPost, "/loans", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/loans", l.request())
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body apierr.ErrorDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "EMPTY_LINE_SET", body.Error.Reason)
}

func TestHandlerBulkHide(t *testing.T) {
	l := newLab(t)
	r := router(l, l.admin)

	w := do(r, http.MethodPost, "/loans", l.request(line(l.multimetro, 1)))
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodPost, "/admin/loans/hide", loans.DateRange{From: "2024-03-04", To: "2024-03-04"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res loans.HideResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, int64(1), res.Affected)

	w = do(r, http.MethodPost, "/admin/loans/hide", loans.DateRange{From: "2024-03-05", To: "2024-03-04"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerWithoutIdentity(t *testing.T) {
	l := newLab(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	loans.RegisterRoutes(r, l.svc, 1)

	w := do(r, http.MethodPost, "/loans", l.request(line(l.multimetro, 1)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

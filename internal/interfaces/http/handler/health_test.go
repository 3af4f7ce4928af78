package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/ledger/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type healthBody struct {
	Success bool           `json:"success"`
	Data    HealthResponse `json:"data"`
}

func serveHealth(t *testing.T, h *HealthHandler) (int, healthBody) {
	t.Helper()
	r := gin.New()
	r.GET("/health", h.Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body healthBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHealthHandler_AllChecksPass(t *testing.T) {
	store := testutil.NewLedgerStore(t)
	h := NewHealthHandler("erp-ledger", "1.2.3", DatabaseCheck(store.DB))

	code, body := serveHealth(t, h)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Data.Status)
	assert.Equal(t, "erp-ledger", body.Data.Name)
	assert.Equal(t, "1.2.3", body.Data.Version)
	assert.NotEmpty(t, body.Data.GoVersion)
	assert.Equal(t, map[string]string{"database": "ok"}, body.Data.Checks)
}

func TestHealthHandler_FailingCheckDegrades(t *testing.T) {
	h := NewHealthHandler("erp-ledger", "1.2.3",
		HealthCheck{Name: "database", Check: func(context.Context) error { return nil }},
		HealthCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }},
	)

	code, body := serveHealth(t, h)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", body.Data.Status)
	assert.Equal(t, "ok", body.Data.Checks["database"])
	assert.Equal(t, "connection refused", body.Data.Checks["redis"])
}

func TestHealthHandler_NoChecks(t *testing.T) {
	code, body := serveHealth(t, NewHealthHandler("erp-ledger", "dev"))
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, body.Data.Checks)
}

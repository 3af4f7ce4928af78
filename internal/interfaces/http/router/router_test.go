package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/ledger/internal/application/accounting"
	"github.com/erp/ledger/internal/application/escrow"
	"github.com/erp/ledger/internal/application/event"
	"github.com/erp/ledger/internal/application/reconciliation"
	"github.com/erp/ledger/internal/application/sales"
	"github.com/erp/ledger/internal/application/shipping"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/erp/ledger/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func serve(engine *gin.Engine, method, path string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "/api/v1", r.BasePath())
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "/api/v2", r.BasePath())
}

func TestDomainGroup(t *testing.T) {
	t.Run("routes and middleware", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("ledger", "/ledger").Use(func(c *gin.Context) {
			c.Header("X-Group", "ledger")
			c.Next()
		})
		g.GET("/entries", func(c *gin.Context) { c.String(http.StatusOK, "list") }).
			POST("/entries", func(c *gin.Context) { c.String(http.StatusCreated, "posted") })
		NewRouter(engine).Register(g).Setup()

		w := serve(engine, http.MethodGet, "/api/v1/ledger/entries", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ledger", w.Header().Get("X-Group"))

		w = serve(engine, http.MethodPost, "/api/v1/ledger/entries", "")
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "posted", w.Body.String())
	})

	t.Run("nil middleware is skipped", func(t *testing.T) {
		engine := gin.New()
		var verify gin.HandlerFunc
		g := NewDomainGroup("webhooks", "/webhooks").Use(verify)
		g.Handle(http.MethodPut, "/shipments", func(c *gin.Context) { c.Status(http.StatusAccepted) })
		NewRouter(engine, WithAPIVersion("v2")).Register(g).Setup()

		assert.Empty(t, g.middleware)
		assert.Equal(t, http.StatusAccepted, serve(engine, http.MethodPut, "/api/v2/webhooks/shipments", "").Code)
	})

	t.Run("subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("escrow", "/escrow")
		g.Group("sellers", "/sellers").GET("/:id", func(c *gin.Context) { c.String(http.StatusOK, c.Param("id")) })
		NewRouter(engine).Register(g).Setup()

		w := serve(engine, http.MethodGet, "/api/v1/escrow/sellers/42", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "42", w.Body.String())
		assert.Equal(t, "escrow", g.Name())
		assert.Equal(t, "/escrow", g.Prefix())
	})
}

func newTestHandlers(t *testing.T) Handlers {
	t.Helper()
	store := testutil.NewLedgerStore(t)
	log := zap.NewNop()
	escrowService := escrow.NewEscrowService(store.Scope, nil, log)
	inbox := shipping.NewInboxService(store.Scope, nil, log)
	invoices := reconciliation.NewInvoiceReconciler(store.Scope, nil, reconciliation.DefaultInvoiceReconcilerConfig(), nil, log)
	payouts := reconciliation.NewPayoutReconciler(store.Scope, escrowService, reconciliation.PayoutReconcilerConfig{}, nil, log)

	return Handlers{
		Health:         handler.NewHealthHandler("erp-ledger", "test", handler.DatabaseCheck(store.DB)),
		Webhook:        handler.NewWebhookHandler(inbox, escrowService),
		Ledger:         handler.NewLedgerHandler(accounting.NewPostingService(store.Scope, nil, log)),
		Escrow:         handler.NewEscrowHandler(escrowService),
		Shipment:       handler.NewShipmentHandler(inbox),
		Sales:          handler.NewSalesHandler(sales.NewOrderSyncService(store.Scope, persistence.NewGormProductResolver(store.DB), log)),
		Reconciliation: handler.NewReconciliationHandler(invoices, payouts),
		Outbox:         handler.NewOutboxHandler(event.NewOutboxService(store.Outbox, log)),
	}
}

func TestRegisterRoutes(t *testing.T) {
	engine := gin.New()
	var webhookCalls int
	RegisterRoutes(engine, newTestHandlers(t), func(c *gin.Context) {
		webhookCalls++
		c.Next()
	})

	routes := make(map[string]bool)
	for _, info := range engine.Routes() {
		routes[info.Method+" "+info.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"POST /api/v1/webhooks/shipments",
		"POST /api/v1/webhooks/payments",
		"POST /api/v1/ledger/entries",
		"POST /api/v1/ledger/entries/:id/storno",
		"POST /api/v1/ledger/checks",
		"GET /api/v1/ledger/accounts/:code/balance",
		"POST /api/v1/escrow/orders",
		"POST /api/v1/escrow/payments",
		"POST /api/v1/escrow/payments/fail",
		"POST /api/v1/escrow/orders/:id/shipments",
		"GET /api/v1/shipments/failed-events",
		"POST /api/v1/shipments/failed-events/:id/replay",
		"POST /api/v1/sales/orders/import",
		"POST /api/v1/escrow/orders/:id/release",
		"POST /api/v1/escrow/orders/:id/confirm-delivery",
		"GET /api/v1/escrow/sellers/:id/balance",
		"POST /api/v1/reconciliation/invoices/run",
		"POST /api/v1/reconciliation/payouts/run",
		"POST /api/v1/reconciliation/external-requests/:id/fail",
		"GET /api/v1/outbox/dead",
		"POST /api/v1/outbox/dead/:id/replay",
		"GET /api/v1/outbox/stats",
	} {
		assert.True(t, routes[want], "missing route %s", want)
	}

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/outbox/stats", "").Code)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/shipments/failed-events", "").Code)
	assert.Zero(t, webhookCalls)

	w := serve(engine, http.MethodPost, "/api/v1/webhooks/shipments", `{"carrierCode":"ARAS"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, webhookCalls)
}

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine(EngineConfig{
		ServiceName: "erp-ledger",
		MaxBodySize: 64,
		Logger:      zap.NewNop(),
	})
	require.NoError(t, err)
	engine.POST("/echo", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	engine.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := serve(engine, http.MethodPost, "/echo", `{}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = serve(engine, http.MethodPost, "/echo", `{"padding":"`+strings.Repeat("x", 100)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = serve(engine, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestNewEngine_RejectsBadProxy(t *testing.T) {
	_, err := NewEngine(EngineConfig{TrustedProxies: []string{"not-an-ip"}, Logger: zap.NewNop()})
	assert.Error(t, err)
}

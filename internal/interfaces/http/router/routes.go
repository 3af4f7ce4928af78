package router

import (
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers bundles every HTTP handler of the service
type Handlers struct {
	Health         *handler.HealthHandler
	Webhook        *handler.WebhookHandler
	Ledger         *handler.LedgerHandler
	Escrow         *handler.EscrowHandler
	Shipment       *handler.ShipmentHandler
	Sales          *handler.SalesHandler
	Reconciliation *handler.ReconciliationHandler
	Outbox         *handler.OutboxHandler
}

// RegisterRoutes mounts /health and the versioned API on engine.
// webhookMiddleware runs only on the carrier and payment callbacks.
func RegisterRoutes(engine *gin.Engine, h Handlers, webhookMiddleware ...gin.HandlerFunc) *Router {
	engine.GET("/health", h.Health.Health)

	webhooks := NewDomainGroup("webhooks", "/webhooks").Use(webhookMiddleware...)
	webhooks.POST("/shipments", h.Webhook.Shipment).
		POST("/payments", h.Webhook.Payment)

	ledger := NewDomainGroup("ledger", "/ledger")
	ledger.POST("/entries", h.Ledger.PostEntry).
		POST("/entries/:id/storno", h.Ledger.Storno).
		POST("/checks", h.Ledger.CheckReceived).
		GET("/accounts/:code/balance", h.Ledger.AccountBalance)

	escrow := NewDomainGroup("escrow", "/escrow")
	escrow.POST("/orders", h.Escrow.CreateOrder).
		POST("/orders/:id/release", h.Escrow.Release).
		POST("/orders/:id/confirm-delivery", h.Escrow.ConfirmDelivery).
		POST("/orders/:id/shipments", h.Shipment.Create).
		POST("/payments", h.Escrow.Capture).
		POST("/payments/fail", h.Escrow.FailPayment).
		GET("/sellers/:id/balance", h.Escrow.SellerBalance)

	shipments := NewDomainGroup("shipments", "/shipments")
	shipments.GET("/failed-events", h.Shipment.ListFailed).
		POST("/failed-events/:id/replay", h.Shipment.ReplayFailed)

	sales := NewDomainGroup("sales", "/sales")
	sales.POST("/orders/import", h.Sales.ImportOrders)

	reconciliation := NewDomainGroup("reconciliation", "/reconciliation")
	reconciliation.POST("/invoices/run", h.Reconciliation.RunInvoices).
		POST("/payouts/run", h.Reconciliation.RunPayouts).
		POST("/external-requests/:id/fail", h.Reconciliation.MarkFailed)

	outbox := NewDomainGroup("outbox", "/outbox")
	outbox.GET("/dead", h.Outbox.ListDead).
		POST("/dead/:id/replay", h.Outbox.Replay).
		GET("/stats", h.Outbox.Stats)

	r := NewRouter(engine).
		Register(webhooks).
		Register(ledger).
		Register(escrow).
		Register(shipments).
		Register(sales).
		Register(reconciliation).
		Register(outbox)
	r.Setup()
	return r
}

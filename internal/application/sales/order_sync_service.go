// Package sales imports marketplace orders and fans each sold line out as a
// sale.completed event.
package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/integration"
	"github.com/erp/ledger/internal/domain/sales"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SyncResult summarizes one sync run
type SyncResult struct {
	Marketplace integration.MarketplaceCode `json:"marketplace"`
	Fetched     int                         `json:"fetched"`
	Created     int                         `json:"created"`
	Updated     int                         `json:"updated"`
	Unchanged   int                         `json:"unchanged"`
	Invalid     int                         `json:"invalid"`
	Failed      int                         `json:"failed"`
	Events      int                         `json:"events"`
}

// OrderSyncService pulls orders from marketplace adapters into the ledger
type OrderSyncService struct {
	scope    ledger.TransactionScope
	resolver integration.ProductResolver
	validate *validator.Validate
	logger   *zap.Logger
}

// NewOrderSyncService creates an OrderSyncService
func NewOrderSyncService(scope ledger.TransactionScope, resolver integration.ProductResolver, logger *zap.Logger) *OrderSyncService {
	return &OrderSyncService{
		scope:    scope,
		resolver: resolver,
		validate: validator.New(),
		logger:   logger,
	}
}

// Sync imports the adapter's orders for the range. New orders emit one
// sale.completed per line in the same transaction as the insert; known orders
// only get their status refreshed. One bad order never aborts the run.
func (s *OrderSyncService) Sync(ctx context.Context, companyID uuid.UUID, adapter integration.MarketplaceAdapter, dateRange integration.DateRange) (*SyncResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order_sync", "sync")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, companyID.String(),
		"marketplace", adapter.Code().String(),
	)

	if !adapter.Code().IsValid() {
		return nil, integration.ErrInvalidMarketplace
	}
	if err := dateRange.Validate(); err != nil {
		return nil, err
	}
	orders, err := adapter.GetOrders(ctx, dateRange)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to fetch %s orders: %w", adapter.Code(), err)
	}

	result := &SyncResult{Marketplace: adapter.Code(), Fetched: len(orders)}
	for _, n := range orders {
		if err := s.validate.Struct(n); err != nil {
			result.Invalid++
			s.logger.Warn("skipping invalid marketplace order",
				zap.String("marketplace", adapter.Code().String()),
				zap.String("order_number", n.OrderNumber),
				zap.Error(err),
			)
			continue
		}
		if err := s.syncOrder(ctx, companyID, adapter.Code(), n, result); err != nil {
			result.Failed++
			s.logger.Error("failed to sync marketplace order",
				zap.String("marketplace", adapter.Code().String()),
				zap.String("order_number", n.OrderNumber),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("marketplace sync finished",
		zap.String("company_id", companyID.String()),
		zap.String("marketplace", adapter.Code().String()),
		zap.Int("fetched", result.Fetched),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("invalid", result.Invalid),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// pushedOrders adapts orders a marketplace pushed to us into an adapter
type pushedOrders struct {
	code   integration.MarketplaceCode
	orders []integration.NormalizedOrder
}

func (p pushedOrders) Code() integration.MarketplaceCode { return p.code }

func (p pushedOrders) GetOrders(context.Context, integration.DateRange) ([]integration.NormalizedOrder, error) {
	return p.orders, nil
}

// Import runs the orders a marketplace pushed through the same path as a
// pulled sync.
func (s *OrderSyncService) Import(ctx context.Context, companyID uuid.UUID, code integration.MarketplaceCode, orders []integration.NormalizedOrder) (*SyncResult, error) {
	return s.Sync(ctx, companyID, pushedOrders{code: code, orders: orders}, integration.LastDays(time.Now().UTC(), 1))
}

func (s *OrderSyncService) syncOrder(ctx context.Context, companyID uuid.UUID, code integration.MarketplaceCode, n integration.NormalizedOrder, result *SyncResult) error {
	order := sales.NewOrderFromNormalized(companyID, code, n)

	// mappings are resolved before the transaction so no lock is held on a lookup
	products := make([]*uuid.UUID, len(order.Items))
	for i, item := range order.Items {
		id, err := s.resolver.ResolveProduct(ctx, companyID, code, item.SKU)
		if err != nil {
			return fmt.Errorf("failed to resolve sku %s: %w", item.SKU, err)
		}
		products[i] = id
	}

	var created, updated bool
	var emitted int
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		ok, err := repos.SalesOrderRepo().CreateIfAbsent(ctx, order)
		if err != nil {
			return fmt.Errorf("failed to save order: %w", err)
		}
		if !ok {
			existing, err := repos.SalesOrderRepo().FindByNumber(ctx, companyID, order.OrderNumber)
			if err != nil {
				return err
			}
			if existing.Status == order.Status && existing.ShipmentPackageID == order.ShipmentPackageID {
				return nil
			}
			updated = true
			return repos.SalesOrderRepo().UpdateStatus(ctx, existing.ID, order.Status, order.ShipmentPackageID)
		}

		created = true
		if sales.IsCancellation(order.Status) {
			return nil
		}
		for i, item := range order.Items {
			if err := repos.Events().Emit(ctx, sales.NewSaleCompletedEvent(order, item, products[i])); err != nil {
				return fmt.Errorf("failed to emit sale event: %w", err)
			}
			emitted++
		}
		return nil
	})
	if err != nil {
		return err
	}

	switch {
	case created:
		result.Created++
		result.Events += emitted
	case updated:
		result.Updated++
	default:
		result.Unchanged++
	}
	return nil
}

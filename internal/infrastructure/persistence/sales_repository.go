package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/integration"
	"github.com/erp/ledger/internal/domain/sales"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMarketplaceOrderRepository implements sales.OrderRepository using GORM
type GormMarketplaceOrderRepository struct {
	db *gorm.DB
}

// NewGormMarketplaceOrderRepository creates a new GormMarketplaceOrderRepository
func NewGormMarketplaceOrderRepository(db *gorm.DB) *GormMarketplaceOrderRepository {
	return &GormMarketplaceOrderRepository{db: db}
}

// CreateIfAbsent inserts the order unless the company already has that order number
func (r *GormMarketplaceOrderRepository) CreateIfAbsent(ctx context.Context, order *sales.Order) (bool, error) {
	model, err := models.MarketplaceOrderModelFromDomain(order)
	if err != nil {
		return false, err
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company_id"}, {Name: "order_number"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindByNumber finds an order by company and order number
func (r *GormMarketplaceOrderRepository) FindByNumber(ctx context.Context, companyID uuid.UUID, orderNumber string) (*sales.Order, error) {
	var model models.MarketplaceOrderModel
	if err := r.db.WithContext(ctx).
		First(&model, "company_id = ? AND order_number = ?", companyID, orderNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpdateStatus refreshes the marketplace status and package of an order
func (r *GormMarketplaceOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status, shipmentPackageID string) error {
	return r.db.WithContext(ctx).
		Model(&models.MarketplaceOrderModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":              status,
			"shipment_package_id": shipmentPackageID,
			"updated_at":          time.Now().UTC(),
		}).Error
}

// GormStockBatchRepository implements sales.StockBatchRepository using GORM
type GormStockBatchRepository struct {
	db *gorm.DB
}

// NewGormStockBatchRepository creates a new GormStockBatchRepository
func NewGormStockBatchRepository(db *gorm.DB) *GormStockBatchRepository {
	return &GormStockBatchRepository{db: db}
}

// Create inserts a received lot
func (r *GormStockBatchRepository) Create(ctx context.Context, batch *sales.StockBatch) error {
	return r.db.WithContext(ctx).Create(models.StockBatchModelFromDomain(batch)).Error
}

// ListAvailable returns lots with stock left, oldest received first
func (r *GormStockBatchRepository) ListAvailable(ctx context.Context, companyID, productID uuid.UUID) ([]*sales.StockBatch, error) {
	var rows []models.StockBatchModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND product_id = ? AND remaining_qty > 0", companyID, productID).
		Order("received_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*sales.StockBatch, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Consume takes qty from a lot only if it still holds that much
func (r *GormStockBatchRepository) Consume(ctx context.Context, batchID uuid.UUID, qty int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.StockBatchModel{}).
		Where("id = ? AND remaining_qty >= ?", batchID, qty).
		UpdateColumn("remaining_qty", gorm.Expr("remaining_qty - ?", qty))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// GormProductResolver maps marketplace SKUs to local products through product_mappings
type GormProductResolver struct {
	db *gorm.DB
}

// NewGormProductResolver creates a new GormProductResolver
func NewGormProductResolver(db *gorm.DB) *GormProductResolver {
	return &GormProductResolver{db: db}
}

// ResolveProduct returns the mapped product, or nil when the SKU is unmapped
func (r *GormProductResolver) ResolveProduct(ctx context.Context, companyID uuid.UUID, marketplace integration.MarketplaceCode, sku string) (*uuid.UUID, error) {
	var model models.ProductMappingModel
	err := r.db.WithContext(ctx).
		First(&model, "company_id = ? AND marketplace = ? AND sku = ?", companyID, marketplace, sku).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &model.ProductID, nil
}

// Map links a SKU to a product, replacing any previous mapping
func (r *GormProductResolver) Map(ctx context.Context, companyID uuid.UUID, marketplace integration.MarketplaceCode, sku string, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company_id"}, {Name: "marketplace"}, {Name: "sku"}},
			DoUpdates: clause.AssignmentColumns([]string{"product_id"}),
		}).
		Create(&models.ProductMappingModel{
			ID:          uuid.New(),
			CompanyID:   companyID,
			Marketplace: marketplace,
			SKU:         sku,
			ProductID:   productID,
			CreatedAt:   time.Now().UTC(),
		}).Error
}

// GormHandlerReceiptRepository implements shared.HandlerReceiptRepository using GORM
type GormHandlerReceiptRepository struct {
	db *gorm.DB
}

// NewGormHandlerReceiptRepository creates a new GormHandlerReceiptRepository
func NewGormHandlerReceiptRepository(db *gorm.DB) *GormHandlerReceiptRepository {
	return &GormHandlerReceiptRepository{db: db}
}

// Record inserts the receipt; false means the handler already processed the event
func (r *GormHandlerReceiptRepository) Record(ctx context.Context, eventID uuid.UUID, handlerName string) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.HandlerReceiptModel{
			EventID:     eventID,
			HandlerName: handlerName,
			ProcessedAt: time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

var (
	_ sales.OrderRepository           = (*GormMarketplaceOrderRepository)(nil)
	_ sales.StockBatchRepository      = (*GormStockBatchRepository)(nil)
	_ integration.ProductResolver     = (*GormProductResolver)(nil)
	_ shared.HandlerReceiptRepository = (*GormHandlerReceiptRepository)(nil)
)

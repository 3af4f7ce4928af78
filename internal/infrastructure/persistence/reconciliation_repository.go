package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/reconciliation"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormExternalRequestRepository implements reconciliation.ExternalRequestRepository using GORM.
// Claim bookkeeping uses UpdateColumns so updated_at keeps tracking the last real state change,
// which is what the selection window is computed from.
type GormExternalRequestRepository struct {
	db *gorm.DB
}

// NewGormExternalRequestRepository creates a new GormExternalRequestRepository
func NewGormExternalRequestRepository(db *gorm.DB) *GormExternalRequestRepository {
	return &GormExternalRequestRepository{db: db}
}

// Create inserts a request log row
func (r *GormExternalRequestRepository) Create(ctx context.Context, req *reconciliation.ExternalRequest) error {
	return r.db.WithContext(ctx).Create(models.ExternalRequestModelFromDomain(req)).Error
}

// FindByID finds a request by its ID
func (r *GormExternalRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*reconciliation.ExternalRequest, error) {
	var model models.ExternalRequestModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindStalePending returns PENDING rows last touched inside [oldest, newest], oldest first
func (r *GormExternalRequestRepository) FindStalePending(ctx context.Context, provider, entityType string, oldest, newest time.Time, limit int) ([]*reconciliation.ExternalRequest, error) {
	var rows []models.ExternalRequestModel
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND entity_type = ? AND status = ?", provider, entityType, reconciliation.RequestPending).
		Where("updated_at >= ? AND updated_at <= ?", oldest, newest).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*reconciliation.ExternalRequest, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Claim takes the row for worker when it is PENDING and unclaimed or its lease has expired.
// False means another worker holds it.
func (r *GormExternalRequestRepository) Claim(ctx context.Context, id uuid.UUID, worker string, now time.Time, leaseTTL time.Duration) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ExternalRequestModel{}).
		Where("id = ? AND status = ?", id, reconciliation.RequestPending).
		Where("claimed_at IS NULL OR claimed_at < ?", now.Add(-leaseTTL)).
		UpdateColumns(map[string]any{
			"claimed_by": worker,
			"claimed_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReleaseClaim drops worker's claim and counts the attempt
func (r *GormExternalRequestRepository) ReleaseClaim(ctx context.Context, id uuid.UUID, worker string, lastError string) error {
	updates := map[string]any{
		"claimed_by": nil,
		"claimed_at": nil,
		"attempts":   gorm.Expr("attempts + 1"),
	}
	if lastError != "" {
		updates["last_error"] = lastError
	}
	return r.db.WithContext(ctx).
		Model(&models.ExternalRequestModel{}).
		Where("id = ? AND claimed_by = ?", id, worker).
		UpdateColumns(updates).Error
}

// MarkSuccess completes a request still claimed by worker
func (r *GormExternalRequestRepository) MarkSuccess(ctx context.Context, id uuid.UUID, worker string, response []byte) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ExternalRequestModel{}).
		Where("id = ? AND status = ? AND claimed_by = ?", id, reconciliation.RequestPending, worker).
		Updates(map[string]any{
			"status":           reconciliation.RequestSuccess,
			"response_payload": response,
			"claimed_by":       nil,
			"claimed_at":       nil,
			"last_error":       "",
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkFailed gives up on a PENDING request
func (r *GormExternalRequestRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ExternalRequestModel{}).
		Where("id = ? AND status = ?", id, reconciliation.RequestPending).
		Updates(map[string]any{
			"status":     reconciliation.RequestFailed,
			"last_error": reason,
			"claimed_by": nil,
			"claimed_at": nil,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// GormSalesInvoiceRepository implements reconciliation.InvoiceRepository using GORM
type GormSalesInvoiceRepository struct {
	db *gorm.DB
}

// NewGormSalesInvoiceRepository creates a new GormSalesInvoiceRepository
func NewGormSalesInvoiceRepository(db *gorm.DB) *GormSalesInvoiceRepository {
	return &GormSalesInvoiceRepository{db: db}
}

// Create inserts an invoice
func (r *GormSalesInvoiceRepository) Create(ctx context.Context, inv *reconciliation.SalesInvoice) error {
	return r.db.WithContext(ctx).Create(models.SalesInvoiceModelFromDomain(inv)).Error
}

// FindByID finds an invoice by its ID
func (r *GormSalesInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*reconciliation.SalesInvoice, error) {
	var model models.SalesInvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// MarkFormallySent records that the provider accepted the invoice
func (r *GormSalesInvoiceRepository) MarkFormallySent(ctx context.Context, id uuid.UUID, formalUUID string) error {
	return r.db.WithContext(ctx).
		Model(&models.SalesInvoiceModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_formal":     true,
			"formal_status": reconciliation.FormalSent,
			"formal_uuid":   formalUUID,
			"updated_at":    time.Now().UTC(),
		}).Error
}

// FormalUUIDsInUse returns which of uuids are attached to an invoice other than except
func (r *GormSalesInvoiceRepository) FormalUUIDsInUse(ctx context.Context, uuids []string, except uuid.UUID) (map[string]struct{}, error) {
	inUse := make(map[string]struct{})
	if len(uuids) == 0 {
		return inUse, nil
	}
	var taken []string
	if err := r.db.WithContext(ctx).
		Model(&models.SalesInvoiceModel{}).
		Where("formal_uuid IN ? AND id <> ?", uuids, except).
		Pluck("formal_uuid", &taken).Error; err != nil {
		return nil, err
	}
	for _, u := range taken {
		inUse[u] = struct{}{}
	}
	return inUse, nil
}

var (
	_ reconciliation.ExternalRequestRepository = (*GormExternalRequestRepository)(nil)
	_ reconciliation.InvoiceRepository         = (*GormSalesInvoiceRepository)(nil)
)

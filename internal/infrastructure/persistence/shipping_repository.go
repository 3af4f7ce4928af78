package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shipping"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormShipmentRepository implements shipping.ShipmentRepository using GORM
type GormShipmentRepository struct {
	db *gorm.DB
}

// NewGormShipmentRepository creates a new GormShipmentRepository
func NewGormShipmentRepository(db *gorm.DB) *GormShipmentRepository {
	return &GormShipmentRepository{db: db}
}

// CreateIfAbsent inserts the shipment unless the carrier already tracks that number
func (r *GormShipmentRepository) CreateIfAbsent(ctx context.Context, shipment *shipping.Shipment) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "carrier_code"}, {Name: "tracking_number"}},
			DoNothing: true,
		}).
		Create(models.ShipmentModelFromDomain(shipment))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindByTracking finds a shipment by tracking number and carrier
func (r *GormShipmentRepository) FindByTracking(ctx context.Context, trackingNumber, carrierCode string) (*shipping.Shipment, error) {
	var model models.ShipmentModel
	if err := r.db.WithContext(ctx).
		First(&model, "tracking_number = ? AND carrier_code = ?", trackingNumber, carrierCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByOrder returns the order's shipments by sequence
func (r *GormShipmentRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*shipping.Shipment, error) {
	var rows []models.ShipmentModel
	if err := r.db.WithContext(ctx).
		Where("network_order_id = ?", orderID).
		Order("sequence ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	shipments := make([]*shipping.Shipment, len(rows))
	for i := range rows {
		shipments[i] = rows[i].ToDomain()
	}
	return shipments, nil
}

// NextSequence returns one past the highest sequence used by the order
func (r *GormShipmentRepository) NextSequence(ctx context.Context, orderID uuid.UUID) (int, error) {
	var maxSeq *int
	if err := r.db.WithContext(ctx).
		Model(&models.ShipmentModel{}).
		Where("network_order_id = ?", orderID).
		Select("MAX(sequence)").
		Row().Scan(&maxSeq); err != nil {
		return 0, err
	}
	if maxSeq == nil {
		return 1, nil
	}
	return *maxSeq + 1, nil
}

// UpdateStatus moves the shipment from one status to another
func (r *GormShipmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to shipping.ShipmentStatus, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	if to.IsDeliveredOrLater() && !from.IsDeliveredOrLater() {
		updates["delivered_at"] = at
	}
	result := r.db.WithContext(ctx).
		Model(&models.ShipmentModel{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// AppendEvent writes an audit row
func (r *GormShipmentRepository) AppendEvent(ctx context.Context, event *shipping.ShipmentEvent) error {
	return r.db.WithContext(ctx).Create(models.ShipmentEventModelFromDomain(event)).Error
}

// GormShipmentInboxRepository implements shipping.InboxRepository using GORM
type GormShipmentInboxRepository struct {
	db *gorm.DB
}

// NewGormShipmentInboxRepository creates a new GormShipmentInboxRepository
func NewGormShipmentInboxRepository(db *gorm.DB) *GormShipmentInboxRepository {
	return &GormShipmentInboxRepository{db: db}
}

// InsertIfAbsent records the webhook unless its carrier event id was seen before
func (r *GormShipmentInboxRepository) InsertIfAbsent(ctx context.Context, row *shipping.ShipmentEventInbox) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "carrier_event_id"}}, DoNothing: true}).
		Create(models.ShipmentEventInboxModelFromDomain(row))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Finish moves the row to a terminal state
func (r *GormShipmentInboxRepository) Finish(ctx context.Context, id uuid.UUID, state shared.InboxState, shipmentID *uuid.UUID, errMsg string) error {
	return r.db.WithContext(ctx).
		Model(&models.ShipmentEventInboxModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"state":         state,
			"shipment_id":   shipmentID,
			"error_message": errMsg,
			"processed_at":  time.Now().UTC(),
		}).Error
}

// ListByState returns the oldest rows in the given state
func (r *GormShipmentInboxRepository) ListByState(ctx context.Context, state shared.InboxState, limit int) ([]*shipping.ShipmentEventInbox, error) {
	var rows []models.ShipmentEventInboxModel
	if err := r.db.WithContext(ctx).
		Where("state = ?", state).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*shipping.ShipmentEventInbox, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// FindByID loads one inbox row
func (r *GormShipmentInboxRepository) FindByID(ctx context.Context, id uuid.UUID) (*shipping.ShipmentEventInbox, error) {
	var model models.ShipmentEventInboxModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Reopen moves a FAILED row back to RECEIVED; false means it was not FAILED
func (r *GormShipmentInboxRepository) Reopen(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ShipmentEventInboxModel{}).
		Where("id = ? AND state = ?", id, shared.InboxFailed).
		Updates(map[string]any{
			"state":         shared.InboxReceived,
			"error_message": "",
			"processed_at":  nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

var (
	_ shipping.ShipmentRepository = (*GormShipmentRepository)(nil)
	_ shipping.InboxRepository    = (*GormShipmentInboxRepository)(nil)
)

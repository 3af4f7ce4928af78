package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shipping"
	"github.com/google/uuid"
)

// ShipmentModel is one parcel of a network order
type ShipmentModel struct {
	BaseModel
	NetworkOrderID uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:idx_shipments_order_seq,priority:1"`
	CarrierCode    string                  `gorm:"type:varchar(30);not null;uniqueIndex:idx_shipments_carrier_tracking,priority:1"`
	TrackingNumber string                  `gorm:"type:varchar(100);not null;uniqueIndex:idx_shipments_carrier_tracking,priority:2"`
	Sequence       int                     `gorm:"not null;uniqueIndex:idx_shipments_order_seq,priority:2"`
	Status         shipping.ShipmentStatus `gorm:"type:varchar(30);not null"`
	DeliveredAt    *time.Time
}

// TableName returns the table name for GORM
func (ShipmentModel) TableName() string {
	return "shipments"
}

// ToDomain converts the model to a domain Shipment
func (m *ShipmentModel) ToDomain() *shipping.Shipment {
	return &shipping.Shipment{
		ID:             m.ID,
		NetworkOrderID: m.NetworkOrderID,
		CarrierCode:    m.CarrierCode,
		TrackingNumber: m.TrackingNumber,
		Sequence:       m.Sequence,
		Status:         m.Status,
		DeliveredAt:    m.DeliveredAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// ShipmentModelFromDomain creates a model from a domain Shipment
func ShipmentModelFromDomain(s *shipping.Shipment) *ShipmentModel {
	return &ShipmentModel{
		BaseModel:      newBase(s.ID, s.CreatedAt, s.UpdatedAt),
		NetworkOrderID: s.NetworkOrderID,
		CarrierCode:    s.CarrierCode,
		TrackingNumber: s.TrackingNumber,
		Sequence:       s.Sequence,
		Status:         s.Status,
		DeliveredAt:    s.DeliveredAt,
	}
}

// ShipmentEventModel is an applied carrier transition. Rows are never updated.
type ShipmentEventModel struct {
	ID             uuid.UUID               `gorm:"type:uuid;primaryKey"`
	ShipmentID     uuid.UUID               `gorm:"type:uuid;not null;index"`
	FromStatus     shipping.ShipmentStatus `gorm:"type:varchar(30);not null"`
	ToStatus       shipping.ShipmentStatus `gorm:"type:varchar(30);not null"`
	Description    string                  `gorm:"type:text"`
	CarrierEventID string                  `gorm:"type:varchar(120)"`
	OccurredAt     time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ShipmentEventModel) TableName() string {
	return "shipment_events"
}

// ShipmentEventModelFromDomain creates a model from a domain ShipmentEvent
func ShipmentEventModelFromDomain(e *shipping.ShipmentEvent) *ShipmentEventModel {
	return &ShipmentEventModel{
		ID:             e.ID,
		ShipmentID:     e.ShipmentID,
		FromStatus:     e.FromStatus,
		ToStatus:       e.ToStatus,
		Description:    e.Description,
		CarrierEventID: e.CarrierEventID,
		OccurredAt:     e.OccurredAt,
	}
}

// ShipmentEventInboxModel is one carrier webhook, unique by carrier event id
type ShipmentEventInboxModel struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey"`
	CarrierEventID string            `gorm:"type:varchar(120);not null;uniqueIndex"`
	CarrierCode    string            `gorm:"type:varchar(30);not null"`
	TrackingNumber string            `gorm:"type:varchar(100);not null"`
	Status         string            `gorm:"type:varchar(30)"`
	Description    string            `gorm:"type:text"`
	Payload        []byte            `gorm:"type:jsonb;not null"`
	State          shared.InboxState `gorm:"type:varchar(20);not null;index:idx_shipment_inbox_state,priority:1"`
	ShipmentID     *uuid.UUID        `gorm:"type:uuid"`
	ErrorMessage   string            `gorm:"type:text"`
	ProcessedAt    *time.Time
	CreatedAt      time.Time `gorm:"not null;index:idx_shipment_inbox_state,priority:2"`
}

// TableName returns the table name for GORM
func (ShipmentEventInboxModel) TableName() string {
	return "shipment_event_inbox"
}

// ToDomain converts the model to a domain ShipmentEventInbox
func (m *ShipmentEventInboxModel) ToDomain() *shipping.ShipmentEventInbox {
	return &shipping.ShipmentEventInbox{
		ID:             m.ID,
		CarrierEventID: m.CarrierEventID,
		CarrierCode:    m.CarrierCode,
		TrackingNumber: m.TrackingNumber,
		Status:         m.Status,
		Description:    m.Description,
		Payload:        m.Payload,
		State:          m.State,
		ShipmentID:     m.ShipmentID,
		ErrorMessage:   m.ErrorMessage,
		ProcessedAt:    m.ProcessedAt,
		CreatedAt:      m.CreatedAt,
	}
}

// ShipmentEventInboxModelFromDomain creates a model from a domain ShipmentEventInbox
func ShipmentEventInboxModelFromDomain(e *shipping.ShipmentEventInbox) *ShipmentEventInboxModel {
	return &ShipmentEventInboxModel{
		ID:             e.ID,
		CarrierEventID: e.CarrierEventID,
		CarrierCode:    e.CarrierCode,
		TrackingNumber: e.TrackingNumber,
		Status:         e.Status,
		Description:    e.Description,
		Payload:        e.Payload,
		State:          e.State,
		ShipmentID:     e.ShipmentID,
		ErrorMessage:   e.ErrorMessage,
		ProcessedAt:    e.ProcessedAt,
		CreatedAt:      e.CreatedAt,
	}
}

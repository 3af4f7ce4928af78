package shipping

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// ShipmentRepository persists shipments and their audit trail
type ShipmentRepository interface {
	// CreateIfAbsent inserts unless (carrier_code, tracking_number) exists
	CreateIfAbsent(ctx context.Context, shipment *Shipment) (bool, error)
	FindByTracking(ctx context.Context, trackingNumber, carrierCode string) (*Shipment, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*Shipment, error)
	NextSequence(ctx context.Context, orderID uuid.UUID) (int, error)
	// UpdateStatus moves the shipment only if it is still in from; false means it moved meanwhile
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to ShipmentStatus, at time.Time) (bool, error)
	AppendEvent(ctx context.Context, event *ShipmentEvent) error
}

// InboxRepository persists carrier webhook inbox rows
type InboxRepository interface {
	// InsertIfAbsent returns false when the carrier event id was already recorded
	InsertIfAbsent(ctx context.Context, row *ShipmentEventInbox) (bool, error)
	Finish(ctx context.Context, id uuid.UUID, state shared.InboxState, shipmentID *uuid.UUID, errMsg string) error
	ListByState(ctx context.Context, state shared.InboxState, limit int) ([]*ShipmentEventInbox, error)
	FindByID(ctx context.Context, id uuid.UUID) (*ShipmentEventInbox, error)
	// Reopen moves a FAILED row back to RECEIVED for an operator replay; false means it was not FAILED
	Reopen(ctx context.Context, id uuid.UUID) (bool, error)
}

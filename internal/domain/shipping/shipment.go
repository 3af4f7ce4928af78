package shipping

import (
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// ShipmentStatus is the carrier-driven state of a parcel
type ShipmentStatus string

const (
	StatusCreated   ShipmentStatus = "CREATED"
	StatusInTransit ShipmentStatus = "IN_TRANSIT"
	StatusDelivered ShipmentStatus = "DELIVERED"
	StatusCompleted ShipmentStatus = "COMPLETED"
)

var statusRank = map[ShipmentStatus]int{
	StatusCreated:   0,
	StatusInTransit: 1,
	StatusDelivered: 2,
	StatusCompleted: 3,
}

// carrier vocabularies differ; these are the aliases seen in practice
var statusAliases = map[string]ShipmentStatus{
	"CREATED":          StatusCreated,
	"IN_TRANSIT":       StatusInTransit,
	"SHIPPED":          StatusInTransit,
	"PICKED_UP":        StatusInTransit,
	"OUT_FOR_DELIVERY": StatusInTransit,
	"DELIVERED":        StatusDelivered,
	"COMPLETED":        StatusCompleted,
}

var (
	ErrUnknownStatus      = shared.NewDomainError("UNKNOWN_SHIPMENT_STATUS", "Shipment status is not recognised")
	ErrBackwardTransition = shared.NewDomainError("BACKWARD_TRANSITION", "Shipment status can only move forward")
	ErrTerminalShipment   = shared.NewDomainError("TERMINAL_SHIPMENT", "Shipment is already delivered")
)

// ParseStatus maps a carrier status string onto the state machine
func ParseStatus(s string) (ShipmentStatus, error) {
	st, ok := statusAliases[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return "", ErrUnknownStatus
	}
	return st, nil
}

// IsTerminal reports whether carrier events should no longer move the shipment,
// except for the terminal-confirming COMPLETED.
func (s ShipmentStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCompleted
}

// IsDeliveredOrLater reports whether the parcel reached the buyer
func (s ShipmentStatus) IsDeliveredOrLater() bool {
	return statusRank[s] >= statusRank[StatusDelivered]
}

// CheckTransition returns nil if next is a legal forward step from s
func (s ShipmentStatus) CheckTransition(next ShipmentStatus) error {
	if s.IsTerminal() && next != StatusCompleted {
		return ErrTerminalShipment
	}
	if statusRank[next] <= statusRank[s] {
		return ErrBackwardTransition
	}
	return nil
}

// Shipment is one parcel of a network order. An order may ship in several parcels.
type Shipment struct {
	ID             uuid.UUID
	NetworkOrderID uuid.UUID
	CarrierCode    string
	TrackingNumber string
	Sequence       int
	Status         ShipmentStatus
	DeliveredAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewShipment creates a CREATED shipment
func NewShipment(orderID uuid.UUID, carrierCode, trackingNumber string, sequence int) *Shipment {
	now := time.Now().UTC()
	return &Shipment{
		ID:             uuid.New(),
		NetworkOrderID: orderID,
		CarrierCode:    strings.ToUpper(strings.TrimSpace(carrierCode)),
		TrackingNumber: strings.TrimSpace(trackingNumber),
		Sequence:       sequence,
		Status:         StatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// AllDelivered reports whether every shipment reached DELIVERED or later
func AllDelivered(shipments []*Shipment) bool {
	if len(shipments) == 0 {
		return false
	}
	for _, s := range shipments {
		if !s.Status.IsDeliveredOrLater() {
			return false
		}
	}
	return true
}

// ShipmentEvent is the immutable audit trail of applied carrier events
type ShipmentEvent struct {
	ID             uuid.UUID
	ShipmentID     uuid.UUID
	FromStatus     ShipmentStatus
	ToStatus       ShipmentStatus
	Description    string
	CarrierEventID string
	OccurredAt     time.Time
}

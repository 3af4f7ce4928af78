package shipping

import (
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

var ErrInvalidCarrierEvent = shared.NewDomainError("INVALID_CARRIER_EVENT", "Carrier event id, carrier code and tracking number are required")

// ShipmentEventInbox records one carrier webhook. The carrier event id is globally unique,
// so a second delivery of the same event finds the row and stops.
type ShipmentEventInbox struct {
	ID             uuid.UUID
	CarrierEventID string
	CarrierCode    string
	TrackingNumber string
	Status         string
	Description    string
	Payload        []byte
	State          shared.InboxState
	ShipmentID     *uuid.UUID
	ErrorMessage   string
	ProcessedAt    *time.Time
	CreatedAt      time.Time
}

// NewShipmentEventInbox validates the identifying fields and creates a RECEIVED row
func NewShipmentEventInbox(carrierEventID, carrierCode, trackingNumber, status, description string, payload []byte) (*ShipmentEventInbox, error) {
	carrierEventID = strings.TrimSpace(carrierEventID)
	carrierCode = strings.ToUpper(strings.TrimSpace(carrierCode))
	trackingNumber = strings.TrimSpace(trackingNumber)
	if carrierEventID == "" || carrierCode == "" || trackingNumber == "" {
		return nil, ErrInvalidCarrierEvent
	}
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	return &ShipmentEventInbox{
		ID:             uuid.New(),
		CarrierEventID: carrierEventID,
		CarrierCode:    carrierCode,
		TrackingNumber: trackingNumber,
		Status:         status,
		Description:    description,
		Payload:        payload,
		State:          shared.InboxReceived,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

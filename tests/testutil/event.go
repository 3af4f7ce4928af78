package testutil

import (
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// TestEvent is a domain event no production handler subscribes to.
type TestEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

// NewTestEvent creates a TestEvent of eventType for companyID.
func NewTestEvent(eventType string, companyID uuid.UUID) *TestEvent {
	return &TestEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New(), companyID),
		Data:            "test-data",
	}
}

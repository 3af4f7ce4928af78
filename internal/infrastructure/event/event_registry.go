package event

import (
	"github.com/erp/ledger/internal/domain/escrow"
	"github.com/erp/ledger/internal/domain/sales"
)

// RegisterAllEvents registers every event the ledger writes to the outbox.
// The outbox processor cannot deliver an event whose type is missing here.
func RegisterAllEvents(serializer *EventSerializer) {
	serializer.Register(escrow.EventOrderDelivered, &escrow.OrderDeliveredEvent{})
	serializer.Register(escrow.EventOrderCompleted, &escrow.OrderCompletedEvent{})
	serializer.Register(escrow.EventPayoutReleased, &escrow.PayoutReleasedEvent{})
	serializer.Register(escrow.EventPaymentPaid, &escrow.PaymentPaidEvent{})

	serializer.Register(sales.EventSaleCompleted, &sales.SaleCompletedEvent{})
}

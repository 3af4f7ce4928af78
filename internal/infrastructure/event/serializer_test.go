package event

import (
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/escrow"
	"github.com/erp/ledger/internal/domain/sales"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSerializer_Register(t *testing.T) {
	serializer := NewEventSerializer()

	serializer.Register("TestEvent", &testEvent{})

	assert.True(t, serializer.IsRegistered("TestEvent"))
	assert.False(t, serializer.IsRegistered("UnknownEvent"))
}

func TestRegisterAllEvents(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterAllEvents(serializer)

	types := serializer.RegisteredTypes()
	assert.ElementsMatch(t, []string{
		escrow.EventOrderDelivered,
		escrow.EventOrderCompleted,
		escrow.EventPayoutReleased,
		escrow.EventPaymentPaid,
		sales.EventSaleCompleted,
	}, types)
	assert.IsNonDecreasing(t, types)
}

func TestEventSerializer_Deserialize_TypeDisagreement(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterAllEvents(serializer)

	payload := []byte(`{"id":"` + uuid.NewString() + `","type":"` + sales.EventSaleCompleted + `"}`)
	_, err := serializer.Deserialize(escrow.EventPayoutReleased, payload)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "carries event type "+sales.EventSaleCompleted)
}

func TestEventSerializer_Serialize_Unregistered(t *testing.T) {
	serializer := NewEventSerializer()

	_, err := serializer.Serialize(newTestEvent("TestEvent", uuid.New()))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unregistered event type")
}

func TestEventSerializer_Deserialize_UnknownType(t *testing.T) {
	serializer := NewEventSerializer()

	_, err := serializer.Deserialize("UnknownEvent", []byte(`{}`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
}

func TestEventSerializer_Deserialize_InvalidJSON(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register("TestEvent", &testEvent{})

	_, err := serializer.Deserialize("TestEvent", []byte(`invalid json`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal")
}

func TestEventSerializer_Deserialize_MissingID(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register("TestEvent", &testEvent{})

	_, err := serializer.Deserialize("TestEvent", []byte(`{"data":"x"}`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no id")
}

func TestEventSerializer_RoundTrip_PayoutReleased(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterAllEvents(serializer)

	order := &escrow.NetworkOrder{
		ID:               uuid.New(),
		SellerCompanyID:  uuid.New(),
		BuyerCompanyID:   uuid.New(),
		OrderNumber:      "NO-1001",
		Subtotal:         decimal.NewFromInt(1000),
		CommissionAmount: decimal.NewFromInt(50),
		EscrowFee:        decimal.NewFromInt(10),
		Currency:         "TRY",
	}
	original := escrow.NewPayoutReleasedEvent(order, "buyer_confirmation")

	data, err := serializer.Serialize(original)
	require.NoError(t, err)

	decoded, err := serializer.Deserialize(escrow.EventPayoutReleased, data)
	require.NoError(t, err)

	event, ok := decoded.(*escrow.PayoutReleasedEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), event.EventID())
	assert.Equal(t, order.SellerCompanyID, event.CompanyID())
	assert.Equal(t, escrow.AggregateNetworkOrder, event.AggregateType())
	assert.True(t, decimal.NewFromInt(940).Equal(event.SellerNet))
	assert.Equal(t, "buyer_confirmation", event.TriggeredBy)
}

func TestEventSerializer_RoundTrip_PreservesBaseFields(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register("TestEvent", &testEvent{})

	original := &testEvent{
		BaseDomainEvent: shared.BaseDomainEvent{
			ID:             uuid.New(),
			Type:           "TestEvent",
			Timestamp:      time.Now().UTC().Truncate(time.Second),
			AggID:          uuid.New(),
			AggType:        "TestAggregate",
			CompanyIDValue: uuid.New(),
			Version:        1,
		},
		Data: "important data",
	}

	data, err := serializer.Serialize(original)
	require.NoError(t, err)

	decoded, err := serializer.Deserialize("TestEvent", data)
	require.NoError(t, err)

	event := decoded.(*testEvent)
	assert.Equal(t, original.EventID(), event.EventID())
	assert.Equal(t, original.EventType(), event.EventType())
	assert.Equal(t, original.AggregateID(), event.AggregateID())
	assert.Equal(t, original.CompanyID(), event.CompanyID())
	assert.True(t, original.OccurredAt().Equal(event.OccurredAt()))
	assert.Equal(t, original.Data, event.Data)
}

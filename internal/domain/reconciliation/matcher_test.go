package reconciliation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invoice(total, tax string) *SalesInvoice {
	return &SalesInvoice{
		ID:                uuid.New(),
		InvoiceNo:         "INV-1",
		ReceiverTaxNumber: tax,
		TotalAmount:       decimal.RequireFromString(total),
	}
}

func remote(amount, tax string) RemoteInvoice {
	return RemoteInvoice{UUID: uuid.NewString(), Amount: decimal.RequireFromString(amount), ReceiverTaxNumber: tax}
}

func TestMatcher_Matches(t *testing.T) {
	m := NewMatcher(decimal.Zero)
	local := invoice("1180.00", "1234567890")

	tests := []struct {
		name   string
		remote RemoteInvoice
		want   bool
	}{
		{"exact", remote("1180.00", "1234567890"), true},
		{"within tolerance", remote("1180.05", "1234567890"), true},
		{"below within tolerance", remote("1179.95", "1234567890"), true},
		{"outside tolerance", remote("1180.06", "1234567890"), false},
		{"same amount different tax id", remote("1180.00", "9999999999"), false},
		{"tax id with padding", remote("1180.00", " 1234567890 "), true},
		{"empty remote tax id", remote("1180.00", ""), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Matches(local, tt.remote))
		})
	}
}

func TestMatcher_EmptyLocalTaxIDNeverMatches(t *testing.T) {
	m := NewMatcher(decimal.Zero)
	assert.False(t, m.Matches(invoice("10", ""), remote("10", "")))
}

func TestMatcher_FindMatchPrefersClosestAmount(t *testing.T) {
	m := NewMatcher(decimal.Zero)
	local := invoice("500.00", "111")
	far := remote("500.04", "111")
	near := remote("500.01", "111")
	wrong := remote("500.00", "222")

	got, ok := m.FindMatch(local, []RemoteInvoice{wrong, far, near})
	assert.True(t, ok)
	assert.Equal(t, near.UUID, got.UUID)

	_, ok = m.FindMatch(local, []RemoteInvoice{wrong})
	assert.False(t, ok)
}

func TestUnclaimed(t *testing.T) {
	a, b := remote("10", "1"), remote("10", "1")
	a.UUID, b.UUID = "uuid-a", "uuid-b"

	assert.Len(t, Unclaimed([]RemoteInvoice{a, b}, nil), 2)
	got := Unclaimed([]RemoteInvoice{a, b}, map[string]struct{}{"uuid-a": {}})
	require.Len(t, got, 1)
	assert.Equal(t, "uuid-b", got[0].UUID)
}

func TestWindow_Contains(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	w := Window{CoolDown: 5 * time.Minute, Staleness: 24 * time.Hour}

	assert.False(t, w.Contains(now.Add(-time.Minute), now), "inside cool-down")
	assert.True(t, w.Contains(now.Add(-10*time.Minute), now))
	assert.True(t, w.Contains(now.Add(-23*time.Hour), now))
	assert.False(t, w.Contains(now.Add(-25*time.Hour), now), "past staleness ceiling")
}

package reconciliation

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus is the known outcome of an outbound third-party call
type RequestStatus string

const (
	RequestPending RequestStatus = "PENDING"
	RequestSuccess RequestStatus = "SUCCESS"
	RequestFailed  RequestStatus = "FAILED"
)

// Providers and entity types tracked by the worker
const (
	ProviderNilvera        = "NILVERA"
	EntityTypeSalesInvoice = "SALES_INVOICE"
)

// ExternalRequest tracks an outbound call whose response may have been lost.
// Only the reconciliation worker moves a stale PENDING row.
type ExternalRequest struct {
	ID              uuid.UUID
	CompanyID       uuid.UUID
	Provider        string
	EntityType      string
	EntityID        uuid.UUID
	Status          RequestStatus
	RequestPayload  []byte
	ResponsePayload []byte
	ClaimedBy       *string
	ClaimedAt       *time.Time
	Attempts        int
	LastError       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Window bounds the rows a reconciliation run may pick up
type Window struct {
	CoolDown  time.Duration
	Staleness time.Duration
}

// Bounds returns the updated_at range [oldest, newest] eligible at now
func (w Window) Bounds(now time.Time) (oldest, newest time.Time) {
	return now.Add(-w.Staleness), now.Add(-w.CoolDown)
}

// Contains reports whether a row last touched at t is eligible at now
func (w Window) Contains(t, now time.Time) bool {
	oldest, newest := w.Bounds(now)
	return !t.Before(oldest) && !t.After(newest)
}

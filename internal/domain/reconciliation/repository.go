package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ExternalRequestRepository persists outbound call records
type ExternalRequestRepository interface {
	Create(ctx context.Context, req *ExternalRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*ExternalRequest, error)
	// FindStalePending returns PENDING rows whose updated_at falls inside [oldest, newest], oldest first
	FindStalePending(ctx context.Context, provider, entityType string, oldest, newest time.Time, limit int) ([]*ExternalRequest, error)
	// Claim leases a PENDING row to worker; rows with a live lease by someone else are not claimed
	Claim(ctx context.Context, id uuid.UUID, worker string, now time.Time, leaseTTL time.Duration) (bool, error)
	// ReleaseClaim drops the lease without touching updated_at so the window is unaffected
	ReleaseClaim(ctx context.Context, id uuid.UUID, worker string, lastError string) error
	// MarkSuccess completes a row held by worker
	MarkSuccess(ctx context.Context, id uuid.UUID, worker string, response []byte) (bool, error)
	// MarkFailed moves a PENDING row to FAILED
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error)
}

// InvoiceRepository persists sales invoices
type InvoiceRepository interface {
	Create(ctx context.Context, inv *SalesInvoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*SalesInvoice, error)
	// MarkFormallySent attaches the provider UUID and flags the invoice as sent
	MarkFormallySent(ctx context.Context, id uuid.UUID, formalUUID string) error
	// FormalUUIDsInUse returns which of uuids are attached to an invoice other than except
	FormalUUIDsInUse(ctx context.Context, uuids []string, except uuid.UUID) (map[string]struct{}, error)
}

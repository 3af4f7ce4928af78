package reconciliation

import (
	"context"
	"time"
)

// EInvoiceProvider is the read side of the e-invoice integrator
type EInvoiceProvider interface {
	ListInvoices(ctx context.Context, start, end time.Time, invoiceType InvoiceType) ([]RemoteInvoice, error)
}

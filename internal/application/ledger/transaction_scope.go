// Package ledger defines the unit of work every ledger and escrow mutation runs in.
package ledger

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/accounting"
	"github.com/erp/ledger/internal/domain/escrow"
	"github.com/erp/ledger/internal/domain/reconciliation"
	"github.com/erp/ledger/internal/domain/sales"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shipping"
)

// TransactionScope runs a function inside one database transaction.
// If the function returns an error, the transaction is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes every repository bound to the current transaction.
// Events emitted through Events() commit or roll back together with the writes.
type TransactionalRepositories interface {
	AccountRepo() accounting.AccountRepository
	JournalRepo() accounting.JournalRepository

	NetworkOrderRepo() escrow.OrderRepository
	PaymentRepo() escrow.PaymentRepository
	SellerLedgerRepo() escrow.SellerLedgerRepository
	PaymentInboxRepo() escrow.PaymentInboxRepository

	ShipmentRepo() shipping.ShipmentRepository
	ShipmentInboxRepo() shipping.InboxRepository

	ExternalRequestRepo() reconciliation.ExternalRequestRepository
	InvoiceRepo() reconciliation.InvoiceRepository

	SalesOrderRepo() sales.OrderRepository
	StockBatchRepo() sales.StockBatchRepository

	HandlerReceiptRepo() shared.HandlerReceiptRepository
	Events() shared.EventEmitter
}

// UTCNow is the default clock of the ledger services. Stored timestamps are always UTC.
func UTCNow() time.Time {
	return time.Now().UTC()
}

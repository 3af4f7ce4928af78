package persistence

import (
	"context"
	"errors"

	"github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/accounting"
	"github.com/erp/ledger/internal/domain/escrow"
	"github.com/erp/ledger/internal/domain/reconciliation"
	"github.com/erp/ledger/internal/domain/sales"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shipping"
	"gorm.io/gorm"
)

// OutboxWriter stores events in the outbox using the caller's transaction
type OutboxWriter interface {
	PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error
}

// GormTransactionScope implements ledger.TransactionScope using GORM transactions.
// Every repository and the event emitter handed to fn share one transaction.
type GormTransactionScope struct {
	db     *gorm.DB
	outbox OutboxWriter
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB, outbox OutboxWriter) *GormTransactionScope {
	return &GormTransactionScope{db: db, outbox: outbox}
}

// Execute runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back together with any emitted events.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos ledger.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, outbox: s.outbox})
	})
}

type gormTransactionalRepositories struct {
	tx     *gorm.DB
	outbox OutboxWriter
}

func (r *gormTransactionalRepositories) AccountRepo() accounting.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

func (r *gormTransactionalRepositories) JournalRepo() accounting.JournalRepository {
	return NewGormJournalRepository(r.tx)
}

func (r *gormTransactionalRepositories) NetworkOrderRepo() escrow.OrderRepository {
	return NewGormNetworkOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) PaymentRepo() escrow.PaymentRepository {
	return NewGormNetworkPaymentRepository(r.tx)
}

func (r *gormTransactionalRepositories) SellerLedgerRepo() escrow.SellerLedgerRepository {
	return NewGormSellerLedgerRepository(r.tx)
}

func (r *gormTransactionalRepositories) PaymentInboxRepo() escrow.PaymentInboxRepository {
	return NewGormPaymentInboxRepository(r.tx)
}

func (r *gormTransactionalRepositories) ShipmentRepo() shipping.ShipmentRepository {
	return NewGormShipmentRepository(r.tx)
}

func (r *gormTransactionalRepositories) ShipmentInboxRepo() shipping.InboxRepository {
	return NewGormShipmentInboxRepository(r.tx)
}

func (r *gormTransactionalRepositories) ExternalRequestRepo() reconciliation.ExternalRequestRepository {
	return NewGormExternalRequestRepository(r.tx)
}

func (r *gormTransactionalRepositories) InvoiceRepo() reconciliation.InvoiceRepository {
	return NewGormSalesInvoiceRepository(r.tx)
}

func (r *gormTransactionalRepositories) SalesOrderRepo() sales.OrderRepository {
	return NewGormMarketplaceOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) StockBatchRepo() sales.StockBatchRepository {
	return NewGormStockBatchRepository(r.tx)
}

func (r *gormTransactionalRepositories) HandlerReceiptRepo() shared.HandlerReceiptRepository {
	return NewGormHandlerReceiptRepository(r.tx)
}

// Events returns an emitter that writes into the outbox inside this transaction
func (r *gormTransactionalRepositories) Events() shared.EventEmitter {
	return (*txEmitter)(r)
}

var errOutboxNotConfigured = errors.New("transaction scope has no outbox writer")

type txEmitter gormTransactionalRepositories

func (e *txEmitter) Emit(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	if e.outbox == nil {
		return errOutboxNotConfigured
	}
	return e.outbox.PublishWithTx(ctx, e.tx, events...)
}

var (
	_ ledger.TransactionScope          = (*GormTransactionScope)(nil)
	_ ledger.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)

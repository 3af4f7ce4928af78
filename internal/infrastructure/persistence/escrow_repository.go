package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/escrow"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormNetworkOrderRepository implements escrow.OrderRepository using GORM
type GormNetworkOrderRepository struct {
	db *gorm.DB
}

// NewGormNetworkOrderRepository creates a new GormNetworkOrderRepository
func NewGormNetworkOrderRepository(db *gorm.DB) *GormNetworkOrderRepository {
	return &GormNetworkOrderRepository{db: db}
}

// Create inserts a new order
func (r *GormNetworkOrderRepository) Create(ctx context.Context, order *escrow.NetworkOrder) error {
	err := r.db.WithContext(ctx).Create(models.NetworkOrderModelFromDomain(order)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

// FindByID finds an order by its ID
func (r *GormNetworkOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*escrow.NetworkOrder, error) {
	var model models.NetworkOrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// AdvanceStatus moves the order to next when its status is one of from
func (r *GormNetworkOrderRepository) AdvanceStatus(ctx context.Context, id uuid.UUID, from []escrow.OrderStatus, next escrow.OrderStatus, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":     next,
		"updated_at": at,
	}
	if next == escrow.OrderCompleted {
		updates["completed_at"] = at
	}
	result := r.db.WithContext(ctx).
		Model(&models.NetworkOrderModel{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// GormNetworkPaymentRepository implements escrow.PaymentRepository using GORM.
// Every state edge is a conditional update so concurrent writers cannot move a payment backwards.
type GormNetworkPaymentRepository struct {
	db *gorm.DB
}

// NewGormNetworkPaymentRepository creates a new GormNetworkPaymentRepository
func NewGormNetworkPaymentRepository(db *gorm.DB) *GormNetworkPaymentRepository {
	return &GormNetworkPaymentRepository{db: db}
}

// CreateIfAbsent inserts the payment unless its attempt key exists
func (r *GormNetworkPaymentRepository) CreateIfAbsent(ctx context.Context, payment *escrow.NetworkPayment) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "attempt_key"}}, DoNothing: true}).
		Create(models.NetworkPaymentModelFromDomain(payment))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormNetworkPaymentRepository) first(ctx context.Context, query string, args ...any) (*escrow.NetworkPayment, error) {
	var model models.NetworkPaymentModel
	if err := r.db.WithContext(ctx).Where(query, args...).Order("created_at DESC").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByAttemptKey finds a payment by its capture attempt key
func (r *GormNetworkPaymentRepository) FindByAttemptKey(ctx context.Context, attemptKey string) (*escrow.NetworkPayment, error) {
	return r.first(ctx, "attempt_key = ?", attemptKey)
}

// FindByProviderRef finds a payment by the provider's reference
func (r *GormNetworkPaymentRepository) FindByProviderRef(ctx context.Context, provider, providerRef string) (*escrow.NetworkPayment, error) {
	return r.first(ctx, "provider = ? AND provider_ref = ?", provider, providerRef)
}

// FindLatestByOrder returns the PAID payment of the order, or its latest attempt
func (r *GormNetworkPaymentRepository) FindLatestByOrder(ctx context.Context, orderID uuid.UUID) (*escrow.NetworkPayment, error) {
	p, err := r.first(ctx, "network_order_id = ? AND status = ?", orderID, escrow.PaymentPaid)
	if err == nil || !errors.Is(err, shared.ErrNotFound) {
		return p, err
	}
	return r.first(ctx, "network_order_id = ?", orderID)
}

// MarkPaid moves INITIATED to PAID
func (r *GormNetworkPaymentRepository) MarkPaid(ctx context.Context, id uuid.UUID, providerRef string, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":     escrow.PaymentPaid,
		"paid_at":    at,
		"updated_at": at,
	}
	if providerRef != "" {
		updates["provider_ref"] = providerRef
	}
	return r.transition(ctx, updates, "id = ? AND status = ?", id, escrow.PaymentInitiated)
}

// MarkFailed moves INITIATED to FAILED
func (r *GormNetworkPaymentRepository) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	updates := map[string]any{
		"status":     escrow.PaymentFailed,
		"updated_at": time.Now().UTC(),
	}
	return r.transition(ctx, updates, "id = ? AND status = ?", id, escrow.PaymentInitiated)
}

// MarkReleased moves the payout PENDING to RELEASED on a PAID escrow payment
func (r *GormNetworkPaymentRepository) MarkReleased(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	updates := map[string]any{
		"payout_status": escrow.PayoutReleased,
		"released_at":   at,
		"updated_at":    at,
	}
	return r.transition(ctx, updates,
		"id = ? AND status = ? AND mode = ? AND payout_status = ?",
		id, escrow.PaymentPaid, escrow.ModeEscrow, escrow.PayoutPending)
}

func (r *GormNetworkPaymentRepository) transition(ctx context.Context, updates map[string]any, query string, args ...any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.NetworkPaymentModel{}).
		Where(query, args...).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// LockedEscrow sums held escrow across the seller's orders
func (r *GormNetworkPaymentRepository) LockedEscrow(ctx context.Context, sellerCompanyID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Table("network_payments AS p").
		Joins("JOIN network_orders AS o ON o.id = p.network_order_id").
		Where("o.seller_company_id = ? AND p.mode = ? AND p.status = ? AND p.payout_status = ?",
			sellerCompanyID, escrow.ModeEscrow, escrow.PaymentPaid, escrow.PayoutPending).
		Select("SUM(p.amount)").
		Row().Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return nullToZero(sum), nil
}

// FindReleasableCompletedBefore lists completed orders whose escrow is still held
func (r *GormNetworkPaymentRepository) FindReleasableCompletedBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Table("network_orders AS o").
		Joins("JOIN network_payments AS p ON p.network_order_id = o.id").
		Where("o.status = ? AND o.completed_at < ?", escrow.OrderCompleted, cutoff).
		Where("p.mode = ? AND p.status = ? AND p.payout_status = ?",
			escrow.ModeEscrow, escrow.PaymentPaid, escrow.PayoutPending).
		Order("o.completed_at ASC").
		Limit(limit).
		Pluck("o.id", &ids).Error
	return ids, err
}

// GormSellerLedgerRepository implements escrow.SellerLedgerRepository using GORM
type GormSellerLedgerRepository struct {
	db *gorm.DB
}

// NewGormSellerLedgerRepository creates a new GormSellerLedgerRepository
func NewGormSellerLedgerRepository(db *gorm.DB) *GormSellerLedgerRepository {
	return &GormSellerLedgerRepository{db: db}
}

// InsertIfAbsent inserts the movement unless its idempotency key exists
func (r *GormSellerLedgerRepository) InsertIfAbsent(ctx context.Context, entry *escrow.SellerLedgerEntry) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "idempotency_key"}}, DoNothing: true}).
		Create(models.SellerLedgerEntryModelFromDomain(entry))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// InsertCommissionIfAbsent inserts the commission row unless its idempotency key exists
func (r *GormSellerLedgerRepository) InsertCommissionIfAbsent(ctx context.Context, entry *escrow.CommissionLedgerEntry) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "idempotency_key"}}, DoNothing: true}).
		Create(models.CommissionLedgerModelFromDomain(entry))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

type ledgerSumsRow struct {
	Credit decimal.NullDecimal
	Debit  decimal.NullDecimal
}

// Sums returns total credits and debits of the seller
func (r *GormSellerLedgerRepository) Sums(ctx context.Context, sellerCompanyID uuid.UUID) (credit, debit decimal.Decimal, err error) {
	var row ledgerSumsRow
	err = r.db.WithContext(ctx).
		Model(&models.SellerLedgerEntryModel{}).
		Where("seller_company_id = ?", sellerCompanyID).
		Select(
			"SUM(CASE WHEN entry_type = ? THEN amount ELSE 0 END) AS credit, "+
				"SUM(CASE WHEN entry_type = ? THEN amount ELSE 0 END) AS debit",
			escrow.EntryCredit, escrow.EntryDebit,
		).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return nullToZero(row.Credit), nullToZero(row.Debit), nil
}

// ApplyToBalanceCache adds delta to the seller's cached balance, creating the row on first use
func (r *GormSellerLedgerRepository) ApplyToBalanceCache(ctx context.Context, sellerCompanyID uuid.UUID, delta decimal.Decimal, currency string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "seller_company_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"balance":    gorm.Expr("seller_balances.balance + ?", delta),
				"updated_at": now,
			}),
		}).
		Create(&models.SellerBalanceModel{
			SellerCompanyID: sellerCompanyID,
			Balance:         delta,
			Currency:        currency,
			UpdatedAt:       now,
		}).Error
}

// GormPaymentInboxRepository implements escrow.PaymentInboxRepository using GORM
type GormPaymentInboxRepository struct {
	db *gorm.DB
}

// NewGormPaymentInboxRepository creates a new GormPaymentInboxRepository
func NewGormPaymentInboxRepository(db *gorm.DB) *GormPaymentInboxRepository {
	return &GormPaymentInboxRepository{db: db}
}

// InsertIfAbsent records the webhook unless the provider event id was seen before
func (r *GormPaymentInboxRepository) InsertIfAbsent(ctx context.Context, row *escrow.PaymentEventInbox) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.PaymentEventInboxModelFromDomain(row))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Finish moves the row to a terminal state
func (r *GormPaymentInboxRepository) Finish(ctx context.Context, id uuid.UUID, state shared.InboxState, paymentID *uuid.UUID, errMsg string) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentEventInboxModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"state":         state,
			"payment_id":    paymentID,
			"error_message": errMsg,
			"processed_at":  time.Now().UTC(),
		}).Error
}

var (
	_ escrow.OrderRepository        = (*GormNetworkOrderRepository)(nil)
	_ escrow.PaymentRepository      = (*GormNetworkPaymentRepository)(nil)
	_ escrow.SellerLedgerRepository = (*GormSellerLedgerRepository)(nil)
	_ escrow.PaymentInboxRepository = (*GormPaymentInboxRepository)(nil)
)

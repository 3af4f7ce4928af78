// Package escrow runs the B2B network payment flow: capture, payout release
// and the seller balance derived from the escrow ledger.
package escrow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/escrow"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/erp/ledger/internal/domain/shipping"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Release triggers recorded on ledger rows and events
const (
	TriggeredByBuyer          = "buyer"
	TriggeredByReconciliation = "reconciliation"
	TriggeredByOperator       = "operator"
)

// CreateOrderCommand opens a network order awaiting payment
type CreateOrderCommand struct {
	OrderNumber      string
	BuyerCompanyID   uuid.UUID
	SellerCompanyID  uuid.UUID
	Subtotal         decimal.Decimal
	CommissionAmount decimal.Decimal
	EscrowFee        decimal.Decimal
	Currency         string
}

// CaptureCommand starts a payment attempt for an order
type CaptureCommand struct {
	OrderID     uuid.UUID
	Amount      decimal.Decimal
	Currency    string
	Mode        escrow.PaymentMode
	Provider    string
	AttemptKey  string
	ProviderRef string
}

// PaymentResult is the payment after an idempotent operation
type PaymentResult struct {
	Payment *escrow.NetworkPayment
	Outcome shared.Outcome
}

// ReleaseResult is the seller balance after a release
type ReleaseResult struct {
	Balance *escrow.Balance
	Outcome shared.Outcome
}

// EscrowService manages network payments and seller balances
type EscrowService struct {
	scope   ledger.TransactionScope
	metrics ledger.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewEscrowService creates an EscrowService
func NewEscrowService(scope ledger.TransactionScope, metrics ledger.Metrics, logger *zap.Logger) *EscrowService {
	return &EscrowService{
		scope:   scope,
		metrics: ledger.OrNoop(metrics),
		logger:  logger,
		now:     ledger.UTCNow,
	}
}

// CreateOrder records a new network order in PENDING_PAYMENT
func (s *EscrowService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*escrow.NetworkOrder, error) {
	currency, err := valueobject.ParseCurrency(cmd.Currency)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cmd.OrderNumber) == "" {
		return nil, fmt.Errorf("%w: order number is required", shared.ErrInvalidInput)
	}
	now := s.now()
	order := &escrow.NetworkOrder{
		ID:               uuid.New(),
		OrderNumber:      strings.TrimSpace(cmd.OrderNumber),
		BuyerCompanyID:   cmd.BuyerCompanyID,
		SellerCompanyID:  cmd.SellerCompanyID,
		Subtotal:         currency.Round(cmd.Subtotal),
		CommissionAmount: currency.Round(cmd.CommissionAmount),
		EscrowFee:        currency.Round(cmd.EscrowFee),
		Currency:         string(currency),
		Status:           escrow.OrderPendingPayment,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := order.CheckAmounts(); err != nil {
		return nil, err
	}
	if err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		return repos.NetworkOrderRepo().Create(ctx, order)
	}); err != nil {
		return nil, fmt.Errorf("failed to create network order: %w", err)
	}
	return order, nil
}

// Capture creates an INITIATED payment keyed by the attempt key.
// Repeating an attempt key returns the stored payment unchanged.
func (s *EscrowService) Capture(ctx context.Context, cmd CaptureCommand) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "escrow", "capture")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, cmd.OrderID.String(),
		telemetry.SpanAttrAmount, cmd.Amount.String(),
	)

	currency, err := valueobject.ParseCurrency(cmd.Currency)
	if err != nil {
		return nil, err
	}
	provider := strings.ToUpper(strings.TrimSpace(cmd.Provider))
	if provider == "" {
		return nil, fmt.Errorf("%w: provider is required", shared.ErrInvalidInput)
	}
	payment, err := escrow.NewNetworkPayment(cmd.OrderID, provider, cmd.Mode, cmd.Amount, string(currency), cmd.AttemptKey)
	if err != nil {
		return nil, err
	}
	payment.AttemptKey = strings.TrimSpace(payment.AttemptKey)
	payment.ProviderRef = strings.TrimSpace(cmd.ProviderRef)

	result := &PaymentResult{Payment: payment, Outcome: shared.Processed()}
	err = s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		order, err := repos.NetworkOrderRepo().FindByID(ctx, cmd.OrderID)
		if err != nil {
			return fmt.Errorf("network order %s: %w", cmd.OrderID, err)
		}
		if order.Currency != payment.Currency {
			return fmt.Errorf("%w: order is %s, payment is %s", valueobject.ErrCurrencyMismatch, order.Currency, payment.Currency)
		}
		if payment.Mode == escrow.ModeEscrow && !payment.Amount.Equal(order.Subtotal) {
			return fmt.Errorf("%w: escrow holds the order subtotal %s, got %s", escrow.ErrInvalidAmount, order.Subtotal, payment.Amount)
		}
		created, err := repos.PaymentRepo().CreateIfAbsent(ctx, payment)
		if err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		if created {
			return nil
		}
		existing, err := repos.PaymentRepo().FindByAttemptKey(ctx, payment.AttemptKey)
		if err != nil {
			return err
		}
		result.Payment = existing
		result.Outcome = shared.AlreadyProcessed()
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("payment captured",
		zap.String("payment_id", result.Payment.ID.String()),
		zap.String("order_id", cmd.OrderID.String()),
		zap.String("attempt_key", payment.AttemptKey),
		zap.String("outcome", string(result.Outcome.Kind)),
	)
	return result, nil
}

// MarkPaid settles an INITIATED payment and moves its order to PAID
func (s *EscrowService) MarkPaid(ctx context.Context, attemptKey, providerRef string) (*PaymentResult, error) {
	var result *PaymentResult
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		payment, err := repos.PaymentRepo().FindByAttemptKey(ctx, attemptKey)
		if err != nil {
			return fmt.Errorf("payment %s: %w", attemptKey, err)
		}
		result, err = s.markPaidWithin(ctx, repos, payment, providerRef)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *EscrowService) markPaidWithin(ctx context.Context, repos ledger.TransactionalRepositories, payment *escrow.NetworkPayment, providerRef string) (*PaymentResult, error) {
	if payment.Status == escrow.PaymentPaid {
		return &PaymentResult{Payment: payment, Outcome: shared.AlreadyProcessed()}, nil
	}
	if !payment.CanMarkPaid() {
		return nil, escrow.ErrPaymentNotPending
	}
	if providerRef == "" {
		providerRef = payment.ProviderRef
	}
	now := s.now()
	ok, err := repos.PaymentRepo().MarkPaid(ctx, payment.ID, providerRef, now)
	if err != nil {
		return nil, fmt.Errorf("failed to mark payment paid: %w", err)
	}
	if !ok {
		return &PaymentResult{Payment: payment, Outcome: shared.AlreadyProcessed()}, nil
	}
	advanced, err := repos.NetworkOrderRepo().AdvanceStatus(ctx, payment.NetworkOrderID,
		[]escrow.OrderStatus{escrow.OrderPendingPayment}, escrow.OrderPaid, now)
	if err != nil {
		return nil, fmt.Errorf("failed to advance order: %w", err)
	}
	if !advanced {
		s.logger.Warn("order was not pending payment when its payment settled",
			zap.String("order_id", payment.NetworkOrderID.String()),
			zap.String("payment_id", payment.ID.String()),
		)
	}
	payment.Status = escrow.PaymentPaid
	payment.ProviderRef = providerRef
	payment.PaidAt = &now

	order, err := repos.NetworkOrderRepo().FindByID(ctx, payment.NetworkOrderID)
	if err != nil {
		return nil, fmt.Errorf("network order %s: %w", payment.NetworkOrderID, err)
	}
	if err := repos.Events().Emit(ctx, escrow.NewPaymentPaidEvent(order, payment)); err != nil {
		return nil, fmt.Errorf("failed to emit payment event: %w", err)
	}
	return &PaymentResult{Payment: payment, Outcome: shared.Processed()}, nil
}

// MarkFailed closes an INITIATED payment as FAILED
func (s *EscrowService) MarkFailed(ctx context.Context, attemptKey string) (*PaymentResult, error) {
	var result *PaymentResult
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		payment, err := repos.PaymentRepo().FindByAttemptKey(ctx, attemptKey)
		if err != nil {
			return fmt.Errorf("payment %s: %w", attemptKey, err)
		}
		result, err = s.markFailedWithin(ctx, repos, payment)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.For(ctx, s.logger).Info("payment failed",
		zap.String("payment_id", result.Payment.ID.String()),
		zap.String("outcome", string(result.Outcome.Kind)),
	)
	return result, nil
}

func (s *EscrowService) markFailedWithin(ctx context.Context, repos ledger.TransactionalRepositories, payment *escrow.NetworkPayment) (*PaymentResult, error) {
	if payment.Status == escrow.PaymentFailed {
		return &PaymentResult{Payment: payment, Outcome: shared.AlreadyProcessed()}, nil
	}
	ok, err := repos.PaymentRepo().MarkFailed(ctx, payment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark payment failed: %w", err)
	}
	if !ok {
		return nil, escrow.ErrPaymentNotPending
	}
	payment.Status = escrow.PaymentFailed
	return &PaymentResult{Payment: payment, Outcome: shared.Processed()}, nil
}

// Release pays an order's escrow out to the seller. Only a PAID escrow payment
// with a PENDING payout can be released; repeating a release is a no-op.
func (s *EscrowService) Release(ctx context.Context, orderID uuid.UUID, triggeredBy string) (*ReleaseResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "escrow", "release")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, orderID.String(), telemetry.SpanAttrTriggeredBy, triggeredBy)

	result := &ReleaseResult{}
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		order, err := repos.NetworkOrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("network order %s: %w", orderID, err)
		}
		payment, err := repos.PaymentRepo().FindLatestByOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("payment of order %s: %w", orderID, err)
		}

		result.Outcome, err = s.releaseWithin(ctx, repos, order, payment, triggeredBy)
		if err != nil {
			return err
		}
		result.Balance, err = computeBalance(ctx, repos, order.SellerCompanyID)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordRelease(ctx, triggeredBy, shared.OutcomeFromError(err).Kind)
		return nil, err
	}

	s.metrics.RecordRelease(ctx, triggeredBy, result.Outcome.Kind)
	logger.For(ctx, s.logger).Info("escrow release",
		zap.String("order_id", orderID.String()),
		zap.String("triggered_by", triggeredBy),
		zap.String("outcome", string(result.Outcome.Kind)),
		zap.String("withdrawable", result.Balance.Withdrawable.String()),
	)
	return result, nil
}

func (s *EscrowService) releaseWithin(
	ctx context.Context,
	repos ledger.TransactionalRepositories,
	order *escrow.NetworkOrder,
	payment *escrow.NetworkPayment,
	triggeredBy string,
) (shared.Outcome, error) {
	if payment.IsReleased() {
		return shared.AlreadyProcessed(), nil
	}
	if err := payment.CheckReleasable(); err != nil {
		return shared.Outcome{}, fmt.Errorf("%w: %w", shared.ErrInvalidState, err)
	}
	// rows written before the order check existed can still carry fees above the subtotal
	if err := order.CheckAmounts(); err != nil {
		return shared.Outcome{}, err
	}

	ok, err := repos.PaymentRepo().MarkReleased(ctx, payment.ID, s.now())
	if err != nil {
		return shared.Outcome{}, fmt.Errorf("failed to mark payout released: %w", err)
	}
	if !ok {
		// a concurrent release committed first
		return shared.AlreadyProcessed(), nil
	}

	if err := s.creditSeller(ctx, repos, order, triggeredBy); err != nil {
		return shared.Outcome{}, err
	}
	if order.CommissionAmount.IsPositive() {
		if _, err := repos.SellerLedgerRepo().InsertCommissionIfAbsent(ctx, escrow.NewCommissionEntry(order)); err != nil {
			return shared.Outcome{}, fmt.Errorf("failed to record commission: %w", err)
		}
	}
	if err := repos.Events().Emit(ctx, escrow.NewPayoutReleasedEvent(order, triggeredBy)); err != nil {
		return shared.Outcome{}, fmt.Errorf("failed to emit payout event: %w", err)
	}
	return shared.Processed(), nil
}

// creditSeller writes the release credit; a zero net leaves no ledger row
func (s *EscrowService) creditSeller(ctx context.Context, repos ledger.TransactionalRepositories, order *escrow.NetworkOrder, triggeredBy string) error {
	credit := escrow.NewReleaseCredit(order, triggeredBy)
	if !credit.Amount.IsPositive() {
		return nil
	}
	inserted, err := repos.SellerLedgerRepo().InsertIfAbsent(ctx, credit)
	if err != nil {
		return fmt.Errorf("failed to credit seller: %w", err)
	}
	if !inserted {
		return nil
	}
	if err := repos.SellerLedgerRepo().ApplyToBalanceCache(ctx, order.SellerCompanyID, credit.Amount, credit.Currency); err != nil {
		return fmt.Errorf("failed to update seller balance: %w", err)
	}
	return nil
}

// ComputeBalance derives the seller's position from ledger rows and locked payments
func (s *EscrowService) ComputeBalance(ctx context.Context, sellerCompanyID uuid.UUID) (*escrow.Balance, error) {
	var balance *escrow.Balance
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		var err error
		balance, err = computeBalance(ctx, repos, sellerCompanyID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return balance, nil
}

func computeBalance(ctx context.Context, repos ledger.TransactionalRepositories, sellerCompanyID uuid.UUID) (*escrow.Balance, error) {
	credit, debit, err := repos.SellerLedgerRepo().Sums(ctx, sellerCompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum seller ledger: %w", err)
	}
	locked, err := repos.PaymentRepo().LockedEscrow(ctx, sellerCompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum locked escrow: %w", err)
	}
	return &escrow.Balance{
		SellerCompanyID: sellerCompanyID,
		Withdrawable:    credit.Sub(debit),
		LockedEscrow:    locked,
	}, nil
}

// ConfirmDelivery lets the buyer complete a delivered order. Completion emits
// network_order.completed, which triggers the payout release.
func (s *EscrowService) ConfirmDelivery(ctx context.Context, orderID, buyerCompanyID uuid.UUID) shared.Outcome {
	ctx, span := telemetry.StartServiceSpan(ctx, "escrow", "confirm_delivery")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, orderID.String())

	outcome := shared.Processed()
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		order, err := repos.NetworkOrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("network order %s: %w", orderID, err)
		}
		if order.BuyerCompanyID != buyerCompanyID {
			return escrow.ErrNotOrderBuyer
		}
		if order.Status == escrow.OrderCompleted {
			outcome = shared.AlreadyProcessed()
			return nil
		}
		if order.Status != escrow.OrderDelivered {
			return escrow.ErrOrderNotDelivered
		}
		shipments, err := repos.ShipmentRepo().ListByOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to list shipments: %w", err)
		}
		if len(shipments) > 0 && !shipping.AllDelivered(shipments) {
			return escrow.ErrOrderNotDelivered
		}

		now := s.now()
		ok, err := repos.NetworkOrderRepo().AdvanceStatus(ctx, orderID,
			[]escrow.OrderStatus{escrow.OrderDelivered}, escrow.OrderCompleted, now)
		if err != nil {
			return fmt.Errorf("failed to complete order: %w", err)
		}
		if !ok {
			outcome = shared.AlreadyProcessed()
			return nil
		}
		return repos.Events().Emit(ctx, escrow.NewOrderCompletedEvent(order, now))
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("delivery confirmation rejected",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		return shared.Failed(err)
	}
	logger.For(ctx, s.logger).Info("delivery confirmed",
		zap.String("order_id", orderID.String()),
		zap.String("outcome", string(outcome.Kind)),
	)
	return outcome
}

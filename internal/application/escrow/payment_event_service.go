package escrow

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/escrow"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InboxPayments is the inbox label used in metrics
const InboxPayments = "payments"

// PaymentEventCommand is one payment provider webhook
type PaymentEventCommand struct {
	ProviderEventID string
	Provider        string
	Status          string
	AttemptKey      string
	ProviderRef     string
	Amount          decimal.Decimal
	Currency        string
	Payload         []byte
}

// ProcessPaymentEvent records the webhook in the payment inbox and settles or
// fails the payment it refers to. Every delivery of the same provider event id after the
// first returns AlreadyProcessed.
func (s *EscrowService) ProcessPaymentEvent(ctx context.Context, cmd PaymentEventCommand) shared.Outcome {
	outcome := s.processPaymentEvent(ctx, cmd)
	s.metrics.RecordInboxOutcome(ctx, InboxPayments, outcome.Kind)
	return outcome
}

func (s *EscrowService) processPaymentEvent(ctx context.Context, cmd PaymentEventCommand) shared.Outcome {
	if cmd.Currency != "" {
		if _, err := valueobject.ParseCurrency(cmd.Currency); err != nil {
			return shared.Failed(err)
		}
	}
	row, err := escrow.NewPaymentEventInbox(cmd.ProviderEventID, cmd.Provider, cmd.Status, cmd.AttemptKey, cmd.ProviderRef, cmd.Amount, cmd.Currency, cmd.Payload)
	if err != nil {
		return shared.Failed(err)
	}

	var inserted bool
	if err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		var err error
		inserted, err = repos.PaymentInboxRepo().InsertIfAbsent(ctx, row)
		return err
	}); err != nil {
		s.logger.Error("failed to record payment event", zap.String("provider_event_id", row.ProviderEventID), zap.Error(err))
		return shared.Failed(fmt.Errorf("failed to record payment event: %w", err))
	}
	if !inserted {
		return shared.AlreadyProcessed()
	}

	failure := escrow.IsFailureStatus(row.EventStatus)
	if !failure && !escrow.IsSuccessStatus(row.EventStatus) {
		reason := fmt.Sprintf("provider status %q is neither a success nor a failure", row.EventStatus)
		s.finishPaymentEvent(ctx, row, shared.InboxIgnored, nil, reason)
		return shared.Ignored(reason)
	}

	var result *PaymentResult
	err = s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		payment, err := s.findPaymentForEvent(ctx, repos, row)
		if err != nil {
			return err
		}
		id := payment.ID
		switch {
		case failure && payment.Status == escrow.PaymentPaid:
			// a settled payment never moves back to FAILED
			reason := "payment already settled"
			result = &PaymentResult{Payment: payment, Outcome: shared.Ignored(reason)}
			return repos.PaymentInboxRepo().Finish(ctx, row.ID, shared.InboxIgnored, &id, reason)
		case failure:
			result, err = s.markFailedWithin(ctx, repos, payment)
		default:
			if err = row.CheckSettlement(payment); err == nil {
				result, err = s.markPaidWithin(ctx, repos, payment, row.ProviderRef)
			}
		}
		if err != nil {
			return err
		}
		return repos.PaymentInboxRepo().Finish(ctx, row.ID, shared.InboxProcessed, &id, "")
	})
	if err != nil {
		outcome := shared.Failed(err)
		s.logger.Warn("payment event failed",
			zap.String("provider_event_id", row.ProviderEventID),
			zap.String("outcome", string(outcome.Kind)),
			zap.Error(err),
		)
		s.finishPaymentEvent(ctx, row, shared.InboxFailed, nil, err.Error())
		return outcome
	}

	s.logger.Info("payment event processed",
		zap.String("provider_event_id", row.ProviderEventID),
		zap.String("payment_id", result.Payment.ID.String()),
		zap.String("outcome", string(result.Outcome.Kind)),
	)
	return result.Outcome
}

func (s *EscrowService) findPaymentForEvent(ctx context.Context, repos ledger.TransactionalRepositories, row *escrow.PaymentEventInbox) (*escrow.NetworkPayment, error) {
	if row.AttemptKey != "" {
		p, err := repos.PaymentRepo().FindByAttemptKey(ctx, row.AttemptKey)
		if err != nil {
			return nil, fmt.Errorf("payment with attempt key %s: %w", row.AttemptKey, err)
		}
		return p, nil
	}
	p, err := repos.PaymentRepo().FindByProviderRef(ctx, row.Provider, row.ProviderRef)
	if err != nil {
		return nil, fmt.Errorf("payment %s:%s: %w", row.Provider, row.ProviderRef, err)
	}
	return p, nil
}

func (s *EscrowService) finishPaymentEvent(ctx context.Context, row *escrow.PaymentEventInbox, state shared.InboxState, paymentID *uuid.UUID, reason string) {
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		return repos.PaymentInboxRepo().Finish(ctx, row.ID, state, paymentID, reason)
	})
	if err != nil {
		s.logger.Error("failed to finish payment inbox row",
			zap.String("inbox_id", row.ID.String()),
			zap.String("state", string(state)),
			zap.Error(err),
		)
	}
}

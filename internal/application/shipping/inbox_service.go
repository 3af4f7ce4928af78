// Package shipping applies carrier webhooks to shipments exactly once.
package shipping

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/escrow"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shipping"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InboxShipments is the inbox label used in metrics
const InboxShipments = "shipments"

// IngestCommand is one carrier webhook
type IngestCommand struct {
	CarrierCode    string
	CarrierEventID string
	TrackingNumber string
	Status         string
	Description    string
	Payload        []byte
}

// ShipmentResult is a shipment after an idempotent create
type ShipmentResult struct {
	Shipment *shipping.Shipment
	Outcome  shared.Outcome
}

// InboxService ingests carrier events and manages shipments
type InboxService struct {
	scope   ledger.TransactionScope
	metrics ledger.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewInboxService creates an InboxService
func NewInboxService(scope ledger.TransactionScope, metrics ledger.Metrics, logger *zap.Logger) *InboxService {
	return &InboxService{
		scope:   scope,
		metrics: ledger.OrNoop(metrics),
		logger:  logger,
		now:     ledger.UTCNow,
	}
}

// Ingest records a carrier event and applies it to its shipment.
// Redelivery of the same carrier event id is AlreadyProcessed and writes nothing.
func (s *InboxService) Ingest(ctx context.Context, cmd IngestCommand) shared.Outcome {
	ctx, span := telemetry.StartServiceSpan(ctx, "shipment_inbox", "ingest")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCarrierEventID, cmd.CarrierEventID,
		telemetry.SpanAttrTrackingNumber, cmd.TrackingNumber,
	)

	outcome := s.ingest(ctx, cmd)
	telemetry.RecordOutcome(span, outcome)
	s.metrics.RecordInboxOutcome(ctx, InboxShipments, outcome.Kind)
	return outcome
}

func (s *InboxService) ingest(ctx context.Context, cmd IngestCommand) shared.Outcome {
	next, err := shipping.ParseStatus(cmd.Status)
	if err != nil {
		return shared.Failed(err)
	}
	row, err := shipping.NewShipmentEventInbox(cmd.CarrierEventID, cmd.CarrierCode, cmd.TrackingNumber, cmd.Status, cmd.Description, cmd.Payload)
	if err != nil {
		return shared.Failed(err)
	}

	var inserted bool
	if err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		var err error
		inserted, err = repos.ShipmentInboxRepo().InsertIfAbsent(ctx, row)
		return err
	}); err != nil {
		s.logger.Error("failed to record carrier event",
			zap.String("carrier_event_id", row.CarrierEventID),
			zap.Error(err),
		)
		return shared.Failed(fmt.Errorf("failed to record carrier event: %w", err))
	}
	if !inserted {
		s.logger.Debug("duplicate carrier event",
			zap.String("carrier_event_id", row.CarrierEventID),
		)
		return shared.AlreadyProcessed()
	}

	var outcome shared.Outcome
	err = s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		var err error
		outcome, err = s.applyRow(ctx, repos, row, next)
		return err
	})
	if err != nil {
		return s.fail(ctx, row, err)
	}

	s.logger.Info("carrier event applied",
		zap.String("carrier_event_id", row.CarrierEventID),
		zap.String("tracking_number", row.TrackingNumber),
		zap.String("status", string(next)),
		zap.String("outcome", string(outcome.Kind)),
	)
	return outcome
}

// applyRow moves the row's shipment to next, or records the row IGNORED when
// the carrier reports a status the shipment cannot move to.
func (s *InboxService) applyRow(
	ctx context.Context,
	repos ledger.TransactionalRepositories,
	row *shipping.ShipmentEventInbox,
	next shipping.ShipmentStatus,
) (shared.Outcome, error) {
	shipment, err := repos.ShipmentRepo().FindByTracking(ctx, row.TrackingNumber, row.CarrierCode)
	if err != nil {
		return shared.Outcome{}, fmt.Errorf("shipment %s/%s: %w", row.CarrierCode, row.TrackingNumber, err)
	}
	if err := shipment.Status.CheckTransition(next); err != nil {
		outcome := shared.Ignored(fmt.Sprintf("%s -> %s: %s", shipment.Status, next, err.Error()))
		id := shipment.ID
		return outcome, repos.ShipmentInboxRepo().Finish(ctx, row.ID, shared.InboxIgnored, &id, outcome.Reason)
	}
	return shared.Processed(), s.apply(ctx, repos, row, shipment, next)
}

// fail records the row FAILED after its transaction rolled back
func (s *InboxService) fail(ctx context.Context, row *shipping.ShipmentEventInbox, err error) shared.Outcome {
	outcome := shared.Failed(err)
	if errors.Is(err, shared.ErrNotFound) {
		outcome = shared.Outcome{Kind: shared.OutcomeNotFound, Reason: "shipment not found", Err: err}
	}
	s.logger.Warn("carrier event failed",
		zap.String("carrier_event_id", row.CarrierEventID),
		zap.String("tracking_number", row.TrackingNumber),
		zap.String("outcome", string(outcome.Kind)),
		zap.Error(err),
	)
	s.finish(ctx, row, shared.InboxFailed, err.Error())
	return outcome
}

func (s *InboxService) apply(
	ctx context.Context,
	repos ledger.TransactionalRepositories,
	row *shipping.ShipmentEventInbox,
	shipment *shipping.Shipment,
	next shipping.ShipmentStatus,
) error {
	now := s.now()
	ok, err := repos.ShipmentRepo().UpdateStatus(ctx, shipment.ID, shipment.Status, next, now)
	if err != nil {
		return fmt.Errorf("failed to update shipment: %w", err)
	}
	if !ok {
		return fmt.Errorf("shipment %s moved concurrently: %w", shipment.ID, shared.ErrConcurrencyConflict)
	}
	if err := repos.ShipmentRepo().AppendEvent(ctx, &shipping.ShipmentEvent{
		ID:             uuid.New(),
		ShipmentID:     shipment.ID,
		FromStatus:     shipment.Status,
		ToStatus:       next,
		Description:    row.Description,
		CarrierEventID: row.CarrierEventID,
		OccurredAt:     now,
	}); err != nil {
		return fmt.Errorf("failed to append shipment event: %w", err)
	}

	// a carrier may report COMPLETED without a DELIVERED event first
	if next.IsDeliveredOrLater() && !shipment.Status.IsDeliveredOrLater() {
		if err := s.deliverOrderIfComplete(ctx, repos, shipment.NetworkOrderID, now); err != nil {
			return err
		}
	}

	id := shipment.ID
	return repos.ShipmentInboxRepo().Finish(ctx, row.ID, shared.InboxProcessed, &id, "")
}

// deliverOrderIfComplete moves the order to DELIVERED once its last parcel arrives
func (s *InboxService) deliverOrderIfComplete(ctx context.Context, repos ledger.TransactionalRepositories, orderID uuid.UUID, at time.Time) error {
	shipments, err := repos.ShipmentRepo().ListByOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to list shipments: %w", err)
	}
	if !shipping.AllDelivered(shipments) {
		return nil
	}
	advanced, err := repos.NetworkOrderRepo().AdvanceStatus(ctx, orderID,
		[]escrow.OrderStatus{escrow.OrderPaid, escrow.OrderShipped}, escrow.OrderDelivered, at)
	if err != nil {
		return fmt.Errorf("failed to advance order: %w", err)
	}
	if !advanced {
		return nil
	}
	order, err := repos.NetworkOrderRepo().FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("network order %s: %w", orderID, err)
	}
	return repos.Events().Emit(ctx, escrow.NewOrderDeliveredEvent(order, at))
}

func (s *InboxService) finish(ctx context.Context, row *shipping.ShipmentEventInbox, state shared.InboxState, reason string) {
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		return repos.ShipmentInboxRepo().Finish(ctx, row.ID, state, nil, reason)
	})
	if err != nil {
		s.logger.Error("failed to finish shipment inbox row",
			zap.String("inbox_id", row.ID.String()),
			zap.String("state", string(state)),
			zap.Error(err),
		)
	}
}

// CreateShipment registers a parcel for a paid order. It is idempotent on
// (carrier code, tracking number) and moves the order to SHIPPED.
func (s *InboxService) CreateShipment(ctx context.Context, orderID uuid.UUID, carrierCode, trackingNumber string) (*ShipmentResult, error) {
	if strings.TrimSpace(carrierCode) == "" || strings.TrimSpace(trackingNumber) == "" {
		return nil, fmt.Errorf("%w: carrier code and tracking number are required", shared.ErrInvalidInput)
	}

	var result *ShipmentResult
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		order, err := repos.NetworkOrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("network order %s: %w", orderID, err)
		}
		if order.Status != escrow.OrderPaid && order.Status != escrow.OrderShipped {
			return fmt.Errorf("%w: order is %s", shared.ErrInvalidState, order.Status)
		}
		seq, err := repos.ShipmentRepo().NextSequence(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to allocate shipment sequence: %w", err)
		}
		shipment := shipping.NewShipment(orderID, carrierCode, trackingNumber, seq)
		created, err := repos.ShipmentRepo().CreateIfAbsent(ctx, shipment)
		if err != nil {
			return fmt.Errorf("failed to save shipment: %w", err)
		}
		if !created {
			existing, err := repos.ShipmentRepo().FindByTracking(ctx, shipment.TrackingNumber, shipment.CarrierCode)
			if err != nil {
				return err
			}
			if existing.NetworkOrderID != orderID {
				return fmt.Errorf("%w: tracking number belongs to another order", shared.ErrAlreadyExists)
			}
			result = &ShipmentResult{Shipment: existing, Outcome: shared.AlreadyProcessed()}
			return nil
		}
		if _, err := repos.NetworkOrderRepo().AdvanceStatus(ctx, orderID,
			[]escrow.OrderStatus{escrow.OrderPaid}, escrow.OrderShipped, s.now()); err != nil {
			return fmt.Errorf("failed to advance order: %w", err)
		}
		result = &ShipmentResult{Shipment: shipment, Outcome: shared.Processed()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListFailed returns FAILED inbox rows for operator review. They are never
// retried automatically; ReplayFailed retries one on request.
func (s *InboxService) ListFailed(ctx context.Context, limit int) ([]*shipping.ShipmentEventInbox, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []*shipping.ShipmentEventInbox
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		var err error
		rows, err = repos.ShipmentInboxRepo().ListByState(ctx, shared.InboxFailed, limit)
		return err
	})
	return rows, err
}

// ReplayFailed re-applies one FAILED carrier event on operator request. The
// row is reopened with a conditional update inside the same transaction, so
// concurrent replays apply it once. A replay that fails again rolls back and
// leaves the row FAILED with the new error.
func (s *InboxService) ReplayFailed(ctx context.Context, inboxID uuid.UUID) shared.Outcome {
	ctx, span := telemetry.StartServiceSpan(ctx, "shipment_inbox", "replay")
	defer span.End()

	var (
		row     *shipping.ShipmentEventInbox
		outcome shared.Outcome
	)
	err := s.scope.Execute(ctx, func(repos ledger.TransactionalRepositories) error {
		var err error
		row, err = repos.ShipmentInboxRepo().FindByID(ctx, inboxID)
		if err != nil {
			return fmt.Errorf("inbox row %s: %w", inboxID, err)
		}
		reopened, err := repos.ShipmentInboxRepo().Reopen(ctx, row.ID)
		if err != nil {
			return fmt.Errorf("failed to reopen inbox row: %w", err)
		}
		if !reopened {
			outcome = shared.AlreadyProcessed()
			return nil
		}
		next, err := shipping.ParseStatus(row.Status)
		if err != nil {
			return err
		}
		outcome, err = s.applyRow(ctx, repos, row, next)
		return err
	})
	if err != nil {
		if row == nil {
			outcome = shared.Failed(err)
		} else {
			outcome = s.fail(ctx, row, err)
		}
	}
	telemetry.RecordOutcome(span, outcome)
	s.metrics.RecordInboxOutcome(ctx, InboxShipments, outcome.Kind)
	if row != nil {
		s.logger.Info("carrier event replayed",
			zap.String("carrier_event_id", row.CarrierEventID),
			zap.String("outcome", string(outcome.Kind)),
		)
	}
	return outcome
}

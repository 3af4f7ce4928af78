// Package event exposes operator actions on the transactional outbox.
package event

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEntryNotFound = shared.NewDomainError("ENTRY_NOT_FOUND", "Outbox entry not found")
	ErrOutboxFailure = shared.NewDomainError("INTERNAL_ERROR", "Outbox storage is unavailable")
)

// OutboxService lists and replays dead-lettered domain events
type OutboxService struct {
	repo   shared.OutboxRepository
	logger *zap.Logger
}

// NewOutboxService creates a new outbox service
func NewOutboxService(repo shared.OutboxRepository, logger *zap.Logger) *OutboxService {
	return &OutboxService{repo: repo, logger: logger}
}

// OutboxEntryDTO is the operator view of an outbox row
type OutboxEntryDTO struct {
	ID            uuid.UUID  `json:"id"`
	CompanyID     uuid.UUID  `json:"company_id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DeadLetterPage is one page of dead-lettered events
type DeadLetterPage struct {
	Entries  []OutboxEntryDTO `json:"entries"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// OutboxStatsDTO counts outbox rows per status
type OutboxStatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
}

// ListDead returns dead-lettered events, newest first
func (s *OutboxService) ListDead(ctx context.Context, page, pageSize int) (*DeadLetterPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	entries, total, err := s.repo.FindDead(ctx, page, pageSize)
	if err != nil {
		s.logger.Error("failed to list dead letters", zap.Error(err))
		return nil, ErrOutboxFailure
	}
	out := &DeadLetterPage{Entries: make([]OutboxEntryDTO, len(entries)), Total: total, Page: page, PageSize: pageSize}
	for i, e := range entries {
		out.Entries[i] = toOutboxEntryDTO(e)
	}
	return out, nil
}

// Replay moves a dead-lettered event back to PENDING so the processor delivers
// it again. Handlers stay exactly-once through their receipts.
func (s *OutboxService) Replay(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) || (err == nil && entry == nil) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		s.logger.Error("failed to load outbox entry", zap.String("id", id.String()), zap.Error(err))
		return nil, ErrOutboxFailure
	}
	if err := entry.ResetForRetry(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		s.logger.Error("failed to reset outbox entry", zap.String("id", id.String()), zap.Error(err))
		return nil, ErrOutboxFailure
	}

	s.logger.Info("dead letter replayed",
		zap.String("id", id.String()),
		zap.String("event_type", entry.EventType),
		zap.String("event_id", entry.EventID.String()),
	)
	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// Stats counts outbox rows per status
func (s *OutboxService) Stats(ctx context.Context) (*OutboxStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("failed to count outbox entries", zap.Error(err))
		return nil, ErrOutboxFailure
	}
	return &OutboxStatsDTO{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}, nil
}

func toOutboxEntryDTO(entry *shared.OutboxEntry) OutboxEntryDTO {
	return OutboxEntryDTO{
		ID:            entry.ID,
		CompanyID:     entry.CompanyID,
		EventID:       entry.EventID,
		EventType:     entry.EventType,
		AggregateID:   entry.AggregateID,
		AggregateType: entry.AggregateType,
		Status:        string(entry.Status),
		RetryCount:    entry.RetryCount,
		MaxRetries:    entry.MaxRetries,
		LastError:     entry.LastError,
		NextRetryAt:   entry.NextRetryAt,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
	}
}

package accounting

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRepository persists the chart of accounts
type AccountRepository interface {
	// SaveIfAbsent inserts the account unless the code already exists
	SaveIfAbsent(ctx context.Context, account *Account) (bool, error)
	FindByCode(ctx context.Context, code string) (*Account, error)
	// ExistingCodes returns the subset of codes present in the chart
	ExistingCodes(ctx context.Context, codes []string) (map[string]bool, error)
}

// AccountTotals is the aggregate of all lines posted to one account
type AccountTotals struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// JournalRepository persists journal entries. Entries and lines are insert-only.
type JournalRepository interface {
	Create(ctx context.Context, entry *JournalEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*JournalEntry, error)
	// FindBySource returns every entry posted for the source, active or reversed
	FindBySource(ctx context.Context, companyID uuid.UUID, sourceType, sourceID string) ([]*JournalEntry, error)
	// FindReversalOf returns the storno of the given entry, if any
	FindReversalOf(ctx context.Context, originalID uuid.UUID) (*JournalEntry, error)
	ExistsActiveBySource(ctx context.Context, companyID uuid.UUID, sourceType, sourceID string) (bool, error)
	// MarkReversed sets reversed_by only if it is still unset; false means another storno won
	MarkReversed(ctx context.Context, originalID, stornoID uuid.UUID) (bool, error)
	Totals(ctx context.Context, companyID uuid.UUID, accountCode string) (AccountTotals, error)
}

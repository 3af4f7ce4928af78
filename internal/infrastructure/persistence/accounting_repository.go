package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/ledger/internal/domain/accounting"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAccountRepository implements accounting.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// SaveIfAbsent inserts the account unless its code exists
func (r *GormAccountRepository) SaveIfAbsent(ctx context.Context, account *accounting.Account) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.AccountModelFromDomain(account))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindByCode finds an account by its code
func (r *GormAccountRepository) FindByCode(ctx context.Context, code string) (*accounting.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).First(&model, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistingCodes returns which of the given codes are in the chart
func (r *GormAccountRepository) ExistingCodes(ctx context.Context, codes []string) (map[string]bool, error) {
	found := make(map[string]bool, len(codes))
	if len(codes) == 0 {
		return found, nil
	}
	var existing []string
	if err := r.db.WithContext(ctx).
		Model(&models.AccountModel{}).
		Where("code IN ?", codes).
		Pluck("code", &existing).Error; err != nil {
		return nil, err
	}
	for _, c := range existing {
		found[c] = true
	}
	return found, nil
}

// GormJournalRepository implements accounting.JournalRepository using GORM.
// Entries and lines are only inserted; the sole update is the reversed_by pointer.
type GormJournalRepository struct {
	db *gorm.DB
}

// NewGormJournalRepository creates a new GormJournalRepository
func NewGormJournalRepository(db *gorm.DB) *GormJournalRepository {
	return &GormJournalRepository{db: db}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

// Create inserts the entry and its lines
func (r *GormJournalRepository) Create(ctx context.Context, entry *accounting.JournalEntry) error {
	if err := r.db.WithContext(ctx).Create(models.JournalEntryModelFromDomain(entry)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %w", accounting.ErrSourceAlreadyPosted, err)
		}
		return err
	}
	return nil
}

// FindByID finds an entry with its lines
func (r *GormJournalRepository) FindByID(ctx context.Context, id uuid.UUID) (*accounting.JournalEntry, error) {
	var model models.JournalEntryModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySource returns every entry of the source in posting order
func (r *GormJournalRepository) FindBySource(ctx context.Context, companyID uuid.UUID, sourceType, sourceID string) ([]*accounting.JournalEntry, error) {
	var rows []models.JournalEntryModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("company_id = ? AND source_type = ? AND source_id = ?", companyID, sourceType, sourceID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]*accounting.JournalEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, nil
}

// FindReversalOf returns the storno of an entry
func (r *GormJournalRepository) FindReversalOf(ctx context.Context, originalID uuid.UUID) (*accounting.JournalEntry, error) {
	var model models.JournalEntryModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		First(&model, "reversal_of = ?", originalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsActiveBySource reports whether an unreversed entry exists for the source
func (r *GormJournalRepository) ExistsActiveBySource(ctx context.Context, companyID uuid.UUID, sourceType, sourceID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.JournalEntryModel{}).
		Where("company_id = ? AND source_type = ? AND source_id = ? AND reversed_by IS NULL", companyID, sourceType, sourceID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkReversed points the original at its storno if no other storno got there first
func (r *GormJournalRepository) MarkReversed(ctx context.Context, originalID, stornoID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.JournalEntryModel{}).
		Where("id = ? AND reversed_by IS NULL", originalID).
		Update("reversed_by", stornoID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

type accountTotalsRow struct {
	Debit  decimal.NullDecimal
	Credit decimal.NullDecimal
}

// Totals aggregates every line posted to the account for the company
func (r *GormJournalRepository) Totals(ctx context.Context, companyID uuid.UUID, accountCode string) (accounting.AccountTotals, error) {
	var row accountTotalsRow
	err := r.db.WithContext(ctx).
		Table("journal_lines AS l").
		Joins("JOIN journal_entries AS e ON e.id = l.entry_id").
		Where("e.company_id = ? AND l.account_code = ?", companyID, accountCode).
		Select(
			"SUM(CASE WHEN l.side = ? THEN l.amount ELSE 0 END) AS debit, "+
				"SUM(CASE WHEN l.side = ? THEN l.amount ELSE 0 END) AS credit",
			accounting.SideDebit, accounting.SideCredit,
		).
		Scan(&row).Error
	if err != nil {
		return accounting.AccountTotals{}, err
	}
	return accounting.AccountTotals{
		Debit:  nullToZero(row.Debit),
		Credit: nullToZero(row.Credit),
	}, nil
}

func nullToZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

var (
	_ accounting.AccountRepository = (*GormAccountRepository)(nil)
	_ accounting.JournalRepository = (*GormJournalRepository)(nil)
)

package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountModel is a chart-of-accounts row. The chart is shared by all companies.
type AccountModel struct {
	Code          string                  `gorm:"type:varchar(32);primaryKey"`
	Name          string                  `gorm:"type:varchar(200);not null"`
	Class         accounting.AccountClass `gorm:"type:varchar(20);not null"`
	NormalBalance accounting.Side         `gorm:"type:varchar(10);not null"`
	ParentCode    *string                 `gorm:"type:varchar(32);index"`
	CreatedAt     time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the model to a domain Account
func (m *AccountModel) ToDomain() *accounting.Account {
	return &accounting.Account{
		Code:          m.Code,
		Name:          m.Name,
		Class:         m.Class,
		NormalBalance: m.NormalBalance,
		ParentCode:    m.ParentCode,
	}
}

// AccountModelFromDomain creates a model from a domain Account
func AccountModelFromDomain(a *accounting.Account) *AccountModel {
	return &AccountModel{
		Code:          a.Code,
		Name:          a.Name,
		Class:         a.Class,
		NormalBalance: a.NormalBalance,
		ParentCode:    a.ParentCode,
		CreatedAt:     time.Now(),
	}
}

// JournalEntryModel is the header of a posted slip.
// At most one unreversed entry may exist per (company, source type, source id).
type JournalEntryModel struct {
	ID          uuid.UUID          `gorm:"type:uuid;primaryKey"`
	CompanyID   uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_journal_active_source,where:reversed_by IS NULL"`
	EntryDate   time.Time          `gorm:"not null;index"`
	Description string             `gorm:"type:text"`
	SourceType  string             `gorm:"type:varchar(50);not null;uniqueIndex:idx_journal_active_source,where:reversed_by IS NULL;index:idx_journal_source,priority:1"`
	SourceID    string             `gorm:"type:varchar(100);not null;uniqueIndex:idx_journal_active_source,where:reversed_by IS NULL;index:idx_journal_source,priority:2"`
	Branch      string             `gorm:"type:varchar(50)"`
	ReversalOf  *uuid.UUID         `gorm:"type:uuid;uniqueIndex"`
	ReversedBy  *uuid.UUID         `gorm:"type:uuid"`
	Lines       []JournalLineModel `gorm:"foreignKey:EntryID;constraint:OnDelete:RESTRICT"`
	CreatedAt   time.Time          `gorm:"not null"`
}

// TableName returns the table name for GORM
func (JournalEntryModel) TableName() string {
	return "journal_entries"
}

// JournalLineModel is one debit or credit of an entry
type JournalLineModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	EntryID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_journal_line_no,priority:1"`
	LineNo       int             `gorm:"not null;uniqueIndex:idx_journal_line_no,priority:2"`
	AccountCode  string          `gorm:"type:varchar(32);not null;index"`
	Side         accounting.Side `gorm:"type:varchar(10);not null"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DocumentType string          `gorm:"type:varchar(50)"`
	DocumentNo   string          `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (JournalLineModel) TableName() string {
	return "journal_lines"
}

// ToDomain converts the model and its preloaded lines to a domain JournalEntry
func (m *JournalEntryModel) ToDomain() *accounting.JournalEntry {
	lines := make([]accounting.JournalLine, len(m.Lines))
	for i, l := range m.Lines {
		lines[i] = accounting.JournalLine{
			LineNo:       l.LineNo,
			AccountCode:  l.AccountCode,
			Side:         l.Side,
			Amount:       l.Amount,
			DocumentType: l.DocumentType,
			DocumentNo:   l.DocumentNo,
		}
	}
	return &accounting.JournalEntry{
		ID:          m.ID,
		CompanyID:   m.CompanyID,
		Date:        m.EntryDate,
		Description: m.Description,
		SourceType:  m.SourceType,
		SourceID:    m.SourceID,
		Branch:      m.Branch,
		ReversalOf:  m.ReversalOf,
		ReversedBy:  m.ReversedBy,
		Lines:       lines,
		CreatedAt:   m.CreatedAt,
	}
}

// JournalEntryModelFromDomain creates an entry model with its lines
func JournalEntryModelFromDomain(e *accounting.JournalEntry) *JournalEntryModel {
	lines := make([]JournalLineModel, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = JournalLineModel{
			ID:           uuid.New(),
			EntryID:      e.ID,
			LineNo:       l.LineNo,
			AccountCode:  l.AccountCode,
			Side:         l.Side,
			Amount:       l.Amount,
			DocumentType: l.DocumentType,
			DocumentNo:   l.DocumentNo,
		}
	}
	return &JournalEntryModel{
		ID:          e.ID,
		CompanyID:   e.CompanyID,
		EntryDate:   e.Date,
		Description: e.Description,
		SourceType:  e.SourceType,
		SourceID:    e.SourceID,
		Branch:      e.Branch,
		ReversalOf:  e.ReversalOf,
		ReversedBy:  e.ReversedBy,
		Lines:       lines,
		CreatedAt:   e.CreatedAt,
	}
}

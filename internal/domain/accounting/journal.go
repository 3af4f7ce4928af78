package accounting

import (
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side is the debit or credit side of a journal line
type Side string

const (
	SideDebit  Side = "DEBIT"
	SideCredit Side = "CREDIT"
)

// IsValid checks if the side is DEBIT or CREDIT
func (s Side) IsValid() bool {
	return s == SideDebit || s == SideCredit
}

// Flip returns the opposite side
func (s Side) Flip() Side {
	if s == SideDebit {
		return SideCredit
	}
	return SideDebit
}

// SourceTypeStorno is the source type of reversal entries
const SourceTypeStorno = "Storno"

var (
	ErrEmptyEntry          = shared.NewDomainError("EMPTY_ENTRY", "Journal entry must have at least one line")
	ErrUnbalancedEntry     = shared.NewDomainError("UNBALANCED_ENTRY", "Journal entry debits and credits do not balance")
	ErrNonPositiveAmount   = shared.NewDomainError("NON_POSITIVE_AMOUNT", "Journal line amount must be greater than zero")
	ErrInvalidSide         = shared.NewDomainError("INVALID_SIDE", "Journal line side must be DEBIT or CREDIT")
	ErrMissingSource       = shared.NewDomainError("MISSING_SOURCE", "Journal entry requires a source type and id")
	ErrUnknownAccount      = shared.NewDomainError("UNKNOWN_ACCOUNT", "Journal line references an unknown account")
	ErrSourceAlreadyPosted = shared.NewDomainError("SOURCE_ALREADY_POSTED", "An active journal entry already exists for this source")
	ErrAlreadyReversed     = shared.NewDomainError("ALREADY_REVERSED", "Journal entry has already been reversed")
	ErrCannotReverseStorno = shared.NewDomainError("CANNOT_REVERSE_STORNO", "A storno entry cannot itself be reversed")
)

// JournalLine is one debit or credit of a slip
type JournalLine struct {
	LineNo       int
	AccountCode  string
	Side         Side
	Amount       decimal.Decimal
	DocumentType string
	DocumentNo   string
}

// JournalEntry is an append-only balanced slip. Once persisted it is never
// mutated apart from the ReversedBy pointer set by its storno.
type JournalEntry struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	Date        time.Time
	Description string
	SourceType  string
	SourceID    string
	Branch      string
	ReversalOf  *uuid.UUID
	ReversedBy  *uuid.UUID
	Lines       []JournalLine
	CreatedAt   time.Time
}

// NewJournalEntry validates the lines and builds an entry.
// Account existence is checked by the posting service, which owns the chart lookup.
func NewJournalEntry(companyID uuid.UUID, date time.Time, description, sourceType, sourceID, branch string, lines []JournalLine) (*JournalEntry, error) {
	if strings.TrimSpace(sourceType) == "" || strings.TrimSpace(sourceID) == "" {
		return nil, ErrMissingSource
	}
	numbered := make([]JournalLine, len(lines))
	for i, l := range lines {
		l.LineNo = i + 1
		numbered[i] = l
	}
	if err := ValidateLines(numbered); err != nil {
		return nil, err
	}
	if date.IsZero() {
		date = time.Now().UTC()
	}
	return &JournalEntry{
		ID:          uuid.New(),
		CompanyID:   companyID,
		Date:        date,
		Description: description,
		SourceType:  sourceType,
		SourceID:    sourceID,
		Branch:      branch,
		Lines:       numbered,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// ValidateLines enforces the double-entry rules: at least one line,
// strictly positive amounts, known sides, and debits equal to credits.
func ValidateLines(lines []JournalLine) error {
	if len(lines) == 0 {
		return ErrEmptyEntry
	}
	debit, credit := decimal.Zero, decimal.Zero
	for _, l := range lines {
		if !l.Side.IsValid() {
			return ErrInvalidSide
		}
		if !l.Amount.IsPositive() {
			return ErrNonPositiveAmount
		}
		if strings.TrimSpace(l.AccountCode) == "" {
			return ErrUnknownAccount
		}
		if l.Side == SideDebit {
			debit = debit.Add(l.Amount)
		} else {
			credit = credit.Add(l.Amount)
		}
	}
	if !debit.Equal(credit) {
		return ErrUnbalancedEntry
	}
	return nil
}

// Totals returns the debit and credit sums
func (e *JournalEntry) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		if l.Side == SideDebit {
			debit = debit.Add(l.Amount)
		} else {
			credit = credit.Add(l.Amount)
		}
	}
	return debit, credit
}

// IsReversed reports whether a storno has been posted for the entry
func (e *JournalEntry) IsReversed() bool {
	return e.ReversedBy != nil
}

// IsStorno reports whether the entry is itself a reversal
func (e *JournalEntry) IsStorno() bool {
	return e.ReversalOf != nil
}

// AccountCodes returns the distinct account codes referenced by the lines
func (e *JournalEntry) AccountCodes() []string {
	seen := make(map[string]struct{}, len(e.Lines))
	codes := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		if _, ok := seen[l.AccountCode]; ok {
			continue
		}
		seen[l.AccountCode] = struct{}{}
		codes = append(codes, l.AccountCode)
	}
	return codes
}

// Reverse builds the storno of e: same accounts and amounts with every side flipped.
func (e *JournalEntry) Reverse(reason string, at time.Time) (*JournalEntry, error) {
	if e.IsStorno() {
		return nil, ErrCannotReverseStorno
	}
	if e.IsReversed() {
		return nil, ErrAlreadyReversed
	}
	lines := make([]JournalLine, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = JournalLine{
			AccountCode:  l.AccountCode,
			Side:         l.Side.Flip(),
			Amount:       l.Amount,
			DocumentType: l.DocumentType,
			DocumentNo:   l.DocumentNo,
		}
	}
	description := "Storno: " + e.Description
	if reason != "" {
		description += " (" + reason + ")"
	}
	storno, err := NewJournalEntry(e.CompanyID, at, description, SourceTypeStorno, e.ID.String(), e.Branch, lines)
	if err != nil {
		return nil, err
	}
	original := e.ID
	storno.ReversalOf = &original
	return storno, nil
}

// NetByAccount sums signed amounts per account (debit positive, credit negative)
func NetByAccount(entries ...*JournalEntry) map[string]decimal.Decimal {
	net := make(map[string]decimal.Decimal)
	for _, e := range entries {
		for _, l := range e.Lines {
			amt := l.Amount
			if l.Side == SideCredit {
				amt = amt.Neg()
			}
			net[l.AccountCode] = net[l.AccountCode].Add(amt)
		}
	}
	return net
}

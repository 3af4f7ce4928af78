package accounting

import (
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
)

// AccountClass is the top-level classification of a chart-of-accounts node
type AccountClass string

const (
	ClassAsset     AccountClass = "ASSET"
	ClassLiability AccountClass = "LIABILITY"
	ClassEquity    AccountClass = "EQUITY"
	ClassIncome    AccountClass = "INCOME"
	ClassExpense   AccountClass = "EXPENSE"
)

// IsValid checks if the class is known
func (c AccountClass) IsValid() bool {
	switch c {
	case ClassAsset, ClassLiability, ClassEquity, ClassIncome, ClassExpense:
		return true
	}
	return false
}

// NormalBalance returns the side on which the class conventionally grows
func (c AccountClass) NormalBalance() Side {
	switch c {
	case ClassAsset, ClassExpense:
		return SideDebit
	default:
		return SideCredit
	}
}

// Account is a chart-of-accounts node. Codes are hierarchical ("120.01" is a child of "120").
type Account struct {
	Code          string
	Name          string
	Class         AccountClass
	NormalBalance Side
	ParentCode    *string
}

var (
	ErrInvalidAccountCode  = shared.NewDomainError("INVALID_ACCOUNT_CODE", "Account code must be non-empty and dot separated")
	ErrInvalidAccountClass = shared.NewDomainError("INVALID_ACCOUNT_CLASS", "Account class is not recognised")
)

// NewAccount builds an account and derives the parent code from the hierarchy
func NewAccount(code, name string, class AccountClass) (*Account, error) {
	code = strings.TrimSpace(code)
	if code == "" || strings.HasPrefix(code, ".") || strings.HasSuffix(code, ".") {
		return nil, ErrInvalidAccountCode
	}
	if !class.IsValid() {
		return nil, ErrInvalidAccountClass
	}
	a := &Account{
		Code:          code,
		Name:          name,
		Class:         class,
		NormalBalance: class.NormalBalance(),
	}
	if i := strings.LastIndex(code, "."); i > 0 {
		parent := code[:i]
		a.ParentCode = &parent
	}
	return a, nil
}

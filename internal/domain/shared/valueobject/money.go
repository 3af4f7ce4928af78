package valueobject

import (
	"fmt"
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Currency is an upper-case ISO 4217 code
type Currency string

// TRY is the ledger's home currency
const TRY Currency = "TRY"

var (
	ErrInvalidCurrency  = shared.NewDomainError("INVALID_CURRENCY", "Invalid ISO 4217 currency code")
	ErrCurrencyMismatch = shared.NewDomainError("CURRENCY_MISMATCH", "Currency mismatch")
)

// ParseCurrency validates and normalizes a currency code
func ParseCurrency(code string) (Currency, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return Currency(unit.String()), nil
}

// MinorUnits returns the number of decimal places for the currency
func (c Currency) MinorUnits() int32 {
	unit, err := currency.ParseISO(string(c))
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// Round rounds amount to the currency's minor units
func (c Currency) Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(c.MinorUnits())
}

// WithinTolerance reports |a-b| <= tolerance
func WithinTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

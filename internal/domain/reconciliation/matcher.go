package reconciliation

import (
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DefaultAmountTolerance is the largest absolute amount difference still considered a match
var DefaultAmountTolerance = decimal.RequireFromString("0.05")

// Matcher finds the remote record corresponding to a local invoice
type Matcher struct {
	Tolerance decimal.Decimal
}

// NewMatcher returns a matcher with the given tolerance, or the default when zero
func NewMatcher(tolerance decimal.Decimal) Matcher {
	if !tolerance.IsPositive() {
		tolerance = DefaultAmountTolerance
	}
	return Matcher{Tolerance: tolerance}
}

// Matches requires both the amount within tolerance and an exact counterparty tax id.
// An amount match alone is never enough.
func (m Matcher) Matches(local *SalesInvoice, remote RemoteInvoice) bool {
	want := NormalizeTaxNumber(local.ReceiverTaxNumber)
	if want == "" || NormalizeTaxNumber(remote.ReceiverTaxNumber) != want {
		return false
	}
	return valueobject.WithinTolerance(remote.Amount, local.TotalAmount, m.Tolerance)
}

// Unclaimed drops candidates whose UUID is already attached to another local invoice
func Unclaimed(candidates []RemoteInvoice, claimed map[string]struct{}) []RemoteInvoice {
	if len(claimed) == 0 {
		return candidates
	}
	out := make([]RemoteInvoice, 0, len(candidates))
	for _, c := range candidates {
		if _, taken := claimed[c.UUID]; !taken {
			out = append(out, c)
		}
	}
	return out
}

// FindMatch returns the first matching remote invoice, preferring the closest amount
func (m Matcher) FindMatch(local *SalesInvoice, candidates []RemoteInvoice) (RemoteInvoice, bool) {
	var (
		best  RemoteInvoice
		found bool
		diff  decimal.Decimal
	)
	for _, c := range candidates {
		if !m.Matches(local, c) {
			continue
		}
		d := c.Amount.Sub(local.TotalAmount).Abs()
		if !found || d.LessThan(diff) {
			best, diff, found = c, d, true
		}
	}
	return best, found
}

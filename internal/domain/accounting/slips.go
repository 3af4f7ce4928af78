package accounting

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Source types of slips built in this package
const (
	SourceTypeCheck            = "Check"
	SourceTypeSaleLine         = "SaleLine"
	SourceTypeEscrowRelease    = "EscrowRelease"
	SourceTypeEscrowFunding    = "EscrowFunding"
	SourceTypeStockConsumption = "StockConsumption"
)

var hundred = decimal.NewFromInt(100)

// CheckReceivedSlip posts a customer check: DEBIT checks received, CREDIT receivables.
func CheckReceivedSlip(companyID uuid.UUID, checkID, checkNo string, amount decimal.Decimal, date time.Time) (*JournalEntry, error) {
	lines := []JournalLine{
		{AccountCode: AccountChecksReceived, Side: SideDebit, Amount: amount, DocumentType: "CHECK", DocumentNo: checkNo},
		{AccountCode: AccountReceivables, Side: SideCredit, Amount: amount, DocumentType: "CHECK", DocumentNo: checkNo},
	}
	return NewJournalEntry(companyID, date, fmt.Sprintf("Check received %s", checkNo), SourceTypeCheck, checkID, "", lines)
}

// SplitInclusiveTax splits a tax-inclusive gross into net and tax for a percentage rate
func SplitInclusiveTax(gross, ratePercent decimal.Decimal) (net, tax decimal.Decimal) {
	if !ratePercent.IsPositive() {
		return gross, decimal.Zero
	}
	net = gross.Div(decimal.NewFromInt(1).Add(ratePercent.Div(hundred))).Round(2)
	return net, gross.Sub(net)
}

// SaleSlip posts revenue for one sold line: DEBIT receivables gross,
// CREDIT domestic sales net and CREDIT calculated VAT.
func SaleSlip(companyID uuid.UUID, sourceID, orderNumber string, gross, taxRate decimal.Decimal, date time.Time) (*JournalEntry, error) {
	net, tax := SplitInclusiveTax(gross, taxRate)
	lines := []JournalLine{
		{AccountCode: AccountReceivables, Side: SideDebit, Amount: gross, DocumentType: "ORDER", DocumentNo: orderNumber},
		{AccountCode: AccountDomesticSales, Side: SideCredit, Amount: net, DocumentType: "ORDER", DocumentNo: orderNumber},
	}
	if tax.IsPositive() {
		lines = append(lines, JournalLine{AccountCode: AccountCalculatedVAT, Side: SideCredit, Amount: tax, DocumentType: "ORDER", DocumentNo: orderNumber})
	}
	return NewJournalEntry(companyID, date, fmt.Sprintf("Marketplace sale %s", orderNumber), SourceTypeSaleLine, sourceID, "", lines)
}

// EscrowFundingSlip books buyer money the platform holds for the seller:
// DEBIT banks, CREDIT seller escrow liabilities.
func EscrowFundingSlip(companyID uuid.UUID, sourceID, orderNumber string, amount decimal.Decimal, date time.Time) (*JournalEntry, error) {
	lines := []JournalLine{
		{AccountCode: AccountBanks, Side: SideDebit, Amount: amount, DocumentType: "NETWORK_ORDER", DocumentNo: orderNumber},
		{AccountCode: AccountSellerEscrow, Side: SideCredit, Amount: amount, DocumentType: "NETWORK_ORDER", DocumentNo: orderNumber},
	}
	return NewJournalEntry(companyID, date, fmt.Sprintf("Escrow funded %s", orderNumber), SourceTypeEscrowFunding, sourceID, "", lines)
}

// EscrowReleaseSlip settles the escrow liability once funds are released:
// DEBIT seller escrow and CREDIT domestic sales for the gross, then DEBIT
// commission expense and CREDIT banks for the fees the platform keeps.
// The fee pair is omitted when there are no fees.
func EscrowReleaseSlip(companyID uuid.UUID, sourceID, orderNumber string, gross, platformFees decimal.Decimal, date time.Time) (*JournalEntry, error) {
	lines := []JournalLine{
		{AccountCode: AccountSellerEscrow, Side: SideDebit, Amount: gross, DocumentType: "NETWORK_ORDER", DocumentNo: orderNumber},
		{AccountCode: AccountDomesticSales, Side: SideCredit, Amount: gross, DocumentType: "NETWORK_ORDER", DocumentNo: orderNumber},
	}
	if platformFees.IsPositive() {
		lines = append(lines,
			JournalLine{AccountCode: AccountCommissionExpense, Side: SideDebit, Amount: platformFees, DocumentType: "NETWORK_ORDER", DocumentNo: orderNumber},
			JournalLine{AccountCode: AccountBanks, Side: SideCredit, Amount: platformFees, DocumentType: "NETWORK_ORDER", DocumentNo: orderNumber},
		)
	}
	return NewJournalEntry(companyID, date, fmt.Sprintf("Escrow release %s", orderNumber), SourceTypeEscrowRelease, sourceID, "", lines)
}

// CostOfGoodsSlip books the FIFO cost of a sale: DEBIT cost of goods sold, CREDIT merchandise.
func CostOfGoodsSlip(companyID uuid.UUID, sourceID, orderNumber string, cost decimal.Decimal, date time.Time) (*JournalEntry, error) {
	lines := []JournalLine{
		{AccountCode: AccountCostOfGoodsSold, Side: SideDebit, Amount: cost, DocumentType: "ORDER", DocumentNo: orderNumber},
		{AccountCode: AccountMerchandise, Side: SideCredit, Amount: cost, DocumentType: "ORDER", DocumentNo: orderNumber},
	}
	return NewJournalEntry(companyID, date, fmt.Sprintf("Cost of goods sold %s", orderNumber), SourceTypeStockConsumption, sourceID, "", lines)
}

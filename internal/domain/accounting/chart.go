package accounting

// Account codes used by the posting handlers
const (
	AccountCash              = "100"
	AccountChecksReceived    = "101"
	AccountBanks             = "102"
	AccountReceivables       = "120"
	AccountMerchandise       = "153"
	AccountPayables          = "320"
	AccountSellerEscrow      = "340"
	AccountCalculatedVAT     = "391"
	AccountDomesticSales     = "600"
	AccountOtherIncome       = "602"
	AccountCostOfGoodsSold   = "621"
	AccountCommissionExpense = "653"
)

// StandardChart returns the minimal chart the core posts against
func StandardChart() []*Account {
	defs := []struct {
		code  string
		name  string
		class AccountClass
	}{
		{AccountCash, "Cash", ClassAsset},
		{AccountChecksReceived, "Checks Received", ClassAsset},
		{AccountBanks, "Banks", ClassAsset},
		{AccountReceivables, "Receivables", ClassAsset},
		{AccountMerchandise, "Merchandise", ClassAsset},
		{AccountPayables, "Payables", ClassLiability},
		{AccountSellerEscrow, "Seller Escrow Liabilities", ClassLiability},
		{AccountCalculatedVAT, "Calculated VAT", ClassLiability},
		{AccountDomesticSales, "Domestic Sales", ClassIncome},
		{AccountOtherIncome, "Other Income", ClassIncome},
		{AccountCostOfGoodsSold, "Cost of Goods Sold", ClassExpense},
		{AccountCommissionExpense, "Commission Expense", ClassExpense},
	}
	accounts := make([]*Account, 0, len(defs))
	for _, d := range defs {
		a, err := NewAccount(d.code, d.name, d.class)
		if err != nil {
			panic(err)
		}
		accounts = append(accounts, a)
	}
	return accounts
}

package accounting

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestValidateLines(t *testing.T) {
	tests := []struct {
		name  string
		lines []JournalLine
		err   error
	}{
		{"empty", nil, ErrEmptyEntry},
		{"zero amount", []JournalLine{
			{AccountCode: "101", Side: SideDebit, Amount: decimal.Zero},
			{AccountCode: "120", Side: SideCredit, Amount: decimal.Zero},
		}, ErrNonPositiveAmount},
		{"negative amount", []JournalLine{
			{AccountCode: "101", Side: SideDebit, Amount: d("-5")},
			{AccountCode: "120", Side: SideCredit, Amount: d("-5")},
		}, ErrNonPositiveAmount},
		{"unbalanced", []JournalLine{
			{AccountCode: "101", Side: SideDebit, Amount: d("100")},
			{AccountCode: "120", Side: SideCredit, Amount: d("99.99")},
		}, ErrUnbalancedEntry},
		{"bad side", []JournalLine{
			{AccountCode: "101", Side: "LEFT", Amount: d("1")},
		}, ErrInvalidSide},
		{"balanced", []JournalLine{
			{AccountCode: "101", Side: SideDebit, Amount: d("100")},
			{AccountCode: "120", Side: SideCredit, Amount: d("60")},
			{AccountCode: "102", Side: SideCredit, Amount: d("40")},
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLines(tt.lines)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestNewJournalEntry_RequiresSource(t *testing.T) {
	_, err := NewJournalEntry(uuid.New(), time.Now(), "x", "", "1", "", []JournalLine{
		{AccountCode: "101", Side: SideDebit, Amount: d("1")},
		{AccountCode: "120", Side: SideCredit, Amount: d("1")},
	})
	assert.ErrorIs(t, err, ErrMissingSource)
}

func TestCheckReceivedSlip_StornoNetsToZero(t *testing.T) {
	slip, err := CheckReceivedSlip(uuid.New(), "chk-1", "CHK-0001", d("1000"), time.Now())
	require.NoError(t, err)

	debit, credit := slip.Totals()
	assert.True(t, debit.Equal(d("1000")))
	assert.True(t, credit.Equal(d("1000")))
	assert.Equal(t, 1, slip.Lines[0].LineNo)
	assert.Equal(t, 2, slip.Lines[1].LineNo)

	storno, err := slip.Reverse("entered twice", time.Now())
	require.NoError(t, err)
	require.NotNil(t, storno.ReversalOf)
	assert.Equal(t, slip.ID, *storno.ReversalOf)
	assert.Equal(t, SourceTypeStorno, storno.SourceType)
	assert.Equal(t, SideCredit, storno.Lines[0].Side)
	assert.Equal(t, SideDebit, storno.Lines[1].Side)

	for code, net := range NetByAccount(slip, storno) {
		assert.True(t, net.IsZero(), "account %s nets to %s", code, net)
	}
}

func TestReverse_RejectsReversedAndStorno(t *testing.T) {
	slip, err := CheckReceivedSlip(uuid.New(), "chk-2", "CHK-0002", d("10"), time.Now())
	require.NoError(t, err)

	storno, err := slip.Reverse("", time.Now())
	require.NoError(t, err)
	_, err = storno.Reverse("", time.Now())
	assert.ErrorIs(t, err, ErrCannotReverseStorno)

	reversedBy := storno.ID
	slip.ReversedBy = &reversedBy
	_, err = slip.Reverse("", time.Now())
	assert.ErrorIs(t, err, ErrAlreadyReversed)
}

// Randomized balanced slips must stay balanced and net to zero with their storno.
func TestJournalEntry_BalanceAndReversalInvariants(t *testing.T) {
	faker := gofakeit.New(20240601)
	codes := []string{AccountCash, AccountChecksReceived, AccountBanks, AccountReceivables, AccountDomesticSales}

	for i := 0; i < 200; i++ {
		n := faker.IntRange(1, 6)
		lines := make([]JournalLine, 0, n+1)
		total := decimal.Zero
		for j := 0; j < n; j++ {
			amt := decimal.NewFromFloat(faker.Float64Range(0.01, 50000)).Round(2)
			if !amt.IsPositive() {
				amt = d("0.01")
			}
			total = total.Add(amt)
			lines = append(lines, JournalLine{AccountCode: codes[faker.IntRange(0, len(codes)-1)], Side: SideDebit, Amount: amt})
		}
		lines = append(lines, JournalLine{AccountCode: codes[faker.IntRange(0, len(codes)-1)], Side: SideCredit, Amount: total})

		entry, err := NewJournalEntry(uuid.New(), time.Now(), "random", "Test", faker.UUID(), "", lines)
		require.NoError(t, err)
		debit, credit := entry.Totals()
		require.True(t, debit.Equal(credit))

		storno, err := entry.Reverse("", time.Now())
		require.NoError(t, err)
		for code, net := range NetByAccount(entry, storno) {
			require.True(t, net.IsZero(), "iteration %d account %s", i, code)
		}
	}
}

func TestSaleSlip_SplitsInclusiveVAT(t *testing.T) {
	slip, err := SaleSlip(uuid.New(), uuid.NewString(), "TY-1001", d("120"), d("20"), time.Now())
	require.NoError(t, err)
	require.Len(t, slip.Lines, 3)
	assert.True(t, slip.Lines[1].Amount.Equal(d("100")))
	assert.True(t, slip.Lines[2].Amount.Equal(d("20")))
	assert.Equal(t, AccountCalculatedVAT, slip.Lines[2].AccountCode)

	zeroRated, err := SaleSlip(uuid.New(), uuid.NewString(), "TY-1002", d("50"), decimal.Zero, time.Now())
	require.NoError(t, err)
	assert.Len(t, zeroRated.Lines, 2)
}

func TestNewAccount_DerivesParent(t *testing.T) {
	acc, err := NewAccount("120.01", "Receivables - Trendyol", ClassAsset)
	require.NoError(t, err)
	require.NotNil(t, acc.ParentCode)
	assert.Equal(t, "120", *acc.ParentCode)
	assert.Equal(t, SideDebit, acc.NormalBalance)

	_, err = NewAccount("120.", "bad", ClassAsset)
	assert.ErrorIs(t, err, ErrInvalidAccountCode)
	_, err = NewAccount("999", "bad", "OTHER")
	assert.ErrorIs(t, err, ErrInvalidAccountClass)

	assert.Len(t, StandardChart(), 12)
}

func TestEscrowSlips_SettleTheLiability(t *testing.T) {
	seller := uuid.New()
	orderID := uuid.NewString()

	funded, err := EscrowFundingSlip(seller, uuid.NewString(), "NW-1", d("1000"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, SourceTypeEscrowFunding, funded.SourceType)

	released, err := EscrowReleaseSlip(seller, orderID, "NW-1", d("1000"), d("60"), time.Now())
	require.NoError(t, err)
	require.Len(t, released.Lines, 4)
	debit, credit := released.Totals()
	assert.True(t, debit.Equal(credit), "release slip balances: %s vs %s", debit, credit)

	net := NetByAccount(funded, released)
	assert.True(t, net[AccountSellerEscrow].IsZero(), "escrow liability left at %s", net[AccountSellerEscrow])
	assert.True(t, net[AccountBanks].Equal(d("940")))
	assert.True(t, net[AccountDomesticSales].Equal(d("-1000")))
	assert.True(t, net[AccountCommissionExpense].Equal(d("60")))

	noFees, err := EscrowReleaseSlip(seller, uuid.NewString(), "NW-2", d("500"), decimal.Zero, time.Now())
	require.NoError(t, err)
	assert.Len(t, noFees.Lines, 2, "fee pair is omitted")
}

func TestCostOfGoodsSlip(t *testing.T) {
	entry, err := CostOfGoodsSlip(uuid.New(), uuid.NewString(), "1001", d("42"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, SourceTypeStockConsumption, entry.SourceType)
	debit, credit := entry.Totals()
	assert.True(t, debit.Equal(credit))

	_, err = CostOfGoodsSlip(uuid.New(), uuid.NewString(), "1001", decimal.Zero, time.Now())
	assert.ErrorIs(t, err, ErrNonPositiveAmount)
}

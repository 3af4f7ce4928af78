package einvoice

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/erp/ledger/internal/domain/reconciliation"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/jarcoal/httpmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testBaseURL = "https://einvoice.test"

func newTestClient(t *testing.T, maxRetries uint64) *Client {
	t.Helper()

	httpClient := &http.Client{}
	httpmock.ActivateNonDefault(httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	c, err := NewClient(config.EInvoiceConfig{
		BaseURL:    testBaseURL + "/",
		APIKey:     "secret",
		MaxRetries: maxRetries,
	}, zap.NewNop(),
		WithHTTPClient(httpClient),
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
	require.NoError(t, err)
	return c
}

func window() (time.Time, time.Time) {
	end := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	return end.Add(-24 * time.Hour), end
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(config.EInvoiceConfig{BaseURL: "  "}, zap.NewNop())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestListInvoices_Pages(t *testing.T) {
	c := newTestClient(t, 0)
	start, end := window()

	httpmock.RegisterResponderWithQuery(http.MethodGet, testBaseURL+"/v1/invoices",
		map[string]string{"type": "EFATURA", "start": "2025-03-01T12:00:00Z", "end": "2025-03-02T12:00:00Z", "page": "1"},
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
			return httpmock.NewStringResponse(200, `{"invoices":[
				{"uuid":"u-1","invoice_no":"INV-1","amount":"1180.00","receiver_tax_number":"1234567890","issued_at":"2025-03-01T15:00:00Z"}
			],"next_page":2}`), nil
		})
	httpmock.RegisterResponderWithQuery(http.MethodGet, testBaseURL+"/v1/invoices",
		map[string]string{"type": "EFATURA", "start": "2025-03-01T12:00:00Z", "end": "2025-03-02T12:00:00Z", "page": "2"},
		httpmock.NewStringResponder(200, `{"invoices":[
			{"uuid":"u-2","type":"EFATURA","amount":99.5,"receiver_tax_number":"111"}
		],"next_page":0}`))

	got, err := c.ListInvoices(context.Background(), start, end, reconciliation.InvoiceTypeEFatura)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "u-1", got[0].UUID)
	assert.Equal(t, reconciliation.InvoiceTypeEFatura, got[0].Type)
	assert.True(t, got[0].Amount.Equal(decimal.RequireFromString("1180.00")))
	assert.Equal(t, "1234567890", got[0].ReceiverTaxNumber)
	assert.Contains(t, string(got[0].Raw), `"uuid":"u-1"`)
	assert.True(t, got[1].Amount.Equal(decimal.RequireFromString("99.5")))
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestListInvoices_RetriesServerErrors(t *testing.T) {
	c := newTestClient(t, 3)
	start, end := window()

	calls := 0
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/v1/invoices",
		func(*http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return httpmock.NewStringResponse(503, "busy"), nil
			}
			return httpmock.NewStringResponse(200, `{"invoices":[]}`), nil
		})

	got, err := c.ListInvoices(context.Background(), start, end, reconciliation.InvoiceTypeEArsiv)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 3, calls)
}

func TestListInvoices_GivesUpAfterMaxRetries(t *testing.T) {
	c := newTestClient(t, 2)
	start, end := window()

	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/v1/invoices",
		httpmock.NewErrorResponder(errors.New("connection reset")))

	_, err := c.ListInvoices(context.Background(), start, end, reconciliation.InvoiceTypeEArsiv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 3, httpmock.GetTotalCallCount(), "one attempt plus two retries")
}

func TestListInvoices_ClientErrorIsPermanent(t *testing.T) {
	c := newTestClient(t, 5)
	start, end := window()

	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/v1/invoices",
		httpmock.NewStringResponder(401, `{"error":"bad key"}`))

	_, err := c.ListInvoices(context.Background(), start, end, reconciliation.InvoiceTypeEFatura)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestListInvoices_MalformedBody(t *testing.T) {
	c := newTestClient(t, 5)
	start, end := window()

	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/v1/invoices",
		httpmock.NewStringResponder(200, `not json`))

	_, err := c.ListInvoices(context.Background(), start, end, reconciliation.InvoiceTypeEFatura)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestListInvoices_CancelledContext(t *testing.T) {
	c := newTestClient(t, 5)
	start, end := window()

	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/v1/invoices",
		httpmock.NewStringResponder(200, `{"invoices":[]}`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ListInvoices(ctx, start, end, reconciliation.InvoiceTypeEFatura)
	assert.ErrorIs(t, err, context.Canceled)
}

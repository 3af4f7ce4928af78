// Package einvoice is the HTTP client of the e-invoice integrator used by
// invoice reconciliation.
package einvoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/erp/ledger/internal/domain/reconciliation"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	invoicesPath = "/v1/invoices"
	// maxPages bounds a single listing; the reconciliation window is at most a few days
	maxPages     = 100
	maxBodyBytes = 8 << 20
)

var (
	// ErrNotConfigured is returned when no base URL is set
	ErrNotConfigured = errors.New("einvoice: base url not configured")
	// ErrUnexpectedStatus wraps non-retryable provider responses
	ErrUnexpectedStatus = errors.New("einvoice: unexpected status")
)

// Client lists invoices from the integrator. Transient failures (transport
// errors, 429 and 5xx) are retried with exponential backoff; other statuses
// fail immediately.
type Client struct {
	baseURL    string
	apiKey     string
	maxRetries uint64
	httpClient *http.Client
	newBackOff func() backoff.BackOff
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithBackOff replaces the retry policy, mostly for tests
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(cl *Client) { cl.newBackOff = fn }
}

// NewClient creates a Client from config
func NewClient(cfg config.EInvoiceConfig, logger *zap.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrNotConfigured
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: timeout},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			b.MaxElapsedTime = timeout
			return b
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type listResponse struct {
	Invoices []json.RawMessage `json:"invoices"`
	NextPage int               `json:"next_page"`
}

// ListInvoices returns every invoice of invoiceType issued in [start, end].
func (c *Client) ListInvoices(ctx context.Context, start, end time.Time, invoiceType reconciliation.InvoiceType) ([]reconciliation.RemoteInvoice, error) {
	ctx, span := telemetry.StartSpan(ctx, "einvoice.list_invoices",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute("invoice_type", string(invoiceType)),
	)
	defer span.End()

	var out []reconciliation.RemoteInvoice
	for page := 1; page > 0 && page <= maxPages; {
		resp, err := c.fetchPage(ctx, start, end, invoiceType, page)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		for _, raw := range resp.Invoices {
			var inv reconciliation.RemoteInvoice
			if err := json.Unmarshal(raw, &inv); err != nil {
				err = fmt.Errorf("einvoice: decode invoice: %w", err)
				telemetry.RecordError(span, err)
				return nil, err
			}
			if inv.Type == "" {
				inv.Type = invoiceType
			}
			inv.Raw = raw
			out = append(out, inv)
		}
		if resp.NextPage <= page {
			break
		}
		page = resp.NextPage
	}

	telemetry.SetAttribute(span, "invoice_count", len(out))
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, start, end time.Time, invoiceType reconciliation.InvoiceType, page int) (*listResponse, error) {
	q := url.Values{}
	q.Set("type", string(invoiceType))
	q.Set("start", start.UTC().Format(time.RFC3339))
	q.Set("end", end.UTC().Format(time.RFC3339))
	q.Set("page", strconv.Itoa(page))
	endpoint := c.baseURL + invoicesPath + "?" + q.Encode()

	var result listResponse
	attempt := 0
	operation := func() error {
		attempt++
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("einvoice: create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("einvoice: request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("einvoice: read body: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("einvoice: provider returned %d", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, truncate(body, 256)))
		}

		result = listResponse{}
		if err := json.Unmarshal(body, &result); err != nil {
			return backoff.Permanent(fmt.Errorf("einvoice: decode response: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("einvoice request failed, retrying",
			zap.String("invoice_type", string(invoiceType)),
			zap.Int("page", page),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, err
	}
	return &result, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

var _ reconciliation.EInvoiceProvider = (*Client)(nil)

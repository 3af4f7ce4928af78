package reconciliation

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FormalStatus is the e-invoice submission state of a local invoice
type FormalStatus string

const (
	FormalNone    FormalStatus = "NONE"
	FormalPending FormalStatus = "PENDING"
	FormalSent    FormalStatus = "SENT"
	FormalFailed  FormalStatus = "FAILED"
)

// InvoiceType selects the e-invoice register on the provider side
type InvoiceType string

const (
	InvoiceTypeEFatura InvoiceType = "EFATURA"
	InvoiceTypeEArsiv  InvoiceType = "EARSIV"
)

// AllInvoiceTypes lists the registers a reconciliation run searches
func AllInvoiceTypes() []InvoiceType {
	return []InvoiceType{InvoiceTypeEFatura, InvoiceTypeEArsiv}
}

// SalesInvoice is the local invoice an ExternalRequest submitted
type SalesInvoice struct {
	ID                uuid.UUID
	CompanyID         uuid.UUID
	InvoiceNo         string
	ReceiverTaxNumber string
	TotalAmount       decimal.Decimal
	Currency          string
	IsFormal          bool
	FormalStatus      FormalStatus
	FormalUUID        *string
	IssuedAt          time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// RemoteInvoice is an invoice as reported by the e-invoice provider
type RemoteInvoice struct {
	UUID              string          `json:"uuid"`
	Type              InvoiceType     `json:"type"`
	InvoiceNo         string          `json:"invoice_no"`
	Amount            decimal.Decimal `json:"amount"`
	ReceiverTaxNumber string          `json:"receiver_tax_number"`
	IssuedAt          time.Time       `json:"issued_at"`
	Raw               []byte          `json:"-"`
}

// NormalizeTaxNumber trims whitespace; tax ids are compared exactly otherwise
func NormalizeTaxNumber(s string) string {
	return strings.TrimSpace(s)
}

package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/reconciliation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExternalRequestModel logs one call to an external provider and its claim state
type ExternalRequestModel struct {
	BaseModel
	CompanyID       uuid.UUID                    `gorm:"type:uuid;not null;index"`
	Provider        string                       `gorm:"type:varchar(50);not null;index:idx_external_requests_scan,priority:1"`
	EntityType      string                       `gorm:"type:varchar(50);not null;index:idx_external_requests_scan,priority:2"`
	EntityID        uuid.UUID                    `gorm:"type:uuid;not null;index"`
	Status          reconciliation.RequestStatus `gorm:"type:varchar(20);not null;index:idx_external_requests_scan,priority:3"`
	RequestPayload  []byte                       `gorm:"type:jsonb"`
	ResponsePayload []byte                       `gorm:"type:jsonb"`
	ClaimedBy       *string                      `gorm:"type:varchar(100)"`
	ClaimedAt       *time.Time
	Attempts        int    `gorm:"not null"`
	LastError       string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ExternalRequestModel) TableName() string {
	return "external_requests"
}

// ToDomain converts the model to a domain ExternalRequest
func (m *ExternalRequestModel) ToDomain() *reconciliation.ExternalRequest {
	return &reconciliation.ExternalRequest{
		ID:              m.ID,
		CompanyID:       m.CompanyID,
		Provider:        m.Provider,
		EntityType:      m.EntityType,
		EntityID:        m.EntityID,
		Status:          m.Status,
		RequestPayload:  m.RequestPayload,
		ResponsePayload: m.ResponsePayload,
		ClaimedBy:       m.ClaimedBy,
		ClaimedAt:       m.ClaimedAt,
		Attempts:        m.Attempts,
		LastError:       m.LastError,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// ExternalRequestModelFromDomain creates a model from a domain ExternalRequest
func ExternalRequestModelFromDomain(r *reconciliation.ExternalRequest) *ExternalRequestModel {
	return &ExternalRequestModel{
		BaseModel:       newBase(r.ID, r.CreatedAt, r.UpdatedAt),
		CompanyID:       r.CompanyID,
		Provider:        r.Provider,
		EntityType:      r.EntityType,
		EntityID:        r.EntityID,
		Status:          r.Status,
		RequestPayload:  r.RequestPayload,
		ResponsePayload: r.ResponsePayload,
		ClaimedBy:       r.ClaimedBy,
		ClaimedAt:       r.ClaimedAt,
		Attempts:        r.Attempts,
		LastError:       r.LastError,
	}
}

// SalesInvoiceModel is a locally issued invoice with its e-invoice state
type SalesInvoiceModel struct {
	BaseModel
	CompanyID         uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_sales_invoices_no,priority:1"`
	InvoiceNo         string                      `gorm:"type:varchar(50);not null;uniqueIndex:idx_sales_invoices_no,priority:2"`
	ReceiverTaxNumber string                      `gorm:"type:varchar(20)"`
	TotalAmount       decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	Currency          string                      `gorm:"type:varchar(3);not null"`
	IsFormal          bool                        `gorm:"not null"`
	FormalStatus      reconciliation.FormalStatus `gorm:"type:varchar(20);not null"`
	FormalUUID        *string                     `gorm:"type:varchar(64);uniqueIndex:idx_sales_invoices_formal_uuid"`
	IssuedAt          time.Time                   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SalesInvoiceModel) TableName() string {
	return "sales_invoices"
}

// ToDomain converts the model to a domain SalesInvoice
func (m *SalesInvoiceModel) ToDomain() *reconciliation.SalesInvoice {
	return &reconciliation.SalesInvoice{
		ID:                m.ID,
		CompanyID:         m.CompanyID,
		InvoiceNo:         m.InvoiceNo,
		ReceiverTaxNumber: m.ReceiverTaxNumber,
		TotalAmount:       m.TotalAmount,
		Currency:          m.Currency,
		IsFormal:          m.IsFormal,
		FormalStatus:      m.FormalStatus,
		FormalUUID:        m.FormalUUID,
		IssuedAt:          m.IssuedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// SalesInvoiceModelFromDomain creates a model from a domain SalesInvoice
func SalesInvoiceModelFromDomain(inv *reconciliation.SalesInvoice) *SalesInvoiceModel {
	return &SalesInvoiceModel{
		BaseModel:         newBase(inv.ID, inv.CreatedAt, inv.UpdatedAt),
		CompanyID:         inv.CompanyID,
		InvoiceNo:         inv.InvoiceNo,
		ReceiverTaxNumber: inv.ReceiverTaxNumber,
		TotalAmount:       inv.TotalAmount,
		Currency:          inv.Currency,
		IsFormal:          inv.IsFormal,
		FormalStatus:      inv.FormalStatus,
		FormalUUID:        inv.FormalUUID,
		IssuedAt:          inv.IssuedAt,
	}
}

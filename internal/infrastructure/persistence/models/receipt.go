package models

import (
	"time"

	"github.com/google/uuid"
)

// HandlerReceiptModel records that a handler applied the side effects of an event
type HandlerReceiptModel struct {
	EventID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	HandlerName string    `gorm:"type:varchar(100);primaryKey"`
	ProcessedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (HandlerReceiptModel) TableName() string {
	return "handler_receipts"
}

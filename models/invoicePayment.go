package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoicePayment struct {
	ID        int             `gorm:"primary_key" json:"id"`
	TenantId  string          `gorm:"index;size:36;not null" json:"tenant_id"`
	InvoiceId int             `gorm:"index;not null" json:"invoice_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Method    PaymentMethod   `gorm:"type:enum('cash','upi','bank_transfer');not null" json:"method"`
	Reference string          `gorm:"size:255;default:null" json:"reference"`
	PaidAt    time.Time       `gorm:"type:date;not null" json:"paid_at"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// NewPayment is the request shape for both invoice and purchase bill payments.
type NewPayment struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    PaymentMethod   `json:"method" validate:"required"`
	Reference string          `json:"reference" validate:"max=255"`
	PaidAt    string          `json:"paid_at"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillPayment is a payment made against a purchase bill.
type BillPayment struct {
	ID        int             `gorm:"primary_key" json:"id"`
	TenantId  string          `gorm:"index;size:36;not null" json:"tenant_id"`
	BillId    int             `gorm:"index;not null" json:"bill_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Method    PaymentMethod   `gorm:"type:enum('cash','upi','bank_transfer');not null" json:"method"`
	Reference string          `gorm:"size:255;default:null" json:"reference"`
	PaidAt    time.Time       `gorm:"type:date;not null" json:"paid_at"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

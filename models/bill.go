package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseBill moves draft -> recorded once. Recorded bills cannot be edited or deleted.
type PurchaseBill struct {
	ID         int                `gorm:"primary_key" json:"id"`
	TenantId   string             `gorm:"size:36;not null;uniqueIndex:idx_purchase_bills_tenant_number,priority:1" json:"tenant_id"`
	SupplierId int                `gorm:"index;not null" json:"supplier_id"`
	BillNumber string             `gorm:"size:100;not null;uniqueIndex:idx_purchase_bills_tenant_number,priority:2" json:"bill_number"`
	BillDate   time.Time          `gorm:"type:date;index;not null" json:"bill_date"`
	Status     BillStatus         `gorm:"type:enum('draft','recorded');not null;default:draft" json:"status"`
	Subtotal   decimal.Decimal    `gorm:"type:decimal(20,2);default:0" json:"subtotal"`
	Total      decimal.Decimal    `gorm:"type:decimal(20,2);default:0" json:"total"`
	AmountPaid decimal.Decimal    `gorm:"type:decimal(20,2);default:0" json:"amount_paid"`
	Notes      string             `gorm:"type:text;default:null" json:"notes"`
	Supplier   *Supplier          `gorm:"foreignKey:SupplierId" json:"supplier,omitempty"`
	Items      []PurchaseBillItem `gorm:"foreignKey:BillId" json:"items,omitempty"`
	CreatedAt  time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (b *PurchaseBill) Balance() decimal.Decimal {
	return b.Total.Sub(b.AmountPaid).Round(2)
}

type PurchaseBillItem struct {
	ID            int             `gorm:"primary_key" json:"id"`
	TenantId      string          `gorm:"index;size:36;not null" json:"tenant_id"`
	BillId        int             `gorm:"index;not null" json:"bill_id"`
	ProductId     int             `gorm:"index;not null" json:"product_id"`
	Quantity      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"purchase_price"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewPurchaseBill struct {
	SupplierId int                   `json:"supplier_id" validate:"required"`
	BillNumber string                `json:"bill_number" validate:"required,max=100"`
	BillDate   string                `json:"bill_date" validate:"required"`
	Status     BillStatus            `json:"status"`
	Notes      string                `json:"notes"`
	Items      []NewPurchaseBillItem `json:"items" validate:"required,min=1,dive"`
}

type NewPurchaseBillItem struct {
	ProductId     int             `json:"product_id" validate:"required"`
	Quantity      decimal.Decimal `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
}

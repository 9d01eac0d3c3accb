package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesInvoice totals are fixed at creation. Only AmountPaid and Status
// move afterwards, and only through the payment ledger.
type SalesInvoice struct {
	ID            int                `gorm:"primary_key" json:"id"`
	TenantId      string             `gorm:"size:36;not null;uniqueIndex:idx_sales_invoices_tenant_number,priority:1" json:"tenant_id"`
	CustomerId    int                `gorm:"index;not null" json:"customer_id"`
	InvoiceNumber string             `gorm:"size:50;not null;uniqueIndex:idx_sales_invoices_tenant_number,priority:2" json:"invoice_number"`
	InvoiceDate   time.Time          `gorm:"type:date;index;not null" json:"invoice_date"`
	Status        InvoiceStatus      `gorm:"type:enum('draft','sent','paid');not null;default:draft" json:"status"`
	GstMode       GstMode            `gorm:"type:enum('intra','inter');not null;default:intra" json:"gst_mode"`
	Subtotal      decimal.Decimal    `gorm:"type:decimal(20,2);default:0" json:"subtotal"`
	TaxPercent    decimal.Decimal    `gorm:"type:decimal(7,2);default:0" json:"tax_percent"`
	TaxAmount     decimal.Decimal    `gorm:"type:decimal(20,2);default:0" json:"tax_amount"`
	Total         decimal.Decimal    `gorm:"type:decimal(20,2);default:0" json:"total"`
	AmountPaid    decimal.Decimal    `gorm:"type:decimal(20,2);default:0" json:"amount_paid"`
	Notes         string             `gorm:"type:text;default:null" json:"notes"`
	Customer      *Customer          `gorm:"foreignKey:CustomerId" json:"customer,omitempty"`
	Items         []SalesInvoiceItem `gorm:"foreignKey:InvoiceId" json:"items,omitempty"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// Balance is what is still owed on the invoice.
func (inv *SalesInvoice) Balance() decimal.Decimal {
	return inv.Total.Sub(inv.AmountPaid).Round(2)
}

// SalesInvoiceItem is written once by the invoice composer and never edited.
// CostPrice and CostAmount snapshot the product's last purchase price.
type SalesInvoiceItem struct {
	ID          int              `gorm:"primary_key" json:"id"`
	TenantId    string           `gorm:"index;size:36;not null" json:"tenant_id"`
	InvoiceId   int              `gorm:"index;not null" json:"invoice_id"`
	ProductId   *int             `gorm:"index;default:null" json:"product_id"`
	Description string           `gorm:"size:255;not null" json:"description"`
	Quantity    decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitPrice   decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	Amount      decimal.Decimal  `gorm:"type:decimal(20,2);not null" json:"amount"`
	CostPrice   *decimal.Decimal `gorm:"type:decimal(20,4);default:null" json:"cost_price"`
	CostAmount  *decimal.Decimal `gorm:"type:decimal(20,2);default:null" json:"cost_amount"`
	TaxPercent  decimal.Decimal  `gorm:"type:decimal(7,2);default:0" json:"tax_percent"`
	GstMode     GstMode          `gorm:"type:enum('intra','inter');not null;default:intra" json:"gst_mode"`
	Cgst        decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"cgst"`
	Sgst        decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"sgst"`
	Igst        decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"igst"`
	HsnCode     string           `gorm:"size:20;default:null" json:"hsn_code"`
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

type NewSalesInvoice struct {
	CustomerId  int                   `json:"customer_id" validate:"required"`
	InvoiceDate string                `json:"invoice_date" validate:"required"`
	Status      InvoiceStatus         `json:"status"`
	GstMode     GstMode               `json:"gst_mode"`
	Notes       string                `json:"notes"`
	Items       []NewSalesInvoiceItem `json:"items" validate:"required,min=1,dive"`
}

// NewSalesInvoiceItem falls back to the product's name and price when
// Description or UnitPrice are not given.
type NewSalesInvoiceItem struct {
	ProductId   *int             `json:"product_id"`
	Description string           `json:"description" validate:"max=255"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	HsnCode     string           `json:"hsn_code" validate:"max=20"`
}

// UpdateSalesInvoice changes header fields only. Items, totals and number are immutable.
type UpdateSalesInvoice struct {
	InvoiceDate *string        `json:"invoice_date"`
	Status      *InvoiceStatus `json:"status"`
	Notes       *string        `json:"notes"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product stock and last purchase price move only when a purchase bill is recorded.
type Product struct {
	ID                int              `gorm:"primary_key" json:"id"`
	TenantId          string           `gorm:"index;size:36;not null" json:"tenant_id"`
	Name              string           `gorm:"size:255;not null" json:"name"`
	UnitPrice         decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	TaxPercent        *decimal.Decimal `gorm:"type:decimal(7,2);default:null" json:"tax_percent"`
	HsnCode           string           `gorm:"size:20;default:null" json:"hsn_code"`
	StockQty          decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"stock_qty"`
	LastPurchasePrice decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"last_purchase_price"`
	CreatedAt         time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tenant is a shop. InvoiceNextNumber is only advanced by invoice numbering.
type Tenant struct {
	ID                string           `gorm:"primary_key;size:36" json:"id"`
	Name              string           `gorm:"size:100;not null" json:"name"`
	Slug              string           `gorm:"size:100;uniqueIndex" json:"slug"`
	CurrencyCode      string           `gorm:"size:10;default:INR" json:"currency_code"`
	CurrencySymbol    string           `gorm:"size:10" json:"currency_symbol"`
	DefaultTaxPercent *decimal.Decimal `gorm:"type:decimal(7,2);default:null" json:"default_tax_percent"`
	InvoicePrefix     string           `gorm:"size:20;not null;default:''" json:"invoice_prefix"`
	InvoiceNextNumber int64            `gorm:"not null;default:1" json:"invoice_next_number"`
	InvoiceNotes      string           `gorm:"type:text;default:null" json:"invoice_notes"`
	InvoiceTerms      string           `gorm:"type:text;default:null" json:"invoice_terms"`
	PageSize          int              `gorm:"default:50" json:"page_size"`
	LogoUrl           string           `gorm:"size:255" json:"logo_url"`
	CreatedAt         time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTenant struct {
	Name              string           `json:"name" validate:"required,max=100"`
	Slug              string           `json:"slug" validate:"required,max=100"`
	CurrencyCode      string           `json:"currency_code" validate:"omitempty,len=3"`
	CurrencySymbol    string           `json:"currency_symbol"`
	DefaultTaxPercent *decimal.Decimal `json:"default_tax_percent"`
	InvoicePrefix     string           `json:"invoice_prefix" validate:"max=20"`
}

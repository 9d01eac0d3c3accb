package models

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrDuplicate is returned when an insert violates a unique index.
	ErrDuplicate = errors.New("duplicate record")
	// ErrConcurrentUpdate is returned when a conditional update matched no row
	// because the expected prior value had changed.
	ErrConcurrentUpdate = errors.New("record changed concurrently")
	// ErrNotFound is returned for missing or foreign-tenant rows.
	ErrNotFound = errors.New("record not found")
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

type Pagination struct {
	Limit  int `form:"limit" json:"limit"`
	Offset int `form:"offset" json:"offset"`
}

// Normalize applies the default page size and clamps to the maximum.
func (p Pagination) Normalize() Pagination {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type SalesInvoiceFilter struct {
	Statuses   []InvoiceStatus
	CustomerId int
	From       *time.Time
	To         *time.Time
	// Limit 0 returns every matching row; reports use that.
	Limit  int
	Offset int
}

type PurchaseBillFilter struct {
	Statuses   []BillStatus
	SupplierId int
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// Store is the tenant-scoped relational store the engine and reports run against.
// Every read and write is keyed by tenant id. Store methods do not span
// transactions; multi-row writes are composed by the caller.
type Store interface {
	CreateTenant(ctx context.Context, tenant *Tenant) error
	GetTenant(ctx context.Context, tenantId string) (*Tenant, error)
	// AdvanceInvoiceCounter sets the counter to next only if it still holds expected.
	AdvanceInvoiceCounter(ctx context.Context, tenantId string, expected int64, next int64) error

	CreateCustomer(ctx context.Context, customer *Customer) error
	GetCustomer(ctx context.Context, tenantId string, id int) (*Customer, error)
	CreateSupplier(ctx context.Context, supplier *Supplier) error
	GetSupplier(ctx context.Context, tenantId string, id int) (*Supplier, error)

	CreateProduct(ctx context.Context, product *Product) error
	GetProduct(ctx context.Context, tenantId string, id int) (*Product, error)
	GetProducts(ctx context.Context, tenantId string, ids []int) ([]*Product, error)
	// UpdateProductStock writes stock and last purchase price only if stock still equals expectedStock.
	UpdateProductStock(ctx context.Context, tenantId string, id int, expectedStock decimal.Decimal, newStock decimal.Decimal, lastPurchasePrice decimal.Decimal) error

	CreateSalesInvoice(ctx context.Context, invoice *SalesInvoice) error
	CreateSalesInvoiceItems(ctx context.Context, items []*SalesInvoiceItem) error
	// GetSalesInvoice returns the invoice joined with its customer and items.
	GetSalesInvoice(ctx context.Context, tenantId string, id int) (*SalesInvoice, error)
	ListSalesInvoices(ctx context.Context, tenantId string, filter SalesInvoiceFilter) ([]*SalesInvoice, error)
	ListSalesInvoiceItems(ctx context.Context, tenantId string, invoiceIds []int) ([]*SalesInvoiceItem, error)
	UpdateSalesInvoiceHeader(ctx context.Context, tenantId string, id int, invoiceDate time.Time, status InvoiceStatus, notes string) error
	UpdateInvoicePaymentState(ctx context.Context, tenantId string, id int, amountPaid decimal.Decimal, status InvoiceStatus) error
	DeleteSalesInvoice(ctx context.Context, tenantId string, id int) error
	DeleteSalesInvoiceItems(ctx context.Context, tenantId string, invoiceId int) error

	CreateInvoicePayment(ctx context.Context, payment *InvoicePayment) error
	GetInvoicePayment(ctx context.Context, tenantId string, id int) (*InvoicePayment, error)
	ListInvoicePayments(ctx context.Context, tenantId string, invoiceId int) ([]*InvoicePayment, error)
	CountInvoicePayments(ctx context.Context, tenantId string, invoiceId int) (int64, error)
	DeleteInvoicePayment(ctx context.Context, tenantId string, id int) error

	CreatePurchaseBill(ctx context.Context, bill *PurchaseBill) error
	CreatePurchaseBillItems(ctx context.Context, items []*PurchaseBillItem) error
	// GetPurchaseBill returns the bill joined with its supplier and items.
	GetPurchaseBill(ctx context.Context, tenantId string, id int) (*PurchaseBill, error)
	ListPurchaseBills(ctx context.Context, tenantId string, filter PurchaseBillFilter) ([]*PurchaseBill, error)
	// UpdateDraftPurchaseBill rewrites header fields and totals only while the bill is still draft.
	UpdateDraftPurchaseBill(ctx context.Context, bill *PurchaseBill) error
	// UpdatePurchaseBillStatus moves the bill from -> to, failing if the status is no longer from.
	UpdatePurchaseBillStatus(ctx context.Context, tenantId string, id int, from BillStatus, to BillStatus) error
	UpdateBillAmountPaid(ctx context.Context, tenantId string, id int, amountPaid decimal.Decimal) error
	// DeleteDraftPurchaseBill removes the bill row only while it is still draft.
	DeleteDraftPurchaseBill(ctx context.Context, tenantId string, id int) error
	DeletePurchaseBillItems(ctx context.Context, tenantId string, billId int) error

	CreateBillPayment(ctx context.Context, payment *BillPayment) error
	GetBillPayment(ctx context.Context, tenantId string, id int) (*BillPayment, error)
	ListBillPayments(ctx context.Context, tenantId string, billId int) ([]*BillPayment, error)
	CountBillPayments(ctx context.Context, tenantId string, billId int) (int64, error)
	DeleteBillPayment(ctx context.Context, tenantId string, id int) error
}

package models

import (
	"context"
	"errors"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ Store = (*GormStore)(nil)

// GormStore is the MySQL backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if isDuplicateKeyErr(err) {
		return ErrDuplicate
	}
	return err
}

// conditional updates report a concurrent change when no row matched
func conditionalResult(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

// fetch one tenant-owned row by id, ErrNotFound when absent
func fetchModel[T any](ctx context.Context, db *gorm.DB, tenantId string, id int, preload func(*gorm.DB) *gorm.DB) (*T, error) {
	dbCtx := db.WithContext(ctx).Where("tenant_id = ?", tenantId)
	if preload != nil {
		dbCtx = preload(dbCtx)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func createModel[T any](ctx context.Context, db *gorm.DB, value *T) error {
	return mapWriteErr(db.WithContext(ctx).Omit(clause.Associations).Create(value).Error)
}

func createModels[T any](ctx context.Context, db *gorm.DB, values []*T) error {
	if len(values) == 0 {
		return nil
	}
	return mapWriteErr(db.WithContext(ctx).Omit(clause.Associations).Create(&values).Error)
}

func deleteModel[T any](ctx context.Context, db *gorm.DB, tenantId string, id int) error {
	var model T
	res := db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantId, id).Delete(&model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func dateRangeScope(column string, from, to *time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if from != nil {
			db = db.Where(column+" >= ?", *from)
		}
		if to != nil {
			db = db.Where(column+" <= ?", *to)
		}
		return db
	}
}

func pageScope(limit, offset int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if limit > 0 {
			db = db.Limit(limit)
		}
		if offset > 0 {
			db = db.Offset(offset)
		}
		return db
	}
}

/* tenants */

func (s *GormStore) CreateTenant(ctx context.Context, tenant *Tenant) error {
	return createModel(ctx, s.db, tenant)
}

func (s *GormStore) GetTenant(ctx context.Context, tenantId string) (*Tenant, error) {
	var tenant Tenant
	err := s.db.WithContext(ctx).Where("id = ?", tenantId).First(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (s *GormStore) AdvanceInvoiceCounter(ctx context.Context, tenantId string, expected int64, next int64) error {
	res := s.db.WithContext(ctx).Model(&Tenant{}).
		Where("id = ? AND invoice_next_number = ?", tenantId, expected).
		Update("invoice_next_number", next)
	return conditionalResult(res)
}

/* parties and products */

func (s *GormStore) CreateCustomer(ctx context.Context, customer *Customer) error {
	return createModel(ctx, s.db, customer)
}

func (s *GormStore) GetCustomer(ctx context.Context, tenantId string, id int) (*Customer, error) {
	return fetchModel[Customer](ctx, s.db, tenantId, id, nil)
}

func (s *GormStore) CreateSupplier(ctx context.Context, supplier *Supplier) error {
	return createModel(ctx, s.db, supplier)
}

func (s *GormStore) GetSupplier(ctx context.Context, tenantId string, id int) (*Supplier, error) {
	return fetchModel[Supplier](ctx, s.db, tenantId, id, nil)
}

func (s *GormStore) CreateProduct(ctx context.Context, product *Product) error {
	return createModel(ctx, s.db, product)
}

func (s *GormStore) GetProduct(ctx context.Context, tenantId string, id int) (*Product, error) {
	return fetchModel[Product](ctx, s.db, tenantId, id, nil)
}

func (s *GormStore) GetProducts(ctx context.Context, tenantId string, ids []int) ([]*Product, error) {
	var products []*Product
	if len(ids) == 0 {
		return products, nil
	}
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantId, ids).
		Order("id").
		Find(&products).Error
	return products, err
}

func (s *GormStore) UpdateProductStock(ctx context.Context, tenantId string, id int, expectedStock decimal.Decimal, newStock decimal.Decimal, lastPurchasePrice decimal.Decimal) error {
	res := s.db.WithContext(ctx).Model(&Product{}).
		Where("tenant_id = ? AND id = ? AND stock_qty = ?", tenantId, id, expectedStock).
		Updates(map[string]interface{}{
			"stock_qty":           newStock,
			"last_purchase_price": lastPurchasePrice,
		})
	return conditionalResult(res)
}

/* sales invoices */

func (s *GormStore) CreateSalesInvoice(ctx context.Context, invoice *SalesInvoice) error {
	return createModel(ctx, s.db, invoice)
}

func (s *GormStore) CreateSalesInvoiceItems(ctx context.Context, items []*SalesInvoiceItem) error {
	return createModels(ctx, s.db, items)
}

func (s *GormStore) GetSalesInvoice(ctx context.Context, tenantId string, id int) (*SalesInvoice, error) {
	return fetchModel[SalesInvoice](ctx, s.db, tenantId, id, func(db *gorm.DB) *gorm.DB {
		return db.Preload("Customer").Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id")
		})
	})
}

func (s *GormStore) ListSalesInvoices(ctx context.Context, tenantId string, filter SalesInvoiceFilter) ([]*SalesInvoice, error) {
	dbCtx := s.db.WithContext(ctx).
		Preload("Customer").
		Where("tenant_id = ?", tenantId).
		Scopes(dateRangeScope("invoice_date", filter.From, filter.To), pageScope(filter.Limit, filter.Offset))
	if len(filter.Statuses) > 0 {
		dbCtx = dbCtx.Where("status IN ?", filter.Statuses)
	}
	if filter.CustomerId > 0 {
		dbCtx = dbCtx.Where("customer_id = ?", filter.CustomerId)
	}
	var invoices []*SalesInvoice
	err := dbCtx.Order("invoice_date DESC, id DESC").Find(&invoices).Error
	return invoices, err
}

func (s *GormStore) ListSalesInvoiceItems(ctx context.Context, tenantId string, invoiceIds []int) ([]*SalesInvoiceItem, error) {
	var items []*SalesInvoiceItem
	if len(invoiceIds) == 0 {
		return items, nil
	}
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id IN ?", tenantId, invoiceIds).
		Order("invoice_id, id").
		Find(&items).Error
	return items, err
}

func (s *GormStore) UpdateSalesInvoiceHeader(ctx context.Context, tenantId string, id int, invoiceDate time.Time, status InvoiceStatus, notes string) error {
	res := s.db.WithContext(ctx).Model(&SalesInvoice{}).
		Where("tenant_id = ? AND id = ?", tenantId, id).
		Updates(map[string]interface{}{
			"invoice_date": invoiceDate,
			"status":       status,
			"notes":        notes,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) UpdateInvoicePaymentState(ctx context.Context, tenantId string, id int, amountPaid decimal.Decimal, status InvoiceStatus) error {
	res := s.db.WithContext(ctx).Model(&SalesInvoice{}).
		Where("tenant_id = ? AND id = ?", tenantId, id).
		Updates(map[string]interface{}{
			"amount_paid": amountPaid,
			"status":      status,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteSalesInvoice(ctx context.Context, tenantId string, id int) error {
	return deleteModel[SalesInvoice](ctx, s.db, tenantId, id)
}

func (s *GormStore) DeleteSalesInvoiceItems(ctx context.Context, tenantId string, invoiceId int) error {
	return s.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantId, invoiceId).
		Delete(&SalesInvoiceItem{}).Error
}

/* invoice payments */

func (s *GormStore) CreateInvoicePayment(ctx context.Context, payment *InvoicePayment) error {
	return createModel(ctx, s.db, payment)
}

func (s *GormStore) GetInvoicePayment(ctx context.Context, tenantId string, id int) (*InvoicePayment, error) {
	return fetchModel[InvoicePayment](ctx, s.db, tenantId, id, nil)
}

func (s *GormStore) ListInvoicePayments(ctx context.Context, tenantId string, invoiceId int) ([]*InvoicePayment, error) {
	var payments []*InvoicePayment
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantId, invoiceId).
		Order("paid_at, id").
		Find(&payments).Error
	return payments, err
}

func (s *GormStore) CountInvoicePayments(ctx context.Context, tenantId string, invoiceId int) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&InvoicePayment{}).
		Where("tenant_id = ? AND invoice_id = ?", tenantId, invoiceId).
		Count(&count).Error
	return count, err
}

func (s *GormStore) DeleteInvoicePayment(ctx context.Context, tenantId string, id int) error {
	return deleteModel[InvoicePayment](ctx, s.db, tenantId, id)
}

/* purchase bills */

func (s *GormStore) CreatePurchaseBill(ctx context.Context, bill *PurchaseBill) error {
	return createModel(ctx, s.db, bill)
}

func (s *GormStore) CreatePurchaseBillItems(ctx context.Context, items []*PurchaseBillItem) error {
	return createModels(ctx, s.db, items)
}

func (s *GormStore) GetPurchaseBill(ctx context.Context, tenantId string, id int) (*PurchaseBill, error) {
	return fetchModel[PurchaseBill](ctx, s.db, tenantId, id, func(db *gorm.DB) *gorm.DB {
		return db.Preload("Supplier").Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id")
		})
	})
}

func (s *GormStore) ListPurchaseBills(ctx context.Context, tenantId string, filter PurchaseBillFilter) ([]*PurchaseBill, error) {
	dbCtx := s.db.WithContext(ctx).
		Preload("Supplier").
		Where("tenant_id = ?", tenantId).
		Scopes(dateRangeScope("bill_date", filter.From, filter.To), pageScope(filter.Limit, filter.Offset))
	if len(filter.Statuses) > 0 {
		dbCtx = dbCtx.Where("status IN ?", filter.Statuses)
	}
	if filter.SupplierId > 0 {
		dbCtx = dbCtx.Where("supplier_id = ?", filter.SupplierId)
	}
	var bills []*PurchaseBill
	err := dbCtx.Order("bill_date DESC, id DESC").Find(&bills).Error
	return bills, err
}

func (s *GormStore) UpdateDraftPurchaseBill(ctx context.Context, bill *PurchaseBill) error {
	res := s.db.WithContext(ctx).Model(&PurchaseBill{}).
		Where("tenant_id = ? AND id = ? AND status = ?", bill.TenantId, bill.ID, BillStatusDraft).
		Updates(map[string]interface{}{
			"supplier_id": bill.SupplierId,
			"bill_number": bill.BillNumber,
			"bill_date":   bill.BillDate,
			"notes":       bill.Notes,
			"subtotal":    bill.Subtotal,
			"total":       bill.Total,
		})
	if res.Error != nil {
		return mapWriteErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

func (s *GormStore) UpdatePurchaseBillStatus(ctx context.Context, tenantId string, id int, from BillStatus, to BillStatus) error {
	res := s.db.WithContext(ctx).Model(&PurchaseBill{}).
		Where("tenant_id = ? AND id = ? AND status = ?", tenantId, id, from).
		Update("status", to)
	return conditionalResult(res)
}

func (s *GormStore) UpdateBillAmountPaid(ctx context.Context, tenantId string, id int, amountPaid decimal.Decimal) error {
	res := s.db.WithContext(ctx).Model(&PurchaseBill{}).
		Where("tenant_id = ? AND id = ?", tenantId, id).
		Update("amount_paid", amountPaid)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteDraftPurchaseBill(ctx context.Context, tenantId string, id int) error {
	res := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ? AND status = ?", tenantId, id, BillStatusDraft).
		Delete(&PurchaseBill{})
	return conditionalResult(res)
}

func (s *GormStore) DeletePurchaseBillItems(ctx context.Context, tenantId string, billId int) error {
	return s.db.WithContext(ctx).
		Where("tenant_id = ? AND bill_id = ?", tenantId, billId).
		Delete(&PurchaseBillItem{}).Error
}

/* bill payments */

func (s *GormStore) CreateBillPayment(ctx context.Context, payment *BillPayment) error {
	return createModel(ctx, s.db, payment)
}

func (s *GormStore) GetBillPayment(ctx context.Context, tenantId string, id int) (*BillPayment, error) {
	return fetchModel[BillPayment](ctx, s.db, tenantId, id, nil)
}

func (s *GormStore) ListBillPayments(ctx context.Context, tenantId string, billId int) ([]*BillPayment, error) {
	var payments []*BillPayment
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND bill_id = ?", tenantId, billId).
		Order("paid_at, id").
		Find(&payments).Error
	return payments, err
}

func (s *GormStore) CountBillPayments(ctx context.Context, tenantId string, billId int) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&BillPayment{}).
		Where("tenant_id = ? AND bill_id = ?", tenantId, billId).
		Count(&count).Error
	return count, err
}

func (s *GormStore) DeleteBillPayment(ctx context.Context, tenantId string, id int) error {
	return deleteModel[BillPayment](ctx, s.db, tenantId, id)
}

package models

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps every table in maps. It enforces the same unique indexes
// and conditional updates as GormStore and is used for tests and demo mode.
type MemoryStore struct {
	mu              sync.RWMutex
	lastId          int
	tenants         map[string]Tenant
	customers       map[int]Customer
	suppliers       map[int]Supplier
	products        map[int]Product
	invoices        map[int]SalesInvoice
	invoiceItems    map[int]SalesInvoiceItem
	invoicePayments map[int]InvoicePayment
	bills           map[int]PurchaseBill
	billItems       map[int]PurchaseBillItem
	billPayments    map[int]BillPayment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants:         map[string]Tenant{},
		customers:       map[int]Customer{},
		suppliers:       map[int]Supplier{},
		products:        map[int]Product{},
		invoices:        map[int]SalesInvoice{},
		invoiceItems:    map[int]SalesInvoiceItem{},
		invoicePayments: map[int]InvoicePayment{},
		bills:           map[int]PurchaseBill{},
		billItems:       map[int]PurchaseBillItem{},
		billPayments:    map[int]BillPayment{},
	}
}

// assignId keeps a caller supplied id (compensation re-inserts) or hands out the next one.
// Caller must hold the write lock.
func (s *MemoryStore) assignId(id *int) {
	if *id == 0 {
		s.lastId++
		*id = s.lastId
		return
	}
	if *id > s.lastId {
		s.lastId = *id
	}
}

func inDateRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func page[T any](rows []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(rows) {
			return rows[:0]
		}
		rows = rows[offset:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func ctxErr(ctx context.Context) error {
	return ctx.Err()
}

/* tenants */

func (s *MemoryStore) CreateTenant(ctx context.Context, tenant *Tenant) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[tenant.ID]; ok {
		return ErrDuplicate
	}
	for _, t := range s.tenants {
		if tenant.Slug != "" && t.Slug == tenant.Slug {
			return ErrDuplicate
		}
	}
	if tenant.InvoiceNextNumber == 0 {
		tenant.InvoiceNextNumber = 1
	}
	now := time.Now()
	tenant.CreatedAt, tenant.UpdatedAt = now, now
	s.tenants[tenant.ID] = *tenant
	return nil
}

func (s *MemoryStore) GetTenant(ctx context.Context, tenantId string) (*Tenant, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[tenantId]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *MemoryStore) AdvanceInvoiceCounter(ctx context.Context, tenantId string, expected int64, next int64) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[tenantId]
	if !ok || t.InvoiceNextNumber != expected {
		return ErrConcurrentUpdate
	}
	t.InvoiceNextNumber = next
	t.UpdatedAt = time.Now()
	s.tenants[tenantId] = t
	return nil
}

/* parties and products */

func (s *MemoryStore) CreateCustomer(ctx context.Context, customer *Customer) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignId(&customer.ID)
	customer.CreatedAt = time.Now()
	s.customers[customer.ID] = *customer
	return nil
}

func (s *MemoryStore) GetCustomer(ctx context.Context, tenantId string, id int) (*Customer, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok || c.TenantId != tenantId {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) CreateSupplier(ctx context.Context, supplier *Supplier) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignId(&supplier.ID)
	supplier.CreatedAt = time.Now()
	s.suppliers[supplier.ID] = *supplier
	return nil
}

func (s *MemoryStore) GetSupplier(ctx context.Context, tenantId string, id int) (*Supplier, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sup, ok := s.suppliers[id]
	if !ok || sup.TenantId != tenantId {
		return nil, ErrNotFound
	}
	return &sup, nil
}

func (s *MemoryStore) CreateProduct(ctx context.Context, product *Product) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignId(&product.ID)
	product.CreatedAt = time.Now()
	s.products[product.ID] = *product
	return nil
}

func (s *MemoryStore) GetProduct(ctx context.Context, tenantId string, id int) (*Product, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok || p.TenantId != tenantId {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) GetProducts(ctx context.Context, tenantId string, ids []int) ([]*Product, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var products []*Product
	for _, id := range ids {
		p, ok := s.products[id]
		if !ok || p.TenantId != tenantId {
			continue
		}
		if slices.ContainsFunc(products, func(x *Product) bool { return x.ID == id }) {
			continue
		}
		products = append(products, &p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (s *MemoryStore) UpdateProductStock(ctx context.Context, tenantId string, id int, expectedStock decimal.Decimal, newStock decimal.Decimal, lastPurchasePrice decimal.Decimal) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || p.TenantId != tenantId || !p.StockQty.Equal(expectedStock) {
		return ErrConcurrentUpdate
	}
	p.StockQty = newStock
	p.LastPurchasePrice = lastPurchasePrice
	p.UpdatedAt = time.Now()
	s.products[id] = p
	return nil
}

/* sales invoices */

func (s *MemoryStore) CreateSalesInvoice(ctx context.Context, invoice *SalesInvoice) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invoices {
		if inv.TenantId == invoice.TenantId && inv.InvoiceNumber == invoice.InvoiceNumber {
			return ErrDuplicate
		}
	}
	s.assignId(&invoice.ID)
	now := time.Now()
	invoice.CreatedAt, invoice.UpdatedAt = now, now
	row := *invoice
	row.Customer = nil
	row.Items = nil
	s.invoices[row.ID] = row
	return nil
}

func (s *MemoryStore) CreateSalesInvoiceItems(ctx context.Context, items []*SalesInvoiceItem) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		if _, ok := s.invoices[item.InvoiceId]; !ok {
			return ErrNotFound
		}
	}
	for _, item := range items {
		s.assignId(&item.ID)
		item.CreatedAt = time.Now()
		s.invoiceItems[item.ID] = *item
	}
	return nil
}

// caller holds the read lock
func (s *MemoryStore) invoiceItemsOf(invoiceId int) []SalesInvoiceItem {
	var items []SalesInvoiceItem
	for _, item := range s.invoiceItems {
		if item.InvoiceId == invoiceId {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

// caller holds the read lock
func (s *MemoryStore) withCustomer(inv SalesInvoice) *SalesInvoice {
	if c, ok := s.customers[inv.CustomerId]; ok {
		inv.Customer = &c
	}
	return &inv
}

func (s *MemoryStore) GetSalesInvoice(ctx context.Context, tenantId string, id int) (*SalesInvoice, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok || inv.TenantId != tenantId {
		return nil, ErrNotFound
	}
	result := s.withCustomer(inv)
	result.Items = s.invoiceItemsOf(id)
	return result, nil
}

func (s *MemoryStore) ListSalesInvoices(ctx context.Context, tenantId string, filter SalesInvoiceFilter) ([]*SalesInvoice, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var invoices []*SalesInvoice
	for _, inv := range s.invoices {
		if inv.TenantId != tenantId {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, inv.Status) {
			continue
		}
		if filter.CustomerId > 0 && inv.CustomerId != filter.CustomerId {
			continue
		}
		if !inDateRange(inv.InvoiceDate, filter.From, filter.To) {
			continue
		}
		invoices = append(invoices, s.withCustomer(inv))
	}
	sort.Slice(invoices, func(i, j int) bool {
		if !invoices[i].InvoiceDate.Equal(invoices[j].InvoiceDate) {
			return invoices[i].InvoiceDate.After(invoices[j].InvoiceDate)
		}
		return invoices[i].ID > invoices[j].ID
	})
	return page(invoices, filter.Limit, filter.Offset), nil
}

func (s *MemoryStore) ListSalesInvoiceItems(ctx context.Context, tenantId string, invoiceIds []int) ([]*SalesInvoiceItem, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []*SalesInvoiceItem
	for _, item := range s.invoiceItems {
		if item.TenantId == tenantId && slices.Contains(invoiceIds, item.InvoiceId) {
			items = append(items, &item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].InvoiceId != items[j].InvoiceId {
			return items[i].InvoiceId < items[j].InvoiceId
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (s *MemoryStore) UpdateSalesInvoiceHeader(ctx context.Context, tenantId string, id int, invoiceDate time.Time, status InvoiceStatus, notes string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok || inv.TenantId != tenantId {
		return ErrNotFound
	}
	inv.InvoiceDate = invoiceDate
	inv.Status = status
	inv.Notes = notes
	inv.UpdatedAt = time.Now()
	s.invoices[id] = inv
	return nil
}

func (s *MemoryStore) UpdateInvoicePaymentState(ctx context.Context, tenantId string, id int, amountPaid decimal.Decimal, status InvoiceStatus) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok || inv.TenantId != tenantId {
		return ErrNotFound
	}
	inv.AmountPaid = amountPaid
	inv.Status = status
	inv.UpdatedAt = time.Now()
	s.invoices[id] = inv
	return nil
}

func (s *MemoryStore) DeleteSalesInvoice(ctx context.Context, tenantId string, id int) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok || inv.TenantId != tenantId {
		return ErrNotFound
	}
	delete(s.invoices, id)
	return nil
}

func (s *MemoryStore) DeleteSalesInvoiceItems(ctx context.Context, tenantId string, invoiceId int) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, item := range s.invoiceItems {
		if item.TenantId == tenantId && item.InvoiceId == invoiceId {
			delete(s.invoiceItems, id)
		}
	}
	return nil
}

/* invoice payments */

func (s *MemoryStore) CreateInvoicePayment(ctx context.Context, payment *InvoicePayment) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignId(&payment.ID)
	payment.CreatedAt = time.Now()
	s.invoicePayments[payment.ID] = *payment
	return nil
}

func (s *MemoryStore) GetInvoicePayment(ctx context.Context, tenantId string, id int) (*InvoicePayment, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.invoicePayments[id]
	if !ok || p.TenantId != tenantId {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) ListInvoicePayments(ctx context.Context, tenantId string, invoiceId int) ([]*InvoicePayment, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var payments []*InvoicePayment
	for _, p := range s.invoicePayments {
		if p.TenantId == tenantId && p.InvoiceId == invoiceId {
			payments = append(payments, &p)
		}
	}
	sort.Slice(payments, func(i, j int) bool {
		if !payments[i].PaidAt.Equal(payments[j].PaidAt) {
			return payments[i].PaidAt.Before(payments[j].PaidAt)
		}
		return payments[i].ID < payments[j].ID
	})
	return payments, nil
}

func (s *MemoryStore) CountInvoicePayments(ctx context.Context, tenantId string, invoiceId int) (int64, error) {
	payments, err := s.ListInvoicePayments(ctx, tenantId, invoiceId)
	return int64(len(payments)), err
}

func (s *MemoryStore) DeleteInvoicePayment(ctx context.Context, tenantId string, id int) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.invoicePayments[id]
	if !ok || p.TenantId != tenantId {
		return ErrNotFound
	}
	delete(s.invoicePayments, id)
	return nil
}

/* purchase bills */

// caller holds the read lock
func (s *MemoryStore) billNumberTaken(tenantId string, billNumber string, exceptId int) bool {
	for _, b := range s.bills {
		if b.ID != exceptId && b.TenantId == tenantId && b.BillNumber == billNumber {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreatePurchaseBill(ctx context.Context, bill *PurchaseBill) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.billNumberTaken(bill.TenantId, bill.BillNumber, 0) {
		return ErrDuplicate
	}
	s.assignId(&bill.ID)
	now := time.Now()
	bill.CreatedAt, bill.UpdatedAt = now, now
	row := *bill
	row.Supplier = nil
	row.Items = nil
	s.bills[row.ID] = row
	return nil
}

func (s *MemoryStore) CreatePurchaseBillItems(ctx context.Context, items []*PurchaseBillItem) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		if _, ok := s.bills[item.BillId]; !ok {
			return ErrNotFound
		}
	}
	for _, item := range items {
		s.assignId(&item.ID)
		item.CreatedAt = time.Now()
		s.billItems[item.ID] = *item
	}
	return nil
}

// caller holds the read lock
func (s *MemoryStore) withSupplier(bill PurchaseBill) *PurchaseBill {
	if sup, ok := s.suppliers[bill.SupplierId]; ok {
		bill.Supplier = &sup
	}
	return &bill
}

func (s *MemoryStore) GetPurchaseBill(ctx context.Context, tenantId string, id int) (*PurchaseBill, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	bill, ok := s.bills[id]
	if !ok || bill.TenantId != tenantId {
		return nil, ErrNotFound
	}
	result := s.withSupplier(bill)
	for _, item := range s.billItems {
		if item.BillId == id {
			result.Items = append(result.Items, item)
		}
	}
	sort.Slice(result.Items, func(i, j int) bool { return result.Items[i].ID < result.Items[j].ID })
	return result, nil
}

func (s *MemoryStore) ListPurchaseBills(ctx context.Context, tenantId string, filter PurchaseBillFilter) ([]*PurchaseBill, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var bills []*PurchaseBill
	for _, bill := range s.bills {
		if bill.TenantId != tenantId {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, bill.Status) {
			continue
		}
		if filter.SupplierId > 0 && bill.SupplierId != filter.SupplierId {
			continue
		}
		if !inDateRange(bill.BillDate, filter.From, filter.To) {
			continue
		}
		bills = append(bills, s.withSupplier(bill))
	}
	sort.Slice(bills, func(i, j int) bool {
		if !bills[i].BillDate.Equal(bills[j].BillDate) {
			return bills[i].BillDate.After(bills[j].BillDate)
		}
		return bills[i].ID > bills[j].ID
	})
	return page(bills, filter.Limit, filter.Offset), nil
}

func (s *MemoryStore) UpdateDraftPurchaseBill(ctx context.Context, bill *PurchaseBill) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.bills[bill.ID]
	if !ok || row.TenantId != bill.TenantId || row.Status != BillStatusDraft {
		return ErrConcurrentUpdate
	}
	if s.billNumberTaken(bill.TenantId, bill.BillNumber, bill.ID) {
		return ErrDuplicate
	}
	row.SupplierId = bill.SupplierId
	row.BillNumber = bill.BillNumber
	row.BillDate = bill.BillDate
	row.Notes = bill.Notes
	row.Subtotal = bill.Subtotal
	row.Total = bill.Total
	row.UpdatedAt = time.Now()
	s.bills[bill.ID] = row
	return nil
}

func (s *MemoryStore) UpdatePurchaseBillStatus(ctx context.Context, tenantId string, id int, from BillStatus, to BillStatus) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bill, ok := s.bills[id]
	if !ok || bill.TenantId != tenantId || bill.Status != from {
		return ErrConcurrentUpdate
	}
	bill.Status = to
	bill.UpdatedAt = time.Now()
	s.bills[id] = bill
	return nil
}

func (s *MemoryStore) UpdateBillAmountPaid(ctx context.Context, tenantId string, id int, amountPaid decimal.Decimal) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bill, ok := s.bills[id]
	if !ok || bill.TenantId != tenantId {
		return ErrNotFound
	}
	bill.AmountPaid = amountPaid
	bill.UpdatedAt = time.Now()
	s.bills[id] = bill
	return nil
}

func (s *MemoryStore) DeleteDraftPurchaseBill(ctx context.Context, tenantId string, id int) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bill, ok := s.bills[id]
	if !ok || bill.TenantId != tenantId || bill.Status != BillStatusDraft {
		return ErrConcurrentUpdate
	}
	delete(s.bills, id)
	return nil
}

func (s *MemoryStore) DeletePurchaseBillItems(ctx context.Context, tenantId string, billId int) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, item := range s.billItems {
		if item.TenantId == tenantId && item.BillId == billId {
			delete(s.billItems, id)
		}
	}
	return nil
}

/* bill payments */

func (s *MemoryStore) CreateBillPayment(ctx context.Context, payment *BillPayment) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignId(&payment.ID)
	payment.CreatedAt = time.Now()
	s.billPayments[payment.ID] = *payment
	return nil
}

func (s *MemoryStore) GetBillPayment(ctx context.Context, tenantId string, id int) (*BillPayment, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.billPayments[id]
	if !ok || p.TenantId != tenantId {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) ListBillPayments(ctx context.Context, tenantId string, billId int) ([]*BillPayment, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var payments []*BillPayment
	for _, p := range s.billPayments {
		if p.TenantId == tenantId && p.BillId == billId {
			payments = append(payments, &p)
		}
	}
	sort.Slice(payments, func(i, j int) bool {
		if !payments[i].PaidAt.Equal(payments[j].PaidAt) {
			return payments[i].PaidAt.Before(payments[j].PaidAt)
		}
		return payments[i].ID < payments[j].ID
	})
	return payments, nil
}

func (s *MemoryStore) CountBillPayments(ctx context.Context, tenantId string, billId int) (int64, error) {
	payments, err := s.ListBillPayments(ctx, tenantId, billId)
	return int64(len(payments)), err
}

func (s *MemoryStore) DeleteBillPayment(ctx context.Context, tenantId string, id int) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.billPayments[id]
	if !ok || p.TenantId != tenantId {
		return ErrNotFound
	}
	delete(s.billPayments, id)
	return nil
}

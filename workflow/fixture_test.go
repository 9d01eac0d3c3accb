package workflow

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/mmdatafocus/billing_backend/models"
	"github.com/mmdatafocus/billing_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.May, 10, 9, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(i int) *int {
	return &i
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fixture is one onboarded shop with a customer, a supplier and three products:
// pen (price 100, tenant tax 18, cost 60, stock 10), notebook (price 50, tax 5,
// cost 30, no stock) and service (price 500, tax 0).
type fixture struct {
	memory   *models.MemoryStore
	engine   *Engine
	ctx      context.Context
	tenant   *models.Tenant
	customer *models.Customer
	supplier *models.Supplier
	pen      *models.Product
	notebook *models.Product
	service  *models.Product
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, nil)
}

// newFixtureWith lets a test put a wrapper between the engine and the memory store.
func newFixtureWith(t *testing.T, wrap func(*models.MemoryStore) models.Store) *fixture {
	t.Helper()
	memory := models.NewMemoryStore()
	var store models.Store = memory
	if wrap != nil {
		store = wrap(memory)
	}
	engine := NewEngine(store, utils.NewLocalLocker(5*time.Second), quietLogger()).
		WithClock(func() time.Time { return testNow })

	tenant, err := engine.CreateTenant(context.Background(), &models.NewTenant{
		Name:              "Corner Stationers",
		Slug:              "corner",
		DefaultTaxPercent: decPtr("18"),
	})
	require.NoError(t, err)

	f := &fixture{
		memory: memory,
		engine: engine,
		ctx:    utils.SetTenantIdInContext(context.Background(), tenant.ID),
		tenant: tenant,
	}
	f.customer = &models.Customer{TenantId: tenant.ID, Name: "Asha Traders"}
	require.NoError(t, memory.CreateCustomer(f.ctx, f.customer))
	f.supplier = &models.Supplier{TenantId: tenant.ID, Name: "Paper Mills"}
	require.NoError(t, memory.CreateSupplier(f.ctx, f.supplier))

	f.pen = &models.Product{TenantId: tenant.ID, Name: "Pen", UnitPrice: dec("100"), HsnCode: "9608", StockQty: dec("10"), LastPurchasePrice: dec("60")}
	f.notebook = &models.Product{TenantId: tenant.ID, Name: "Notebook", UnitPrice: dec("50"), TaxPercent: decPtr("5"), LastPurchasePrice: dec("30")}
	f.service = &models.Product{TenantId: tenant.ID, Name: "Binding", UnitPrice: dec("500"), TaxPercent: decPtr("0")}
	for _, p := range []*models.Product{f.pen, f.notebook, f.service} {
		require.NoError(t, memory.CreateProduct(f.ctx, p))
	}
	return f
}

// invoiceOf creates a sent invoice for qty units of product at its list price.
func (f *fixture) invoiceOf(t *testing.T, product *models.Product, qty string) *models.SalesInvoice {
	t.Helper()
	invoice, err := f.engine.CreateSalesInvoice(f.ctx, &models.NewSalesInvoice{
		CustomerId:  f.customer.ID,
		InvoiceDate: "2024-05-02",
		Status:      models.InvoiceStatusSent,
		Items:       []models.NewSalesInvoiceItem{{ProductId: intPtr(product.ID), Quantity: dec(qty)}},
	})
	require.NoError(t, err)
	return invoice
}

func (f *fixture) billOf(t *testing.T, number string, items ...models.NewPurchaseBillItem) *models.PurchaseBill {
	t.Helper()
	bill, err := f.engine.CreatePurchaseBill(f.ctx, &models.NewPurchaseBill{
		SupplierId: f.supplier.ID,
		BillNumber: number,
		BillDate:   "2024-05-03",
		Items:      items,
	})
	require.NoError(t, err)
	return bill
}

func (f *fixture) product(t *testing.T, id int) *models.Product {
	t.Helper()
	p, err := f.memory.GetProduct(f.ctx, f.tenant.ID, id)
	require.NoError(t, err)
	return p
}

var errInjected = errors.New("injected store failure")

// faultyStore fails a method once it has been called more than failAfter[method] times.
type faultyStore struct {
	*models.MemoryStore
	mu        sync.Mutex
	calls     map[string]int
	failAfter map[string]int
}

func newFaultyStore(memory *models.MemoryStore) *faultyStore {
	return &faultyStore{MemoryStore: memory, calls: map[string]int{}, failAfter: map[string]int{}}
}

func (s *faultyStore) failFrom(method string, okCalls int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAfter[method] = okCalls
}

func (s *faultyStore) heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAfter = map[string]int{}
}

func (s *faultyStore) check(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[method]++
	if n, ok := s.failAfter[method]; ok && s.calls[method] > n {
		return errInjected
	}
	return nil
}

func (s *faultyStore) CreateSalesInvoiceItems(ctx context.Context, items []*models.SalesInvoiceItem) error {
	if err := s.check("CreateSalesInvoiceItems"); err != nil {
		return err
	}
	return s.MemoryStore.CreateSalesInvoiceItems(ctx, items)
}

func (s *faultyStore) DeleteSalesInvoice(ctx context.Context, tenantId string, id int) error {
	if err := s.check("DeleteSalesInvoice"); err != nil {
		return err
	}
	return s.MemoryStore.DeleteSalesInvoice(ctx, tenantId, id)
}

func (s *faultyStore) AdvanceInvoiceCounter(ctx context.Context, tenantId string, expected int64, next int64) error {
	if err := s.check("AdvanceInvoiceCounter"); err != nil {
		return err
	}
	return s.MemoryStore.AdvanceInvoiceCounter(ctx, tenantId, expected, next)
}

func (s *faultyStore) UpdateInvoicePaymentState(ctx context.Context, tenantId string, id int, amountPaid decimal.Decimal, status models.InvoiceStatus) error {
	if err := s.check("UpdateInvoicePaymentState"); err != nil {
		return err
	}
	return s.MemoryStore.UpdateInvoicePaymentState(ctx, tenantId, id, amountPaid, status)
}

func (s *faultyStore) UpdateProductStock(ctx context.Context, tenantId string, id int, expectedStock decimal.Decimal, newStock decimal.Decimal, lastPurchasePrice decimal.Decimal) error {
	if err := s.check("UpdateProductStock"); err != nil {
		return err
	}
	return s.MemoryStore.UpdateProductStock(ctx, tenantId, id, expectedStock, newStock, lastPurchasePrice)
}

func (s *faultyStore) CreatePurchaseBillItems(ctx context.Context, items []*models.PurchaseBillItem) error {
	if err := s.check("CreatePurchaseBillItems"); err != nil {
		return err
	}
	return s.MemoryStore.CreatePurchaseBillItems(ctx, items)
}

func (s *faultyStore) UpdatePurchaseBillStatus(ctx context.Context, tenantId string, id int, from models.BillStatus, to models.BillStatus) error {
	if err := s.check("UpdatePurchaseBillStatus"); err != nil {
		return err
	}
	return s.MemoryStore.UpdatePurchaseBillStatus(ctx, tenantId, id, from, to)
}

func (s *faultyStore) DeleteDraftPurchaseBill(ctx context.Context, tenantId string, id int) error {
	if err := s.check("DeleteDraftPurchaseBill"); err != nil {
		return err
	}
	return s.MemoryStore.DeleteDraftPurchaseBill(ctx, tenantId, id)
}

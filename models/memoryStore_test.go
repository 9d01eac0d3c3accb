package models_test

import (
	"context"
	"testing"
	"time"

	"github.com/mmdatafocus/billing_backend/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

type storeFixture struct {
	store    models.Store
	tenantId string
	customer *models.Customer
	supplier *models.Supplier
	product  *models.Product
}

// seedStore creates one tenant with a customer, a supplier and a stocked product.
func seedStore(t *testing.T, store models.Store, tenantId string) *storeFixture {
	t.Helper()
	ctx := t.Context()
	require.NoError(t, store.CreateTenant(ctx, &models.Tenant{
		ID:            tenantId,
		Name:          "Shop " + tenantId,
		Slug:          tenantId,
		CurrencyCode:  "INR",
		InvoicePrefix: "INV-",
	}))
	customer := &models.Customer{TenantId: tenantId, Name: "Asha"}
	require.NoError(t, store.CreateCustomer(ctx, customer))
	supplier := &models.Supplier{TenantId: tenantId, Name: "Paper Mills"}
	require.NoError(t, store.CreateSupplier(ctx, supplier))
	product := &models.Product{
		TenantId:  tenantId,
		Name:      "Pen",
		UnitPrice: decimal.NewFromInt(100),
		StockQty:  decimal.NewFromInt(10),
	}
	require.NoError(t, store.CreateProduct(ctx, product))
	return &storeFixture{store: store, tenantId: tenantId, customer: customer, supplier: supplier, product: product}
}

func (f *storeFixture) invoice(t *testing.T, number string, date string, status models.InvoiceStatus) *models.SalesInvoice {
	t.Helper()
	inv := &models.SalesInvoice{
		TenantId:      f.tenantId,
		CustomerId:    f.customer.ID,
		InvoiceNumber: number,
		InvoiceDate:   day(date),
		Status:        status,
		GstMode:       models.GstModeIntra,
		Subtotal:      decimal.NewFromInt(100),
		Total:         decimal.NewFromInt(118),
	}
	require.NoError(t, f.store.CreateSalesInvoice(t.Context(), inv))
	productId := f.product.ID
	require.NoError(t, f.store.CreateSalesInvoiceItems(t.Context(), []*models.SalesInvoiceItem{{
		TenantId:    f.tenantId,
		InvoiceId:   inv.ID,
		ProductId:   &productId,
		Description: "Pen",
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.NewFromInt(100),
		Amount:      decimal.NewFromInt(100),
		GstMode:     models.GstModeIntra,
	}}))
	return inv
}

func (f *storeFixture) bill(t *testing.T, number string, date string) *models.PurchaseBill {
	t.Helper()
	bill := &models.PurchaseBill{
		TenantId:   f.tenantId,
		SupplierId: f.supplier.ID,
		BillNumber: number,
		BillDate:   day(date),
		Status:     models.BillStatusDraft,
		Subtotal:   decimal.NewFromInt(50),
		Total:      decimal.NewFromInt(50),
	}
	require.NoError(t, f.store.CreatePurchaseBill(t.Context(), bill))
	require.NoError(t, f.store.CreatePurchaseBillItems(t.Context(), []*models.PurchaseBillItem{{
		TenantId:      f.tenantId,
		BillId:        bill.ID,
		ProductId:     f.product.ID,
		Quantity:      decimal.NewFromInt(5),
		PurchasePrice: decimal.NewFromInt(10),
		Amount:        decimal.NewFromInt(50),
	}}))
	return bill
}

func TestPaginationNormalize(t *testing.T) {
	tests := []struct {
		in   models.Pagination
		want models.Pagination
	}{
		{models.Pagination{}, models.Pagination{Limit: models.DefaultPageSize}},
		{models.Pagination{Limit: 10, Offset: 20}, models.Pagination{Limit: 10, Offset: 20}},
		{models.Pagination{Limit: 5000}, models.Pagination{Limit: models.MaxPageSize}},
		{models.Pagination{Limit: -1, Offset: -3}, models.Pagination{Limit: models.DefaultPageSize}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.Normalize())
	}
}

func TestMemoryStore_TenantUniqueness(t *testing.T) {
	store := models.NewMemoryStore()
	f := seedStore(t, store, "shop-1")

	tenant, err := store.GetTenant(t.Context(), f.tenantId)
	require.NoError(t, err)
	assert.EqualValues(t, 1, tenant.InvoiceNextNumber)

	err = store.CreateTenant(t.Context(), &models.Tenant{ID: "shop-2", Name: "Other", Slug: "shop-1"})
	assert.ErrorIs(t, err, models.ErrDuplicate)
	err = store.CreateTenant(t.Context(), &models.Tenant{ID: "shop-1", Name: "Again", Slug: "again"})
	assert.ErrorIs(t, err, models.ErrDuplicate)

	_, err = store.GetTenant(t.Context(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryStore_AdvanceInvoiceCounterIsConditional(t *testing.T) {
	store := models.NewMemoryStore()
	f := seedStore(t, store, "shop-1")
	ctx := t.Context()

	require.NoError(t, store.AdvanceInvoiceCounter(ctx, f.tenantId, 1, 2))
	assert.ErrorIs(t, store.AdvanceInvoiceCounter(ctx, f.tenantId, 1, 2), models.ErrConcurrentUpdate)
	assert.ErrorIs(t, store.AdvanceInvoiceCounter(ctx, "missing", 1, 2), models.ErrConcurrentUpdate)

	tenant, err := store.GetTenant(ctx, f.tenantId)
	require.NoError(t, err)
	assert.EqualValues(t, 2, tenant.InvoiceNextNumber)
}

func TestMemoryStore_UpdateProductStockIsConditional(t *testing.T) {
	store := models.NewMemoryStore()
	f := seedStore(t, store, "shop-1")
	ctx := t.Context()

	err := store.UpdateProductStock(ctx, f.tenantId, f.product.ID, decimal.NewFromInt(9), decimal.NewFromInt(15), decimal.NewFromInt(7))
	assert.ErrorIs(t, err, models.ErrConcurrentUpdate)

	err = store.UpdateProductStock(ctx, f.tenantId, f.product.ID, decimal.NewFromInt(10), decimal.NewFromInt(15), decimal.NewFromInt(7))
	require.NoError(t, err)

	product, err := store.GetProduct(ctx, f.tenantId, f.product.ID)
	require.NoError(t, err)
	assert.True(t, product.StockQty.Equal(decimal.NewFromInt(15)))
	assert.True(t, product.LastPurchasePrice.Equal(decimal.NewFromInt(7)))

	err = store.UpdateProductStock(ctx, "other", f.product.ID, decimal.NewFromInt(15), decimal.NewFromInt(20), decimal.Zero)
	assert.ErrorIs(t, err, models.ErrConcurrentUpdate)
}

func TestMemoryStore_DocumentNumbersAreUniquePerTenant(t *testing.T) {
	store := models.NewMemoryStore()
	a := seedStore(t, store, "shop-a")
	b := seedStore(t, store, "shop-b")
	ctx := t.Context()

	a.invoice(t, "INV-0001", "2024-05-01", models.InvoiceStatusSent)
	b.invoice(t, "INV-0001", "2024-05-01", models.InvoiceStatusSent)
	err := store.CreateSalesInvoice(ctx, &models.SalesInvoice{TenantId: a.tenantId, CustomerId: a.customer.ID, InvoiceNumber: "INV-0001"})
	assert.ErrorIs(t, err, models.ErrDuplicate)

	a.bill(t, "PM-1", "2024-05-01")
	b.bill(t, "PM-1", "2024-05-01")
	err = store.CreatePurchaseBill(ctx, &models.PurchaseBill{TenantId: a.tenantId, SupplierId: a.supplier.ID, BillNumber: "PM-1"})
	assert.ErrorIs(t, err, models.ErrDuplicate)

	other := a.bill(t, "PM-2", "2024-05-02")
	other.BillNumber = "PM-1"
	assert.ErrorIs(t, store.UpdateDraftPurchaseBill(ctx, other), models.ErrDuplicate)
}

func TestMemoryStore_ReadsAreTenantScoped(t *testing.T) {
	store := models.NewMemoryStore()
	a := seedStore(t, store, "shop-a")
	b := seedStore(t, store, "shop-b")
	ctx := t.Context()

	inv := a.invoice(t, "INV-0001", "2024-05-01", models.InvoiceStatusSent)
	bill := a.bill(t, "PM-1", "2024-05-01")

	_, err := store.GetSalesInvoice(ctx, b.tenantId, inv.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = store.GetPurchaseBill(ctx, b.tenantId, bill.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = store.GetProduct(ctx, b.tenantId, a.product.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = store.GetCustomer(ctx, b.tenantId, a.customer.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	products, err := store.GetProducts(ctx, b.tenantId, []int{a.product.ID, b.product.ID})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, b.product.ID, products[0].ID)

	invoices, err := store.ListSalesInvoices(ctx, b.tenantId, models.SalesInvoiceFilter{})
	require.NoError(t, err)
	assert.Empty(t, invoices)
}

func TestMemoryStore_GetSalesInvoiceJoinsCustomerAndItems(t *testing.T) {
	store := models.NewMemoryStore()
	f := seedStore(t, store, "shop-1")
	inv := f.invoice(t, "INV-0001", "2024-05-01", models.InvoiceStatusSent)

	got, err := store.GetSalesInvoice(t.Context(), f.tenantId, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Customer)
	assert.Equal(t, "Asha", got.Customer.Name)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Pen", got.Items[0].Description)
}

func TestMemoryStore_ListSalesInvoicesFiltersAndOrders(t *testing.T) {
	store := models.NewMemoryStore()
	f := seedStore(t, store, "shop-1")
	ctx := t.Context()

	first := f.invoice(t, "INV-0001", "2024-04-10", models.InvoiceStatusSent)
	second := f.invoice(t, "INV-0002", "2024-05-01", models.InvoiceStatusPaid)
	third := f.invoice(t, "INV-0003", "2024-05-01", models.InvoiceStatusDraft)

	all, err := store.ListSalesInvoices(ctx, f.tenantId, models.SalesInvoiceFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{third.ID, second.ID, first.ID}, []int{all[0].ID, all[1].ID, all[2].ID})

	from, to := day("2024-05-01"), day("2024-05-31")
	may, err := store.ListSalesInvoices(ctx, f.tenantId, models.SalesInvoiceFilter{
		Statuses: []models.InvoiceStatus{models.InvoiceStatusSent, models.InvoiceStatusPaid},
		From:     &from,
		To:       &to,
	})
	require.NoError(t, err)
	require.Len(t, may, 1)
	assert.Equal(t, second.ID, may[0].ID)

	paged, err := store.ListSalesInvoices(ctx, f.tenantId, models.SalesInvoiceFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, second.ID, paged[0].ID)
}

func TestMemoryStore_BillStatusTransitionsAreConditional(t *testing.T) {
	store := models.NewMemoryStore()
	f := seedStore(t, store, "shop-1")
	ctx := t.Context()
	bill := f.bill(t, "PM-1", "2024-05-01")

	require.NoError(t, store.UpdatePurchaseBillStatus(ctx, f.tenantId, bill.ID, models.BillStatusDraft, models.BillStatusRecorded))
	err := store.UpdatePurchaseBillStatus(ctx, f.tenantId, bill.ID, models.BillStatusDraft, models.BillStatusRecorded)
	assert.ErrorIs(t, err, models.ErrConcurrentUpdate)

	assert.ErrorIs(t, store.DeleteDraftPurchaseBill(ctx, f.tenantId, bill.ID), models.ErrConcurrentUpdate)
	bill.Notes = "late edit"
	assert.ErrorIs(t, store.UpdateDraftPurchaseBill(ctx, bill), models.ErrConcurrentUpdate)

	got, err := store.GetPurchaseBill(ctx, f.tenantId, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillStatusRecorded, got.Status)
	assert.Empty(t, got.Notes)
	require.Len(t, got.Items, 1)
}

func TestMemoryStore_DeleteDraftBill(t *testing.T) {
	store := models.NewMemoryStore()
	f := seedStore(t, store, "shop-1")
	ctx := t.Context()
	bill := f.bill(t, "PM-1", "2024-05-01")

	require.NoError(t, store.DeletePurchaseBillItems(ctx, f.tenantId, bill.ID))
	require.NoError(t, store.DeleteDraftPurchaseBill(ctx, f.tenantId, bill.ID))
	_, err := store.GetPurchaseBill(ctx, f.tenantId, bill.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	// the number is free again
	f.bill(t, "PM-1", "2024-05-03")
}

func TestMemoryStore_PaymentsBelongToTheirDocument(t *testing.T) {
	store := models.NewMemoryStore()
	f := seedStore(t, store, "shop-1")
	ctx := t.Context()
	inv := f.invoice(t, "INV-0001", "2024-05-01", models.InvoiceStatusSent)
	other := f.invoice(t, "INV-0002", "2024-05-01", models.InvoiceStatusSent)

	for _, amount := range []int64{30, 20} {
		require.NoError(t, store.CreateInvoicePayment(ctx, &models.InvoicePayment{
			TenantId:  f.tenantId,
			InvoiceId: inv.ID,
			Amount:    decimal.NewFromInt(amount),
			Method:    models.PaymentMethodCash,
			PaidAt:    day("2024-05-02"),
		}))
	}

	count, err := store.CountInvoicePayments(ctx, f.tenantId, inv.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	count, err = store.CountInvoicePayments(ctx, f.tenantId, other.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	payments, err := store.ListInvoicePayments(ctx, f.tenantId, inv.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)

	require.NoError(t, store.DeleteInvoicePayment(ctx, f.tenantId, payments[0].ID))
	_, err = store.GetInvoicePayment(ctx, f.tenantId, payments[0].ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = store.GetInvoicePayment(ctx, "other", payments[1].ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryStore_ItemsNeedAParent(t *testing.T) {
	store := models.NewMemoryStore()
	f := seedStore(t, store, "shop-1")

	err := store.CreateSalesInvoiceItems(t.Context(), []*models.SalesInvoiceItem{{TenantId: f.tenantId, InvoiceId: 999}})
	assert.ErrorIs(t, err, models.ErrNotFound)
	err = store.CreatePurchaseBillItems(t.Context(), []*models.PurchaseBillItem{{TenantId: f.tenantId, BillId: 999}})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryStore_HonoursCancelledContext(t *testing.T) {
	store := models.NewMemoryStore()
	f := seedStore(t, store, "shop-1")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := store.GetTenant(ctx, f.tenantId)
	assert.ErrorIs(t, err, context.Canceled)
}

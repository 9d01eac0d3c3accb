package reports

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/mmdatafocus/billing_backend/models"
	"github.com/mmdatafocus/billing_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenantId = "shop-1"

var reportNow = time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func date(s string) time.Time {
	t, err := time.Parse(utils.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

type reportFixture struct {
	store    *models.MemoryStore
	reporter *Reporter
	ctx      context.Context
	asha     *models.Customer
	bala     *models.Customer
	pen      *models.Product
	notebook *models.Product
	may      DateRange
}

type line struct {
	product     *models.Product
	description string
	qty, amount string
	cgst, sgst  string
	igst, cost  string
}

// newReportFixture seeds one shop:
//
//	INV-1 2024-05-02 paid  asha  pen x2 200 (+18/+18) cost 120, paid 236
//	INV-2 2024-05-10 sent  bala  notebook x3 150 (igst 7.5) cost 90, Gift Wrap 20 (igst 3.6), paid 50
//	INV-3 2024-04-20 paid  bala  pen x1 100 (+9/+9) cost 60, paid 118
//	INV-4 2024-05-12 draft asha  pen x5 500 (+45/+45)
//	INV-5 2024-03-15 sent  asha  gift wrap 10
//
// and recorded bills of 300 (May) and 50 (April) plus a draft bill of 999 (May).
func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store := models.NewMemoryStore()
	f := &reportFixture{
		store:    store,
		reporter: NewReporter(store, logger).WithClock(func() time.Time { return reportNow }),
		ctx:      utils.SetTenantIdInContext(context.Background(), tenantId),
		may:      DateRange{From: date("2024-05-01"), To: date("2024-05-31")},
	}
	require.NoError(t, store.CreateTenant(f.ctx, &models.Tenant{ID: tenantId, Name: "Shop", Slug: "shop"}))
	f.asha = &models.Customer{TenantId: tenantId, Name: "Asha"}
	f.bala = &models.Customer{TenantId: tenantId, Name: "Bala"}
	require.NoError(t, store.CreateCustomer(f.ctx, f.asha))
	require.NoError(t, store.CreateCustomer(f.ctx, f.bala))
	f.pen = &models.Product{TenantId: tenantId, Name: "Pen"}
	f.notebook = &models.Product{TenantId: tenantId, Name: "Notebook"}
	require.NoError(t, store.CreateProduct(f.ctx, f.pen))
	require.NoError(t, store.CreateProduct(f.ctx, f.notebook))

	f.invoice(t, "INV-1", "2024-05-02", models.InvoiceStatusPaid, f.asha, "236",
		line{product: f.pen, qty: "2", amount: "200", cgst: "18", sgst: "18", cost: "120"})
	f.invoice(t, "INV-2", "2024-05-10", models.InvoiceStatusSent, f.bala, "50",
		line{product: f.notebook, qty: "3", amount: "150", igst: "7.5", cost: "90"},
		line{description: "Gift Wrap", qty: "1", amount: "20", igst: "3.6"})
	f.invoice(t, "INV-3", "2024-04-20", models.InvoiceStatusPaid, f.bala, "118",
		line{product: f.pen, qty: "1", amount: "100", cgst: "9", sgst: "9", cost: "60"})
	f.invoice(t, "INV-4", "2024-05-12", models.InvoiceStatusDraft, f.asha, "0",
		line{product: f.pen, qty: "5", amount: "500", cgst: "45", sgst: "45", cost: "300"})
	f.invoice(t, "INV-5", "2024-03-15", models.InvoiceStatusSent, f.asha, "0",
		line{description: "  gift wrap", qty: "1", amount: "10"})

	f.bill(t, "B-1", "2024-05-03", models.BillStatusRecorded, "300")
	f.bill(t, "B-2", "2024-04-01", models.BillStatusRecorded, "50")
	f.bill(t, "B-3", "2024-05-04", models.BillStatusDraft, "999")
	return f
}

func orZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	return dec(s)
}

func (f *reportFixture) invoice(t *testing.T, number, day string, status models.InvoiceStatus, customer *models.Customer, paid string, lines ...line) {
	t.Helper()
	subtotal, tax := decimal.Zero, decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(dec(l.amount))
		tax = tax.Add(orZero(l.cgst)).Add(orZero(l.sgst)).Add(orZero(l.igst))
	}
	inv := &models.SalesInvoice{
		TenantId:      tenantId,
		CustomerId:    customer.ID,
		InvoiceNumber: number,
		InvoiceDate:   date(day),
		Status:        status,
		Subtotal:      subtotal,
		TaxAmount:     tax,
		Total:         subtotal.Add(tax),
		AmountPaid:    dec(paid),
	}
	require.NoError(t, f.store.CreateSalesInvoice(f.ctx, inv))

	var items []*models.SalesInvoiceItem
	for _, l := range lines {
		item := &models.SalesInvoiceItem{
			TenantId:    tenantId,
			InvoiceId:   inv.ID,
			Description: l.description,
			Quantity:    dec(l.qty),
			Amount:      dec(l.amount),
			Cgst:        orZero(l.cgst),
			Sgst:        orZero(l.sgst),
			Igst:        orZero(l.igst),
		}
		if l.product != nil {
			id := l.product.ID
			item.ProductId = &id
			item.Description = l.product.Name
			item.CostAmount = decPtr(l.cost)
		}
		items = append(items, item)
	}
	require.NoError(t, f.store.CreateSalesInvoiceItems(f.ctx, items))
}

func (f *reportFixture) bill(t *testing.T, number, day string, status models.BillStatus, total string) {
	t.Helper()
	require.NoError(t, f.store.CreatePurchaseBill(f.ctx, &models.PurchaseBill{
		TenantId:   tenantId,
		BillNumber: number,
		BillDate:   date(day),
		Status:     status,
		Subtotal:   dec(total),
		Total:      dec(total),
	}))
}

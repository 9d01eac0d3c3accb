package workflow

import (
	"testing"

	"github.com/mmdatafocus/billing_backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcilePaymentsRepairsDrift(t *testing.T) {
	var faulty *faultyStore
	f := newFixtureWith(t, func(m *models.MemoryStore) models.Store {
		faulty = newFaultyStore(m)
		return faulty
	})
	clean := f.invoiceOf(t, f.service, "1")
	_, err := f.engine.RecordInvoicePayment(f.ctx, clean.ID, pay("100"))
	require.NoError(t, err)
	untouched := f.invoiceOf(t, f.pen, "1")

	drifted := f.invoiceOf(t, f.service, "1")
	faulty.failFrom("UpdateInvoicePaymentState", 0)
	_, err = f.engine.RecordInvoicePayment(f.ctx, drifted.ID, pay("500"))
	require.Error(t, err)
	faulty.heal()

	bill := f.billOf(t, "PM-1", models.NewPurchaseBillItem{ProductId: f.pen.ID, Quantity: dec("1"), PurchasePrice: dec("80")})
	_, err = f.engine.RecordBillPayment(f.ctx, bill.ID, pay("30"))
	require.NoError(t, err)
	require.NoError(t, f.memory.UpdateBillAmountPaid(f.ctx, f.tenant.ID, bill.ID, dec("70")))

	report, err := f.engine.ReconcilePayments(f.ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 3, report.InvoicesChecked)
	assert.Equal(t, 1, report.BillsChecked)
	assert.Equal(t, []int{drifted.ID}, report.DriftedInvoices)
	assert.Equal(t, []int{bill.ID}, report.DriftedBills)

	stored, err := f.engine.GetSalesInvoice(f.ctx, drifted.ID)
	require.NoError(t, err)
	assertDec(t, "0", stored.AmountPaid)
	assert.Equal(t, models.InvoiceStatusSent, stored.Status)

	report, err = f.engine.ReconcilePayments(f.ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []int{drifted.ID}, report.DriftedInvoices)

	stored, err = f.engine.GetSalesInvoice(f.ctx, drifted.ID)
	require.NoError(t, err)
	assertDec(t, "500", stored.AmountPaid)
	assert.Equal(t, models.InvoiceStatusPaid, stored.Status)
	storedBill, err := f.engine.GetPurchaseBill(f.ctx, bill.ID)
	require.NoError(t, err)
	assertDec(t, "30", storedBill.AmountPaid)
	notPaid, err := f.engine.GetSalesInvoice(f.ctx, untouched.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusSent, notPaid.Status)

	report, err = f.engine.ReconcilePayments(f.ctx, false)
	require.NoError(t, err)
	assert.Empty(t, report.DriftedInvoices)
	assert.Empty(t, report.DriftedBills)
}

func TestReconcileLeavesDraftsWithoutPaymentsAlone(t *testing.T) {
	f := newFixture(t)
	draft, err := f.engine.CreateSalesInvoice(f.ctx, &models.NewSalesInvoice{
		CustomerId:  f.customer.ID,
		InvoiceDate: "2024-05-02",
		Items:       []models.NewSalesInvoiceItem{{ProductId: intPtr(f.pen.ID), Quantity: dec("1")}},
	})
	require.NoError(t, err)

	report, err := f.engine.ReconcilePayments(f.ctx, false)
	require.NoError(t, err)
	assert.Empty(t, report.DriftedInvoices)

	stored, err := f.engine.GetSalesInvoice(f.ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusDraft, stored.Status)
}

func TestReconcileFindsPaidInvoiceWithoutPayments(t *testing.T) {
	f := newFixture(t)
	invoice := f.invoiceOf(t, f.pen, "1")
	require.NoError(t, f.memory.UpdateInvoicePaymentState(f.ctx, f.tenant.ID, invoice.ID, dec("0"), models.InvoiceStatusPaid))

	report, err := f.engine.ReconcilePayments(f.ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []int{invoice.ID}, report.DriftedInvoices)

	stored, err := f.engine.GetSalesInvoice(f.ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusSent, stored.Status)
}

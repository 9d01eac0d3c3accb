package workflow

import (
	"context"
	"time"

	"github.com/mmdatafocus/billing_backend/config"
	"github.com/mmdatafocus/billing_backend/models"
	"github.com/mmdatafocus/billing_backend/utils"
	"github.com/shopspring/decimal"
)

type InvoicePaymentResult struct {
	Payment *models.InvoicePayment `json:"payment"`
	Invoice *models.SalesInvoice   `json:"invoice"`
}

type BillPaymentResult struct {
	Payment *models.BillPayment  `json:"payment"`
	Bill    *models.PurchaseBill `json:"bill"`
}

type validPayment struct {
	amount decimal.Decimal
	method models.PaymentMethod
	paidAt time.Time
}

func (e *Engine) validatePayment(input *models.NewPayment) (*validPayment, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	amount := utils.Round(input.Amount)
	if !amount.IsPositive() {
		return nil, utils.ValidationError("amount must be greater than zero")
	}
	if !input.Method.IsValid() {
		return nil, utils.ValidationError("invalid payment method %q", input.Method)
	}
	paidAt, err := utils.ParseDateOr(input.PaidAt, e.now())
	if err != nil {
		return nil, err
	}
	return &validPayment{amount: amount, method: input.Method, paidAt: paidAt}, nil
}

func exceedsBalance(amount, total, paid decimal.Decimal) error {
	balance := utils.Round(total.Sub(paid))
	if amount.GreaterThan(balance) {
		return utils.ConflictError("payment amount %s exceeds balance %s", amount.StringFixed(2), balance.StringFixed(2))
	}
	return nil
}

// recomputed wraps a failed recompute after the payment row was already written or removed.
func (e *Engine) recomputed(funcName string, err error) error {
	if err == nil {
		return nil
	}
	config.LogError(e.logger, "PaymentWorkflow.go", funcName, "recompute", nil, err)
	return utils.PartialFailureError("payment saved but document totals were not refreshed", err, nil)
}

/* sales invoices */

// recomputeInvoice re-derives amount paid and status from every payment row.
// Running it twice without payment writes in between changes nothing.
func (e *Engine) recomputeInvoice(ctx context.Context, tenantId string, invoiceId int) (*models.SalesInvoice, error) {
	invoice, err := e.store.GetSalesInvoice(ctx, tenantId, invoiceId)
	if err != nil {
		return nil, storeErr("invoice", err)
	}
	payments, err := e.store.ListInvoicePayments(ctx, tenantId, invoiceId)
	if err != nil {
		return nil, storeErr("invoice payment", err)
	}
	amounts := make([]decimal.Decimal, 0, len(payments))
	for _, p := range payments {
		amounts = append(amounts, p.Amount)
	}
	amountPaid := utils.SumRounded(amounts...)
	status := models.InvoiceStatusSent
	if amountPaid.GreaterThanOrEqual(invoice.Total) {
		status = models.InvoiceStatusPaid
	}

	if err := e.store.UpdateInvoicePaymentState(ctx, tenantId, invoiceId, amountPaid, status); err != nil {
		return nil, storeErr("invoice", err)
	}
	invoice.AmountPaid = amountPaid
	invoice.Status = status
	return invoice, nil
}

// RecordInvoicePayment checks the amount against the outstanding balance,
// inserts the payment and recomputes the invoice, all under the invoice lock.
func (e *Engine) RecordInvoicePayment(ctx context.Context, invoiceId int, input *models.NewPayment) (result *InvoicePaymentResult, err error) {
	ctx, span, tenantId, err := e.begin(ctx, "RecordInvoicePayment")
	if err != nil {
		return nil, err
	}
	defer func() { endSpan(span, err) }()

	valid, err := e.validatePayment(input)
	if err != nil {
		return nil, err
	}

	err = e.withLock(ctx, invoiceLockKey(tenantId, invoiceId), func() error {
		invoice, err := e.store.GetSalesInvoice(ctx, tenantId, invoiceId)
		if err != nil {
			return storeErr("invoice", err)
		}
		if err := exceedsBalance(valid.amount, invoice.Total, invoice.AmountPaid); err != nil {
			return err
		}

		payment := &models.InvoicePayment{
			TenantId:  tenantId,
			InvoiceId: invoiceId,
			Amount:    valid.amount,
			Method:    valid.method,
			Reference: input.Reference,
			PaidAt:    valid.paidAt,
		}
		if err := e.store.CreateInvoicePayment(ctx, payment); err != nil {
			return storeErr("invoice payment", err)
		}
		updated, err := e.recomputeInvoice(ctx, tenantId, invoiceId)
		if err != nil {
			return e.recomputed("RecordInvoicePayment", err)
		}
		result = &InvoicePaymentResult{Payment: payment, Invoice: updated}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteInvoicePayment removes a payment of this invoice and recomputes it.
func (e *Engine) DeleteInvoicePayment(ctx context.Context, invoiceId int, paymentId int) (result *models.SalesInvoice, err error) {
	ctx, span, tenantId, err := e.begin(ctx, "DeleteInvoicePayment")
	if err != nil {
		return nil, err
	}
	defer func() { endSpan(span, err) }()

	err = e.withLock(ctx, invoiceLockKey(tenantId, invoiceId), func() error {
		if _, err := e.store.GetSalesInvoice(ctx, tenantId, invoiceId); err != nil {
			return storeErr("invoice", err)
		}
		payment, err := e.store.GetInvoicePayment(ctx, tenantId, paymentId)
		if err != nil {
			return storeErr("payment", err)
		}
		if payment.InvoiceId != invoiceId {
			return utils.NotFoundError("payment")
		}
		if err := e.store.DeleteInvoicePayment(ctx, tenantId, paymentId); err != nil {
			return storeErr("payment", err)
		}
		result, err = e.recomputeInvoice(ctx, tenantId, invoiceId)
		return e.recomputed("DeleteInvoicePayment", err)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) ListInvoicePayments(ctx context.Context, invoiceId int) (result []*models.InvoicePayment, err error) {
	ctx, span, tenantId, err := e.begin(ctx, "ListInvoicePayments")
	if err != nil {
		return nil, err
	}
	defer func() { endSpan(span, err) }()

	if _, err := e.store.GetSalesInvoice(ctx, tenantId, invoiceId); err != nil {
		return nil, storeErr("invoice", err)
	}
	payments, err := e.store.ListInvoicePayments(ctx, tenantId, invoiceId)
	if err != nil {
		return nil, storeErr("invoice payment", err)
	}
	return payments, nil
}

// RecomputeInvoicePayments re-derives amount paid and status, for reconciliation.
func (e *Engine) RecomputeInvoicePayments(ctx context.Context, invoiceId int) (result *models.SalesInvoice, err error) {
	ctx, span, tenantId, err := e.begin(ctx, "RecomputeInvoicePayments")
	if err != nil {
		return nil, err
	}
	defer func() { endSpan(span, err) }()

	err = e.withLock(ctx, invoiceLockKey(tenantId, invoiceId), func() error {
		result, err = e.recomputeInvoice(ctx, tenantId, invoiceId)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

/* purchase bills */

// recomputeBill re-derives amount paid. Bill status does not follow payments.
func (e *Engine) recomputeBill(ctx context.Context, tenantId string, billId int) (*models.PurchaseBill, error) {
	bill, err := e.store.GetPurchaseBill(ctx, tenantId, billId)
	if err != nil {
		return nil, storeErr("purchase bill", err)
	}
	payments, err := e.store.ListBillPayments(ctx, tenantId, billId)
	if err != nil {
		return nil, storeErr("purchase bill payment", err)
	}
	amounts := make([]decimal.Decimal, 0, len(payments))
	for _, p := range payments {
		amounts = append(amounts, p.Amount)
	}
	amountPaid := utils.SumRounded(amounts...)

	if err := e.store.UpdateBillAmountPaid(ctx, tenantId, billId, amountPaid); err != nil {
		return nil, storeErr("purchase bill", err)
	}
	bill.AmountPaid = amountPaid
	return bill, nil
}

func (e *Engine) RecordBillPayment(ctx context.Context, billId int, input *models.NewPayment) (result *BillPaymentResult, err error) {
	ctx, span, tenantId, err := e.begin(ctx, "RecordBillPayment")
	if err != nil {
		return nil, err
	}
	defer func() { endSpan(span, err) }()

	valid, err := e.validatePayment(input)
	if err != nil {
		return nil, err
	}

	err = e.withLock(ctx, billLockKey(tenantId, billId), func() error {
		bill, err := e.store.GetPurchaseBill(ctx, tenantId, billId)
		if err != nil {
			return storeErr("purchase bill", err)
		}
		if err := exceedsBalance(valid.amount, bill.Total, bill.AmountPaid); err != nil {
			return err
		}

		payment := &models.BillPayment{
			TenantId:  tenantId,
			BillId:    billId,
			Amount:    valid.amount,
			Method:    valid.method,
			Reference: input.Reference,
			PaidAt:    valid.paidAt,
		}
		if err := e.store.CreateBillPayment(ctx, payment); err != nil {
			return storeErr("purchase bill payment", err)
		}
		updated, err := e.recomputeBill(ctx, tenantId, billId)
		if err != nil {
			return e.recomputed("RecordBillPayment", err)
		}
		result = &BillPaymentResult{Payment: payment, Bill: updated}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) DeleteBillPayment(ctx context.Context, billId int, paymentId int) (result *models.PurchaseBill, err error) {
	ctx, span, tenantId, err := e.begin(ctx, "DeleteBillPayment")
	if err != nil {
		return nil, err
	}
	defer func() { endSpan(span, err) }()

	err = e.withLock(ctx, billLockKey(tenantId, billId), func() error {
		if _, err := e.store.GetPurchaseBill(ctx, tenantId, billId); err != nil {
			return storeErr("purchase bill", err)
		}
		payment, err := e.store.GetBillPayment(ctx, tenantId, paymentId)
		if err != nil {
			return storeErr("payment", err)
		}
		if payment.BillId != billId {
			return utils.NotFoundError("payment")
		}
		if err := e.store.DeleteBillPayment(ctx, tenantId, paymentId); err != nil {
			return storeErr("payment", err)
		}
		result, err = e.recomputeBill(ctx, tenantId, billId)
		return e.recomputed("DeleteBillPayment", err)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) ListBillPayments(ctx context.Context, billId int) (result []*models.BillPayment, err error) {
	ctx, span, tenantId, err := e.begin(ctx, "ListBillPayments")
	if err != nil {
		return nil, err
	}
	defer func() { endSpan(span, err) }()

	if _, err := e.store.GetPurchaseBill(ctx, tenantId, billId); err != nil {
		return nil, storeErr("purchase bill", err)
	}
	payments, err := e.store.ListBillPayments(ctx, tenantId, billId)
	if err != nil {
		return nil, storeErr("purchase bill payment", err)
	}
	return payments, nil
}

// RecomputeBillPayments re-derives the bill's amount paid, for reconciliation.
func (e *Engine) RecomputeBillPayments(ctx context.Context, billId int) (result *models.PurchaseBill, err error) {
	ctx, span, tenantId, err := e.begin(ctx, "RecomputeBillPayments")
	if err != nil {
		return nil, err
	}
	defer func() { endSpan(span, err) }()

	err = e.withLock(ctx, billLockKey(tenantId, billId), func() error {
		result, err = e.recomputeBill(ctx, tenantId, billId)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

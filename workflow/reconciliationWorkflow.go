package workflow

import (
	"context"

	"github.com/mmdatafocus/billing_backend/config"
	"github.com/mmdatafocus/billing_backend/models"
	"github.com/mmdatafocus/billing_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type ReconciliationReport struct {
	InvoicesChecked int   `json:"invoices_checked"`
	BillsChecked    int   `json:"bills_checked"`
	DriftedInvoices []int `json:"drifted_invoices"`
	DriftedBills    []int `json:"drifted_bills"`
}

// invoiceDrifted reports whether the stored payment state differs from what
// the payment rows derive. An invoice without payments may be draft or sent, not paid.
func (e *Engine) invoiceDrifted(ctx context.Context, tenantId string, inv *models.SalesInvoice) (bool, error) {
	payments, err := e.store.ListInvoicePayments(ctx, tenantId, inv.ID)
	if err != nil {
		return false, storeErr("invoice payment", err)
	}
	amounts := make([]decimal.Decimal, 0, len(payments))
	for _, p := range payments {
		amounts = append(amounts, p.Amount)
	}
	paid := utils.SumRounded(amounts...)
	if !paid.Equal(inv.AmountPaid) {
		return true, nil
	}
	if len(payments) == 0 {
		return inv.Status == models.InvoiceStatusPaid && paid.LessThan(inv.Total), nil
	}
	want := models.InvoiceStatusSent
	if paid.GreaterThanOrEqual(inv.Total) {
		want = models.InvoiceStatusPaid
	}
	return inv.Status != want, nil
}

func (e *Engine) billDrifted(ctx context.Context, tenantId string, bill *models.PurchaseBill) (bool, error) {
	payments, err := e.store.ListBillPayments(ctx, tenantId, bill.ID)
	if err != nil {
		return false, storeErr("purchase bill payment", err)
	}
	amounts := make([]decimal.Decimal, 0, len(payments))
	for _, p := range payments {
		amounts = append(amounts, p.Amount)
	}
	return !utils.SumRounded(amounts...).Equal(bill.AmountPaid), nil
}

// ReconcilePayments finds invoices and bills whose stored amount paid no longer
// matches their payment rows and, unless dryRun, recomputes them under their
// document lock.
func (e *Engine) ReconcilePayments(ctx context.Context, dryRun bool) (result *ReconciliationReport, err error) {
	ctx, span, tenantId, err := e.begin(ctx, "ReconcilePayments")
	if err != nil {
		return nil, err
	}
	defer func() { endSpan(span, err) }()

	report := &ReconciliationReport{DriftedInvoices: []int{}, DriftedBills: []int{}}

	invoices, err := e.store.ListSalesInvoices(ctx, tenantId, models.SalesInvoiceFilter{})
	if err != nil {
		return nil, storeErr("invoice", err)
	}
	for _, inv := range invoices {
		report.InvoicesChecked++
		drifted, err := e.invoiceDrifted(ctx, tenantId, inv)
		if err != nil {
			return nil, err
		}
		if !drifted {
			continue
		}
		report.DriftedInvoices = append(report.DriftedInvoices, inv.ID)
		if dryRun {
			continue
		}
		err = e.withLock(ctx, invoiceLockKey(tenantId, inv.ID), func() error {
			_, err := e.recomputeInvoice(ctx, tenantId, inv.ID)
			return err
		})
		if err != nil {
			config.LogError(e.logger, "ReconciliationWorkflow.go", "ReconcilePayments", "recomputeInvoice", inv.ID, err)
			return nil, err
		}
	}

	bills, err := e.store.ListPurchaseBills(ctx, tenantId, models.PurchaseBillFilter{})
	if err != nil {
		return nil, storeErr("purchase bill", err)
	}
	for _, bill := range bills {
		report.BillsChecked++
		drifted, err := e.billDrifted(ctx, tenantId, bill)
		if err != nil {
			return nil, err
		}
		if !drifted {
			continue
		}
		report.DriftedBills = append(report.DriftedBills, bill.ID)
		if dryRun {
			continue
		}
		err = e.withLock(ctx, billLockKey(tenantId, bill.ID), func() error {
			_, err := e.recomputeBill(ctx, tenantId, bill.ID)
			return err
		})
		if err != nil {
			config.LogError(e.logger, "ReconciliationWorkflow.go", "ReconcilePayments", "recomputeBill", bill.ID, err)
			return nil, err
		}
	}

	e.logger.WithFields(logrus.Fields{
		"tenant_id":        tenantId,
		"dry_run":          dryRun,
		"drifted_invoices": len(report.DriftedInvoices),
		"drifted_bills":    len(report.DriftedBills),
	}).Info("payment reconciliation finished")
	return report, nil
}

package reports

import (
	"context"
	"sort"
	"time"

	"github.com/mmdatafocus/billing_backend/models"
	"github.com/mmdatafocus/billing_backend/utils"
	"github.com/shopspring/decimal"
)

type SalesSummaryResponse struct {
	Range        DateRange       `json:"range"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	InvoiceCount int             `json:"invoiceCount"`
}

// SalesSummary totals paid invoices dated within the range.
func (r *Reporter) SalesSummary(ctx context.Context, dr DateRange) (*SalesSummaryResponse, error) {
	defer r.logSlow(ctx, "SalesSummary", time.Now())
	tenantId, err := utils.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	invoices, err := r.invoices(ctx, tenantId, paidStatuses, &dr)
	if err != nil {
		return nil, err
	}
	totals := make([]decimal.Decimal, 0, len(invoices))
	for _, inv := range invoices {
		totals = append(totals, inv.Total)
	}
	return &SalesSummaryResponse{
		Range:        dr,
		TotalRevenue: utils.SumRounded(totals...),
		InvoiceCount: len(invoices),
	}, nil
}

type InvoiceStatusSummary struct {
	Status models.InvoiceStatus `json:"status"`
	Count  int                  `json:"count"`
	Total  decimal.Decimal      `json:"total"`
}

type InvoiceSummaryResponse struct {
	Range    *DateRange              `json:"range,omitempty"`
	Statuses []*InvoiceStatusSummary `json:"statuses"`
	Count    int                     `json:"count"`
	Total    decimal.Decimal         `json:"total"`
}

// InvoiceSummary counts and totals invoices per status. A nil range covers all time.
func (r *Reporter) InvoiceSummary(ctx context.Context, dr *DateRange) (*InvoiceSummaryResponse, error) {
	defer r.logSlow(ctx, "InvoiceSummary", time.Now())
	tenantId, err := utils.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	invoices, err := r.invoices(ctx, tenantId, nil, dr)
	if err != nil {
		return nil, err
	}

	resp := &InvoiceSummaryResponse{Range: dr, Total: decimal.Zero}
	byStatus := map[models.InvoiceStatus]*InvoiceStatusSummary{}
	for _, status := range []models.InvoiceStatus{models.InvoiceStatusDraft, models.InvoiceStatusSent, models.InvoiceStatusPaid} {
		row := &InvoiceStatusSummary{Status: status, Total: decimal.Zero}
		byStatus[status] = row
		resp.Statuses = append(resp.Statuses, row)
	}
	for _, inv := range invoices {
		row, ok := byStatus[inv.Status]
		if !ok {
			continue
		}
		row.Count++
		row.Total = row.Total.Add(inv.Total)
		resp.Count++
		resp.Total = resp.Total.Add(inv.Total)
	}
	for _, row := range resp.Statuses {
		row.Total = utils.Round(row.Total)
	}
	resp.Total = utils.Round(resp.Total)
	return resp, nil
}

type OutstandingInvoice struct {
	InvoiceId     int             `json:"invoiceId"`
	InvoiceNumber string          `json:"invoiceNumber"`
	InvoiceDate   time.Time       `json:"invoiceDate"`
	CustomerId    int             `json:"customerId"`
	CustomerName  string          `json:"customerName"`
	Total         decimal.Decimal `json:"total"`
	AmountPaid    decimal.Decimal `json:"amountPaid"`
	Due           decimal.Decimal `json:"due"`
}

type OutstandingResponse struct {
	Invoices []*OutstandingInvoice `json:"invoices"`
	Count    int                   `json:"count"`
	TotalDue decimal.Decimal       `json:"totalDue"`
}

// Outstanding lists every sent invoice with what is still due, oldest first.
func (r *Reporter) Outstanding(ctx context.Context) (*OutstandingResponse, error) {
	defer r.logSlow(ctx, "Outstanding", time.Now())
	tenantId, err := utils.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	invoices, err := r.invoices(ctx, tenantId, []models.InvoiceStatus{models.InvoiceStatusSent}, nil)
	if err != nil {
		return nil, err
	}

	resp := &OutstandingResponse{Invoices: []*OutstandingInvoice{}}
	var dues []decimal.Decimal
	for _, inv := range invoices {
		due := utils.Round(inv.Total.Sub(inv.AmountPaid))
		row := &OutstandingInvoice{
			InvoiceId:     inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			InvoiceDate:   inv.InvoiceDate,
			CustomerId:    inv.CustomerId,
			Total:         inv.Total,
			AmountPaid:    inv.AmountPaid,
			Due:           due,
		}
		if inv.Customer != nil {
			row.CustomerName = inv.Customer.Name
		}
		resp.Invoices = append(resp.Invoices, row)
		dues = append(dues, due)
	}
	sort.SliceStable(resp.Invoices, func(i, j int) bool {
		a, b := resp.Invoices[i], resp.Invoices[j]
		if a.InvoiceDate.Equal(b.InvoiceDate) {
			return a.InvoiceId < b.InvoiceId
		}
		return a.InvoiceDate.Before(b.InvoiceDate)
	})
	resp.Count = len(resp.Invoices)
	resp.TotalDue = utils.SumRounded(dues...)
	return resp, nil
}

type TaxSummaryMonth struct {
	Month    string          `json:"month"`
	Cgst     decimal.Decimal `json:"cgst"`
	Sgst     decimal.Decimal `json:"sgst"`
	Igst     decimal.Decimal `json:"igst"`
	TotalTax decimal.Decimal `json:"totalTax"`
}

type TaxSummaryResponse struct {
	Range  DateRange          `json:"range"`
	Months []*TaxSummaryMonth `json:"months"`
	Cgst   decimal.Decimal    `json:"cgst"`
	Sgst   decimal.Decimal    `json:"sgst"`
	Igst   decimal.Decimal    `json:"igst"`
	Total  decimal.Decimal    `json:"total"`
}

// TaxSummary splits the tax of sent and paid invoices by month, oldest month first.
func (r *Reporter) TaxSummary(ctx context.Context, dr DateRange) (*TaxSummaryResponse, error) {
	defer r.logSlow(ctx, "TaxSummary", time.Now())
	tenantId, err := utils.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	invoices, err := r.invoices(ctx, tenantId, billedStatuses, &dr)
	if err != nil {
		return nil, err
	}
	items, err := r.items(ctx, tenantId, invoices)
	if err != nil {
		return nil, err
	}

	monthOf := make(map[int]string, len(invoices))
	for _, inv := range invoices {
		monthOf[inv.ID] = utils.MonthKey(inv.InvoiceDate)
	}
	byMonth := map[string]*TaxSummaryMonth{}
	for _, item := range items {
		key, ok := monthOf[item.InvoiceId]
		if !ok {
			continue
		}
		row, ok := byMonth[key]
		if !ok {
			row = &TaxSummaryMonth{Month: key}
			byMonth[key] = row
		}
		row.Cgst = row.Cgst.Add(item.Cgst)
		row.Sgst = row.Sgst.Add(item.Sgst)
		row.Igst = row.Igst.Add(item.Igst)
	}

	resp := &TaxSummaryResponse{Range: dr, Months: []*TaxSummaryMonth{}}
	for _, row := range byMonth {
		row.Cgst, row.Sgst, row.Igst = utils.Round(row.Cgst), utils.Round(row.Sgst), utils.Round(row.Igst)
		row.TotalTax = utils.SumRounded(row.Cgst, row.Sgst, row.Igst)
		resp.Months = append(resp.Months, row)
		resp.Cgst = resp.Cgst.Add(row.Cgst)
		resp.Sgst = resp.Sgst.Add(row.Sgst)
		resp.Igst = resp.Igst.Add(row.Igst)
	}
	sort.Slice(resp.Months, func(i, j int) bool { return resp.Months[i].Month < resp.Months[j].Month })
	resp.Cgst, resp.Sgst, resp.Igst = utils.Round(resp.Cgst), utils.Round(resp.Sgst), utils.Round(resp.Igst)
	resp.Total = utils.SumRounded(resp.Cgst, resp.Sgst, resp.Igst)
	return resp, nil
}

const (
	DefaultTrendMonths = 6
	MaxTrendMonths     = 24
)

type RevenueTrendPoint struct {
	Month   string          `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
}

// RevenueTrend returns paid revenue for the last n months ending with the current
// one, zero-filled and oldest first. n outside 1..24 is clamped, and n < 1 means 6.
func (r *Reporter) RevenueTrend(ctx context.Context, n int) ([]*RevenueTrendPoint, error) {
	defer r.logSlow(ctx, "RevenueTrend", time.Now())
	tenantId, err := utils.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	n = clamp(n, DefaultTrendMonths, 1, MaxTrendMonths)

	now := r.now().UTC()
	firstMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(n - 1), 0)
	_, lastDay := utils.GetThisMonthRange(now)
	invoices, err := r.invoices(ctx, tenantId, paidStatuses, &DateRange{From: firstMonth, To: lastDay})
	if err != nil {
		return nil, err
	}

	points := make([]*RevenueTrendPoint, 0, n)
	index := make(map[string]*RevenueTrendPoint, n)
	for i := 0; i < n; i++ {
		p := &RevenueTrendPoint{Month: utils.MonthKey(firstMonth.AddDate(0, i, 0)), Revenue: decimal.Zero}
		points = append(points, p)
		index[p.Month] = p
	}
	for _, inv := range invoices {
		if p, ok := index[utils.MonthKey(inv.InvoiceDate)]; ok {
			p.Revenue = p.Revenue.Add(inv.Total)
		}
	}
	for _, p := range points {
		p.Revenue = utils.Round(p.Revenue)
	}
	return points, nil
}

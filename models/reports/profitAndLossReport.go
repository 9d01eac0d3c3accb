package reports

import (
	"context"
	"sort"
	"time"

	"github.com/mmdatafocus/billing_backend/config"
	"github.com/mmdatafocus/billing_backend/models"
	"github.com/mmdatafocus/billing_backend/utils"
	"github.com/shopspring/decimal"
)

type ProductProfitResponse struct {
	ProductId     int             `json:"productId"`
	ProductName   string          `json:"productName"`
	Quantity      decimal.Decimal `json:"quantity"`
	Sales         decimal.Decimal `json:"sales"`
	Cost          decimal.Decimal `json:"cost"`
	Profit        decimal.Decimal `json:"profit"`
	MarginPercent decimal.Decimal `json:"marginPercent"`
}

// ProductProfit compares line sales against the cost snapshot taken at invoicing.
// Lines without a product are left out. Sorted by profit, highest first.
func (r *Reporter) ProductProfit(ctx context.Context, dr DateRange) ([]*ProductProfitResponse, error) {
	defer r.logSlow(ctx, "ProductProfit", time.Now())
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

	var rows []*ProductProfitResponse
	byProduct := map[int]*ProductProfitResponse{}
	var productIds []int
	for _, item := range items {
		if item.ProductId == nil {
			continue
		}
		row, ok := byProduct[*item.ProductId]
		if !ok {
			row = &ProductProfitResponse{ProductId: *item.ProductId, ProductName: item.Description}
			byProduct[*item.ProductId] = row
			rows = append(rows, row)
			productIds = append(productIds, *item.ProductId)
		}
		row.Quantity = row.Quantity.Add(item.Quantity)
		row.Sales = row.Sales.Add(item.Amount)
		row.Cost = row.Cost.Add(costOf(item))
	}

	names, err := r.productNames(ctx, tenantId, productIds)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if name, ok := names[row.ProductId]; ok {
			row.ProductName = name
		}
		row.Sales, row.Cost = utils.Round(row.Sales), utils.Round(row.Cost)
		row.Profit = utils.Round(row.Sales.Sub(row.Cost))
		row.MarginPercent = utils.Percent(row.Profit, row.Sales)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Profit.GreaterThan(rows[j].Profit) })
	if rows == nil {
		rows = []*ProductProfitResponse{}
	}
	return rows, nil
}

// ProfitAndLossResponse carries sales net of tax in TotalSales. SalesIncludingTax
// is the invoice total figure the sales reports use.
type ProfitAndLossResponse struct {
	Range             DateRange       `json:"range"`
	TotalSales        decimal.Decimal `json:"totalSales"`
	TaxCollected      decimal.Decimal `json:"taxCollected"`
	SalesIncludingTax decimal.Decimal `json:"salesIncludingTax"`
	CostOfGoods       decimal.Decimal `json:"costOfGoods"`
	GrossProfit       decimal.Decimal `json:"grossProfit"`
	Purchases         decimal.Decimal `json:"purchases"`
	ProfitPercent     decimal.Decimal `json:"profitPercent"`
	InvoiceCount      int             `json:"invoiceCount"`
	BillCount         int             `json:"billCount"`
}

// ProfitAndLoss reports sales net of tax against the cost of goods sold.
// Recorded purchase spend is shown alongside and does not enter gross profit.
func (r *Reporter) ProfitAndLoss(ctx context.Context, dr DateRange) (*ProfitAndLossResponse, error) {
	defer r.logSlow(ctx, "ProfitAndLoss", time.Now())
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
	filter := models.PurchaseBillFilter{
		Statuses: []models.BillStatus{models.BillStatusRecorded},
		From:     &dr.From,
		To:       &dr.To,
	}
	bills, err := r.store.ListPurchaseBills(ctx, tenantId, filter)
	if err != nil {
		config.LogError(r.logger, "ProfitAndLossReport.go", "ProfitAndLoss", "ListPurchaseBills", filter, err)
		return nil, utils.StoreError("cannot read purchase bills", err)
	}

	var subtotals, taxes, totals, costs, purchases []decimal.Decimal
	for _, inv := range invoices {
		subtotals = append(subtotals, inv.Subtotal)
		taxes = append(taxes, inv.TaxAmount)
		totals = append(totals, inv.Total)
	}
	for _, item := range items {
		costs = append(costs, costOf(item))
	}
	for _, bill := range bills {
		purchases = append(purchases, bill.Total)
	}

	resp := &ProfitAndLossResponse{
		Range:             dr,
		TotalSales:        utils.SumRounded(subtotals...),
		TaxCollected:      utils.SumRounded(taxes...),
		SalesIncludingTax: utils.SumRounded(totals...),
		CostOfGoods:       utils.SumRounded(costs...),
		Purchases:         utils.SumRounded(purchases...),
		InvoiceCount:      len(invoices),
		BillCount:         len(bills),
	}
	resp.GrossProfit = utils.Round(resp.TotalSales.Sub(resp.CostOfGoods))
	resp.ProfitPercent = utils.Percent(resp.GrossProfit, resp.TotalSales)
	return resp, nil
}

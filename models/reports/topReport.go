package reports

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mmdatafocus/billing_backend/utils"
	"github.com/shopspring/decimal"
)

const (
	DefaultTopLimit = 10
	MaxTopLimit     = 100

	adhocKeyPrefix = "adhoc:"
	adhocKeyLength = 40
)

// AdhocKey groups invoice lines that have no product by their description.
func AdhocKey(description string) string {
	key := []rune(strings.ToLower(strings.TrimSpace(description)))
	if len(key) > adhocKeyLength {
		key = key[:adhocKeyLength]
	}
	return adhocKeyPrefix + string(key)
}

type TopProductResponse struct {
	Key       string          `json:"key"`
	ProductId *int            `json:"productId,omitempty"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
	LineCount int             `json:"lineCount"`
}

// TopProducts ranks sent and paid invoice lines by revenue. A nil range covers all time.
func (r *Reporter) TopProducts(ctx context.Context, dr *DateRange, limit int) ([]*TopProductResponse, error) {
	defer r.logSlow(ctx, "TopProducts", time.Now())
	tenantId, err := utils.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	limit = clamp(limit, DefaultTopLimit, 1, MaxTopLimit)
	invoices, err := r.invoices(ctx, tenantId, billedStatuses, dr)
	if err != nil {
		return nil, err
	}
	items, err := r.items(ctx, tenantId, invoices)
	if err != nil {
		return nil, err
	}

	var rows []*TopProductResponse
	byKey := map[string]*TopProductResponse{}
	var productIds []int
	for _, item := range items {
		key := AdhocKey(item.Description)
		if item.ProductId != nil {
			key = fmt.Sprintf("product:%d", *item.ProductId)
		}
		row, ok := byKey[key]
		if !ok {
			row = &TopProductResponse{Key: key, ProductId: item.ProductId, Name: strings.TrimSpace(item.Description)}
			byKey[key] = row
			rows = append(rows, row)
			if item.ProductId != nil {
				productIds = append(productIds, *item.ProductId)
			}
		}
		row.Quantity = row.Quantity.Add(item.Quantity)
		row.Revenue = row.Revenue.Add(item.Amount)
		row.LineCount++
	}

	names, err := r.productNames(ctx, tenantId, productIds)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		row.Revenue = utils.Round(row.Revenue)
		if row.ProductId != nil {
			if name, ok := names[*row.ProductId]; ok {
				row.Name = name
			}
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Revenue.GreaterThan(rows[j].Revenue) })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = []*TopProductResponse{}
	}
	return rows, nil
}

type TopCustomerResponse struct {
	CustomerId   int             `json:"customerId"`
	CustomerName string          `json:"customerName"`
	InvoiceCount int             `json:"invoiceCount"`
	Revenue      decimal.Decimal `json:"revenue"`
	AmountPaid   decimal.Decimal `json:"amountPaid"`
}

// TopCustomers ranks customers of sent and paid invoices by amount paid, then revenue.
func (r *Reporter) TopCustomers(ctx context.Context, dr *DateRange, limit int) ([]*TopCustomerResponse, error) {
	defer r.logSlow(ctx, "TopCustomers", time.Now())
	tenantId, err := utils.RequireTenant(ctx)
	if err != nil {
		return nil, err
	}
	limit = clamp(limit, DefaultTopLimit, 1, MaxTopLimit)
	invoices, err := r.invoices(ctx, tenantId, billedStatuses, dr)
	if err != nil {
		return nil, err
	}

	var rows []*TopCustomerResponse
	byCustomer := map[int]*TopCustomerResponse{}
	for _, inv := range invoices {
		row, ok := byCustomer[inv.CustomerId]
		if !ok {
			row = &TopCustomerResponse{CustomerId: inv.CustomerId}
			if inv.Customer != nil {
				row.CustomerName = inv.Customer.Name
			}
			byCustomer[inv.CustomerId] = row
			rows = append(rows, row)
		}
		row.InvoiceCount++
		row.Revenue = row.Revenue.Add(inv.Total)
		row.AmountPaid = row.AmountPaid.Add(inv.AmountPaid)
	}
	for _, row := range rows {
		row.Revenue, row.AmountPaid = utils.Round(row.Revenue), utils.Round(row.AmountPaid)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].AmountPaid.Equal(rows[j].AmountPaid) {
			return rows[i].AmountPaid.GreaterThan(rows[j].AmountPaid)
		}
		return rows[i].Revenue.GreaterThan(rows[j].Revenue)
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = []*TopCustomerResponse{}
	}
	return rows, nil
}

package reports

import (
	"context"
	"time"

	"github.com/mmdatafocus/billing_backend/config"
	"github.com/mmdatafocus/billing_backend/models"
	"github.com/mmdatafocus/billing_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Reporter derives read-only figures from invoices, items, payments and bills.
// Nothing here writes to the store.
type Reporter struct {
	store  models.Store
	logger *logrus.Logger
	now    func() time.Time
}

func NewReporter(store models.Store, logger *logrus.Logger) *Reporter {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &Reporter{store: store, logger: logger, now: time.Now}
}

// WithClock replaces the clock used for default ranges and the revenue trend.
func (r *Reporter) WithClock(now func() time.Time) *Reporter {
	r.now = now
	return r
}

// Now is the reporter's clock, used to resolve default ranges.
func (r *Reporter) Now() time.Time {
	return r.now()
}

var (
	billedStatuses = []models.InvoiceStatus{models.InvoiceStatusSent, models.InvoiceStatusPaid}
	paidStatuses   = []models.InvoiceStatus{models.InvoiceStatusPaid}
)

func (r *Reporter) invoices(ctx context.Context, tenantId string, statuses []models.InvoiceStatus, dr *DateRange) ([]*models.SalesInvoice, error) {
	filter := models.SalesInvoiceFilter{Statuses: statuses}
	if dr != nil {
		filter.From, filter.To = &dr.From, &dr.To
	}
	invoices, err := r.store.ListSalesInvoices(ctx, tenantId, filter)
	if err != nil {
		config.LogError(r.logger, "Reporter.go", "invoices", "ListSalesInvoices", filter, err)
		return nil, utils.StoreError("cannot read invoices", err)
	}
	return invoices, nil
}

func (r *Reporter) items(ctx context.Context, tenantId string, invoices []*models.SalesInvoice) ([]*models.SalesInvoiceItem, error) {
	ids := make([]int, 0, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.ID)
	}
	items, err := r.store.ListSalesInvoiceItems(ctx, tenantId, ids)
	if err != nil {
		config.LogError(r.logger, "Reporter.go", "items", "ListSalesInvoiceItems", ids, err)
		return nil, utils.StoreError("cannot read invoice items", err)
	}
	return items, nil
}

func (r *Reporter) productNames(ctx context.Context, tenantId string, ids []int) (map[int]string, error) {
	names := make(map[int]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	products, err := r.store.GetProducts(ctx, tenantId, utils.UniqueSlice(ids))
	if err != nil {
		config.LogError(r.logger, "Reporter.go", "productNames", "GetProducts", ids, err)
		return nil, utils.StoreError("cannot read products", err)
	}
	for _, p := range products {
		names[p.ID] = p.Name
	}
	return names, nil
}

func costOf(item *models.SalesInvoiceItem) decimal.Decimal {
	return utils.DereferencePtr(item.CostAmount, decimal.Zero)
}

// clamp bounds n to [lo, hi]. Zero means not supplied and gives def.
func clamp(n, def, lo, hi int) int {
	if n == 0 {
		return def
	}
	return max(lo, min(n, hi))
}

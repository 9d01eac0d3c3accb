package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmdatafocus/billing_backend/models"
	"github.com/mmdatafocus/billing_backend/utils"
	"github.com/shopspring/decimal"
)

// composedInvoice is a validated invoice with resolved items, ready to persist.
type composedInvoice struct {
	invoice  *models.SalesInvoice
	items    []*models.SalesInvoiceItem
	customer *models.Customer
}

// composeSalesInvoice validates input and resolves items and totals without writing anything.
func (e *Engine) composeSalesInvoice(ctx context.Context, tenant *models.Tenant, input *models.NewSalesInvoice) (*composedInvoice, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = models.InvoiceStatusDraft
	}
	if !status.IsValid() {
		return nil, utils.ValidationError("invalid invoice status %q", status)
	}
	gstMode := input.GstMode
	if gstMode == "" {
		gstMode = models.GstModeIntra
	}
	if !gstMode.IsValid() {
		return nil, utils.ValidationError("invalid gst mode %q", gstMode)
	}
	invoiceDate, err := utils.ParseDate(input.InvoiceDate)
	if err != nil {
		return nil, err
	}
	for i, item := range input.Items {
		if !item.Quantity.IsPositive() {
			return nil, utils.ValidationError("item %d: quantity must be greater than zero", i+1)
		}
		if item.UnitPrice != nil && item.UnitPrice.IsNegative() {
			return nil, utils.ValidationError("item %d: unit price must not be negative", i+1)
		}
	}

	customer, err := e.store.GetCustomer(ctx, tenant.ID, input.CustomerId)
	if err != nil {
		return nil, storeErr("customer", err)
	}
	products, err := e.fetchProducts(ctx, tenant.ID, salesItemProductIds(input.Items))
	if err != nil {
		return nil, err
	}

	tenantTax := utils.DereferencePtr(tenant.DefaultTaxPercent)
	var items []*models.SalesInvoiceItem
	var lines []utils.LineTax
	for i, in := range input.Items {
		var product *models.Product
		if in.ProductId != nil {
			product = products[*in.ProductId]
		}
		item, line, err := resolveSalesItem(tenant, product, gstMode, in)
		if err != nil {
			return nil, utils.ValidationError("item %d: %s", i+1, err.Error())
		}
		items = append(items, item)
		lines = append(lines, line)
	}

	totals := utils.SumDocumentTotals(lines, tenantTax)
	invoice := &models.SalesInvoice{
		TenantId:    tenant.ID,
		CustomerId:  customer.ID,
		InvoiceDate: invoiceDate,
		Status:      status,
		GstMode:     gstMode,
		Subtotal:    totals.Subtotal,
		TaxPercent:  totals.EffectiveTaxPercent,
		TaxAmount:   totals.TaxAmount,
		Total:       totals.Total,
		AmountPaid:  decimal.Zero,
		Notes:       strings.TrimSpace(input.Notes),
	}
	return &composedInvoice{invoice: invoice, items: items, customer: customer}, nil
}

func salesItemProductIds(items []models.NewSalesInvoiceItem) []int {
	var ids []int
	for _, item := range items {
		if item.ProductId != nil {
			ids = append(ids, *item.ProductId)
		}
	}
	return utils.UniqueSlice(ids)
}

// fetchProducts loads every id tenant-scoped and fails with not-found on the first missing one.
func (e *Engine) fetchProducts(ctx context.Context, tenantId string, ids []int) (map[int]*models.Product, error) {
	result := make(map[int]*models.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	products, err := e.store.GetProducts(ctx, tenantId, ids)
	if err != nil {
		return nil, storeErr("product", err)
	}
	for _, p := range products {
		result[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := result[id]; !ok {
			return nil, utils.NotFoundError(fmt.Sprintf("product %d", id))
		}
	}
	return result, nil
}

// resolveSalesItem applies product fallbacks and the tax split to one line.
// Explicit description and unit price win over the product; the product tax
// override wins over the tenant default; cost is a snapshot of the product's
// last purchase price.
func resolveSalesItem(tenant *models.Tenant, product *models.Product, gstMode models.GstMode, in models.NewSalesInvoiceItem) (*models.SalesInvoiceItem, utils.LineTax, error) {
	description := strings.TrimSpace(in.Description)
	var unitPrice *decimal.Decimal
	if in.UnitPrice != nil {
		price := *in.UnitPrice
		unitPrice = &price
	}
	hsnCode := strings.TrimSpace(in.HsnCode)
	var productOverride *decimal.Decimal
	if product != nil {
		if description == "" {
			description = product.Name
		}
		if unitPrice == nil {
			price := product.UnitPrice
			unitPrice = &price
		}
		if hsnCode == "" {
			hsnCode = product.HsnCode
		}
		productOverride = product.TaxPercent
	}
	if description == "" {
		return nil, utils.LineTax{}, fmt.Errorf("description is required")
	}
	if unitPrice == nil {
		return nil, utils.LineTax{}, fmt.Errorf("unit price is required")
	}
	if unitPrice.IsNegative() {
		return nil, utils.LineTax{}, fmt.Errorf("unit price must not be negative")
	}

	taxPercent := utils.ResolveTaxPercent(productOverride, tenant.DefaultTaxPercent)
	line := utils.SplitLineTax(in.Quantity, *unitPrice, taxPercent, gstMode.IsInterState())

	item := &models.SalesInvoiceItem{
		TenantId:    tenant.ID,
		Description: description,
		Quantity:    in.Quantity,
		UnitPrice:   *unitPrice,
		Amount:      line.Amount,
		TaxPercent:  taxPercent,
		GstMode:     gstMode,
		Cgst:        line.Cgst,
		Sgst:        line.Sgst,
		Igst:        line.Igst,
		HsnCode:     hsnCode,
	}
	if product != nil {
		productId := product.ID
		costPrice := product.LastPurchasePrice
		costAmount := utils.Round(in.Quantity.Mul(costPrice))
		item.ProductId = &productId
		item.CostPrice = &costPrice
		item.CostAmount = &costAmount
	}
	return item, line, nil
}

// CreateSalesInvoice validates and prices the invoice, takes the next tenant
// number and persists header then items. The writes run as a saga: a failure
// removes whatever was already written.
func (e *Engine) CreateSalesInvoice(ctx context.Context, input *models.NewSalesInvoice) (result *models.SalesInvoice, err error) {
	ctx, span, tenantId, err := e.begin(ctx, "CreateSalesInvoice")
	if err != nil {
		return nil, err
	}
	defer func() { endSpan(span, err) }()

	tenant, err := e.store.GetTenant(ctx, tenantId)
	if err != nil {
		return nil, storeErr("tenant", err)
	}
	composed, err := e.composeSalesInvoice(ctx, tenant, input)
	if err != nil {
		return nil, err
	}
	invoice := composed.invoice

	err = e.withLock(ctx, invoiceNumberLockKey(tenantId), func() error {
		seq, err := e.readInvoiceSequence(ctx, tenantId)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = seq.number

		return e.runSaga(ctx, "CreateSalesInvoice", []sagaStep{
			{
				name: "insert invoice",
				do: func(ctx context.Context) error {
					if err := e.store.CreateSalesInvoice(ctx, invoice); err != nil {
						return storeErr("invoice number "+invoice.InvoiceNumber, err)
					}
					return nil
				},
				undo: func(ctx context.Context) error {
					if err := e.store.DeleteSalesInvoiceItems(ctx, tenantId, invoice.ID); err != nil {
						return err
					}
					return e.store.DeleteSalesInvoice(ctx, tenantId, invoice.ID)
				},
			},
			{
				name: "insert items",
				do: func(ctx context.Context) error {
					for _, item := range composed.items {
						item.InvoiceId = invoice.ID
					}
					if err := e.store.CreateSalesInvoiceItems(ctx, composed.items); err != nil {
						return storeErr("invoice item", err)
					}
					return nil
				},
				undo: func(ctx context.Context) error {
					return e.store.DeleteSalesInvoiceItems(ctx, tenantId, invoice.ID)
				},
			},
			{
				name: "advance invoice counter",
				do: func(ctx context.Context) error {
					return e.advanceInvoiceSequence(ctx, seq)
				},
			},
		})
	})
	if err != nil {
		return nil, err
	}

	invoice.Customer = composed.customer
	for _, item := range composed.items {
		invoice.Items = append(invoice.Items, *item)
	}
	return invoice, nil
}

func (e *Engine) GetSalesInvoice(ctx context.Context, id int) (result *models.SalesInvoice, err error) {
	ctx, span, tenantId, err := e.begin(ctx, "GetSalesInvoice")
	if err != nil {
		return nil, err
	}
	defer func() { endSpan(span, err) }()

	invoice, err := e.store.GetSalesInvoice(ctx, tenantId, id)
	if err != nil {
		return nil, storeErr("invoice", err)
	}
	return invoice, nil
}

func (e *Engine) ListSalesInvoices(ctx context.Context, filter models.SalesInvoiceFilter) (result []*models.SalesInvoice, err error) {
	ctx, span, tenantId, err := e.begin(ctx, "ListSalesInvoices")
	if err != nil {
		return nil, err
	}
	defer func() { endSpan(span, err) }()

	for _, status := range filter.Statuses {
		if !status.IsValid() {
			return nil, utils.ValidationError("invalid invoice status %q", status)
		}
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, utils.ValidationError("from date must not be after to date")
	}
	page := models.Pagination{Limit: filter.Limit, Offset: filter.Offset}.Normalize()
	filter.Limit, filter.Offset = page.Limit, page.Offset

	invoices, err := e.store.ListSalesInvoices(ctx, tenantId, filter)
	if err != nil {
		return nil, storeErr("invoice", err)
	}
	return invoices, nil
}

// UpdateSalesInvoice changes date, status and notes. Totals, items and number never change.
// Status moves only between draft and sent; paid is owned by the payment ledger.
// An invoice with payments cannot go back to draft.
func (e *Engine) UpdateSalesInvoice(ctx context.Context, id int, input *models.UpdateSalesInvoice) (result *models.SalesInvoice, err error) {
	ctx, span, tenantId, err := e.begin(ctx, "UpdateSalesInvoice")
	if err != nil {
		return nil, err
	}
	defer func() { endSpan(span, err) }()

	if input.Status != nil && !input.Status.IsValid() {
		return nil, utils.ValidationError("invalid invoice status %q", *input.Status)
	}

	err = e.withLock(ctx, invoiceLockKey(tenantId, id), func() error {
		invoice, err := e.store.GetSalesInvoice(ctx, tenantId, id)
		if err != nil {
			return storeErr("invoice", err)
		}

		invoiceDate := invoice.InvoiceDate
		if input.InvoiceDate != nil {
			if invoiceDate, err = utils.ParseDate(*input.InvoiceDate); err != nil {
				return err
			}
		}
		status := invoice.Status
		if input.Status != nil {
			status = *input.Status
		}
		notes := invoice.Notes
		if input.Notes != nil {
			notes = strings.TrimSpace(*input.Notes)
		}

		if status != invoice.Status {
			if status == models.InvoiceStatusPaid {
				return utils.ConflictError("invoice is marked paid by recording payments")
			}
			if invoice.Status == models.InvoiceStatusPaid {
				return utils.ConflictError("paid invoice status follows its payments")
			}
		}
		if status == models.InvoiceStatusDraft && invoice.Status != models.InvoiceStatusDraft {
			count, err := e.store.CountInvoicePayments(ctx, tenantId, id)
			if err != nil {
				return storeErr("invoice payment", err)
			}
			if count > 0 {
				return utils.ConflictError("invoice with payments cannot be moved back to draft")
			}
		}

		if err := e.store.UpdateSalesInvoiceHeader(ctx, tenantId, id, invoiceDate, status, notes); err != nil {
			return storeErr("invoice", err)
		}
		result, err = e.store.GetSalesInvoice(ctx, tenantId, id)
		return storeErr("invoice", err)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteSalesInvoice removes an invoice without payments together with its items.
func (e *Engine) DeleteSalesInvoice(ctx context.Context, id int) (err error) {
	ctx, span, tenantId, err := e.begin(ctx, "DeleteSalesInvoice")
	if err != nil {
		return err
	}
	defer func() { endSpan(span, err) }()

	return e.withLock(ctx, invoiceLockKey(tenantId, id), func() error {
		invoice, err := e.store.GetSalesInvoice(ctx, tenantId, id)
		if err != nil {
			return storeErr("invoice", err)
		}
		count, err := e.store.CountInvoicePayments(ctx, tenantId, id)
		if err != nil {
			return storeErr("invoice payment", err)
		}
		if count > 0 {
			return utils.ConflictError("invoice with payments cannot be deleted")
		}

		oldItems := make([]*models.SalesInvoiceItem, 0, len(invoice.Items))
		for _, item := range invoice.Items {
			oldItems = append(oldItems, &item)
		}

		err = e.runSaga(ctx, "DeleteSalesInvoice", []sagaStep{
			{
				name: "delete items",
				do: func(ctx context.Context) error {
					return storeErr("invoice item", e.store.DeleteSalesInvoiceItems(ctx, tenantId, id))
				},
				undo: func(ctx context.Context) error {
					return e.store.CreateSalesInvoiceItems(ctx, oldItems)
				},
			},
			{
				name: "delete invoice",
				do: func(ctx context.Context) error {
					return storeErr("invoice", e.store.DeleteSalesInvoice(ctx, tenantId, id))
				},
			},
		})
		if err != nil {
			return err
		}
		e.logger.WithField("invoice_number", invoice.InvoiceNumber).Info("sales invoice deleted")
		return nil
	})
}

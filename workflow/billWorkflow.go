package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmdatafocus/billing_backend/config"
	"github.com/mmdatafocus/billing_backend/models"
	"github.com/mmdatafocus/billing_backend/utils"
	"github.com/shopspring/decimal"
)

// composePurchaseBill validates input and prices the lines. Bills carry no tax.
func (e *Engine) composePurchaseBill(ctx context.Context, tenantId string, input *models.NewPurchaseBill) (*models.PurchaseBill, []*models.PurchaseBillItem, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, nil, err
	}
	billNumber := strings.TrimSpace(input.BillNumber)
	if billNumber == "" {
		return nil, nil, utils.ValidationError("bill number is required")
	}
	if input.Status != "" && !input.Status.IsValid() {
		return nil, nil, utils.ValidationError("invalid purchase bill status %q", input.Status)
	}
	billDate, err := utils.ParseDate(input.BillDate)
	if err != nil {
		return nil, nil, err
	}
	var productIds []int
	for i, item := range input.Items {
		if !item.Quantity.IsPositive() {
			return nil, nil, utils.ValidationError("item %d: quantity must be greater than zero", i+1)
		}
		if item.PurchasePrice.IsNegative() {
			return nil, nil, utils.ValidationError("item %d: purchase price must not be negative", i+1)
		}
		productIds = append(productIds, item.ProductId)
	}

	supplier, err := e.store.GetSupplier(ctx, tenantId, input.SupplierId)
	if err != nil {
		return nil, nil, storeErr("supplier", err)
	}
	if _, err := e.fetchProducts(ctx, tenantId, utils.UniqueSlice(productIds)); err != nil {
		return nil, nil, err
	}

	var items []*models.PurchaseBillItem
	var amounts []decimal.Decimal
	for _, in := range input.Items {
		amount := utils.Round(in.Quantity.Mul(in.PurchasePrice))
		amounts = append(amounts, amount)
		items = append(items, &models.PurchaseBillItem{
			TenantId:      tenantId,
			ProductId:     in.ProductId,
			Quantity:      in.Quantity,
			PurchasePrice: in.PurchasePrice,
			Amount:        amount,
		})
	}
	subtotal := utils.SumRounded(amounts...)

	bill := &models.PurchaseBill{
		TenantId:   tenantId,
		SupplierId: supplier.ID,
		Supplier:   supplier,
		BillNumber: billNumber,
		BillDate:   billDate,
		Status:     models.BillStatusDraft,
		Subtotal:   subtotal,
		Total:      subtotal,
		AmountPaid: decimal.Zero,
		Notes:      strings.TrimSpace(input.Notes),
	}
	return bill, items, nil
}

func billNumberConflict(billNumber string, err error) error {
	if err == nil {
		return nil
	}
	return storeErr(fmt.Sprintf("purchase bill number %q", billNumber), err)
}

// CreatePurchaseBill persists a draft bill and its items as a saga.
// A request for status "recorded" is saved as draft first and then goes
// through RecordPurchaseBill, so stock only ever moves on that path.
func (e *Engine) CreatePurchaseBill(ctx context.Context, input *models.NewPurchaseBill) (result *models.PurchaseBill, err error) {
	ctx, span, tenantId, err := e.begin(ctx, "CreatePurchaseBill")
	if err != nil {
		return nil, err
	}
	defer func() { endSpan(span, err) }()

	bill, items, err := e.composePurchaseBill(ctx, tenantId, input)
	if err != nil {
		return nil, err
	}

	steps := []sagaStep{
		{
			name: "insert bill",
			do: func(ctx context.Context) error {
				return billNumberConflict(bill.BillNumber, e.store.CreatePurchaseBill(ctx, bill))
			},
			undo: func(ctx context.Context) error {
				if err := e.store.DeletePurchaseBillItems(ctx, tenantId, bill.ID); err != nil {
					return err
				}
				return e.store.DeleteDraftPurchaseBill(ctx, tenantId, bill.ID)
			},
		},
		{
			name: "insert items",
			do: func(ctx context.Context) error {
				for _, item := range items {
					item.BillId = bill.ID
				}
				return storeErr("purchase bill item", e.store.CreatePurchaseBillItems(ctx, items))
			},
		},
	}
	if err := e.runSaga(ctx, "CreatePurchaseBill", steps); err != nil {
		return nil, err
	}

	if input.Status == models.BillStatusRecorded {
		recorded, err := e.recordPurchaseBill(ctx, tenantId, bill.ID)
		if err != nil {
			config.LogError(e.logger, "BillWorkflow.go", "CreatePurchaseBill", "recordPurchaseBill", bill.ID, err)
			return nil, e.discardUnrecordedBill(ctx, bill.ID, steps, err)
		}
		return recorded, nil
	}

	for _, item := range items {
		bill.Items = append(bill.Items, *item)
	}
	return bill, nil
}

// UpdatePurchaseBill replaces header and items of a draft bill. The new total
// may not drop below what has already been paid.
func (e *Engine) UpdatePurchaseBill(ctx context.Context, id int, input *models.NewPurchaseBill) (result *models.PurchaseBill, err error) {
	ctx, span, tenantId, err := e.begin(ctx, "UpdatePurchaseBill")
	if err != nil {
		return nil, err
	}
	defer func() { endSpan(span, err) }()

	err = e.withLock(ctx, billLockKey(tenantId, id), func() error {
		old, err := e.store.GetPurchaseBill(ctx, tenantId, id)
		if err != nil {
			return storeErr("purchase bill", err)
		}
		if old.Status != models.BillStatusDraft {
			return utils.ConflictError("only draft purchase bills can be edited")
		}

		bill, items, err := e.composePurchaseBill(ctx, tenantId, input)
		if err != nil {
			return err
		}
		if bill.Total.LessThan(old.AmountPaid) {
			return utils.ConflictError("bill total %s is below the amount already paid %s", bill.Total.StringFixed(2), old.AmountPaid.StringFixed(2))
		}
		bill.ID = old.ID
		bill.AmountPaid = old.AmountPaid
		for _, item := range items {
			item.BillId = id
		}
		oldItems := make([]*models.PurchaseBillItem, 0, len(old.Items))
		for _, item := range old.Items {
			oldItems = append(oldItems, &item)
		}

		err = e.runSaga(ctx, "UpdatePurchaseBill", []sagaStep{
			{
				name: "update header",
				do: func(ctx context.Context) error {
					err := e.store.UpdateDraftPurchaseBill(ctx, bill)
					if errors.Is(err, models.ErrConcurrentUpdate) {
						return utils.ConflictError("only draft purchase bills can be edited")
					}
					return billNumberConflict(bill.BillNumber, err)
				},
				undo: func(ctx context.Context) error {
					return e.store.UpdateDraftPurchaseBill(ctx, old)
				},
			},
			{
				name: "delete old items",
				do: func(ctx context.Context) error {
					return storeErr("purchase bill item", e.store.DeletePurchaseBillItems(ctx, tenantId, id))
				},
				undo: func(ctx context.Context) error {
					if err := e.store.DeletePurchaseBillItems(ctx, tenantId, id); err != nil {
						return err
					}
					return e.store.CreatePurchaseBillItems(ctx, oldItems)
				},
			},
			{
				name: "insert new items",
				do: func(ctx context.Context) error {
					return storeErr("purchase bill item", e.store.CreatePurchaseBillItems(ctx, items))
				},
				undo: func(ctx context.Context) error {
					return e.store.DeletePurchaseBillItems(ctx, tenantId, id)
				},
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if input.Status == models.BillStatusRecorded {
		recorded, err := e.recordPurchaseBill(ctx, tenantId, id)
		if err != nil {
			config.LogError(e.logger, "BillWorkflow.go", "UpdatePurchaseBill", "recordPurchaseBill", id, err)
			return nil, utils.PartialFailureError(fmt.Sprintf("purchase bill %d was updated but not recorded", id), err, nil)
		}
		return recorded, nil
	}
	return e.getPurchaseBill(ctx, tenantId, id)
}

// discardUnrecordedBill undoes the insert of a bill whose recording failed in
// the same call. Once stock has moved the draft is kept and named instead.
func (e *Engine) discardUnrecordedBill(ctx context.Context, id int, inserted []sagaStep, cause error) error {
	if utils.IsKind(cause, utils.KindPartialFailure) {
		return utils.PartialFailureError(fmt.Sprintf("purchase bill %d was saved as draft but not recorded", id), cause, nil)
	}
	if compErr := e.compensate(ctx, "CreatePurchaseBill", inserted); compErr != nil {
		return utils.PartialFailureError(fmt.Sprintf("purchase bill %d was saved as draft but not recorded", id), cause, compErr)
	}
	return cause
}

// DeletePurchaseBill removes a draft bill that has no payments.
func (e *Engine) DeletePurchaseBill(ctx context.Context, id int) (err error) {
	ctx, span, tenantId, err := e.begin(ctx, "DeletePurchaseBill")
	if err != nil {
		return err
	}
	defer func() { endSpan(span, err) }()

	return e.withLock(ctx, billLockKey(tenantId, id), func() error {
		bill, err := e.store.GetPurchaseBill(ctx, tenantId, id)
		if err != nil {
			return storeErr("purchase bill", err)
		}
		if bill.Status != models.BillStatusDraft {
			return utils.ConflictError("only draft purchase bills can be deleted")
		}
		count, err := e.store.CountBillPayments(ctx, tenantId, id)
		if err != nil {
			return storeErr("purchase bill payment", err)
		}
		if count > 0 {
			return utils.ConflictError("purchase bill with payments cannot be deleted")
		}

		oldItems := make([]*models.PurchaseBillItem, 0, len(bill.Items))
		for _, item := range bill.Items {
			oldItems = append(oldItems, &item)
		}
		return e.runSaga(ctx, "DeletePurchaseBill", []sagaStep{
			{
				name: "delete items",
				do: func(ctx context.Context) error {
					return storeErr("purchase bill item", e.store.DeletePurchaseBillItems(ctx, tenantId, id))
				},
				undo: func(ctx context.Context) error {
					return e.store.CreatePurchaseBillItems(ctx, oldItems)
				},
			},
			{
				name: "delete bill",
				do: func(ctx context.Context) error {
					err := e.store.DeleteDraftPurchaseBill(ctx, tenantId, id)
					if errors.Is(err, models.ErrConcurrentUpdate) {
						return utils.ConflictError("only draft purchase bills can be deleted")
					}
					return storeErr("purchase bill", err)
				},
			},
		})
	})
}

func (e *Engine) getPurchaseBill(ctx context.Context, tenantId string, id int) (*models.PurchaseBill, error) {
	bill, err := e.store.GetPurchaseBill(ctx, tenantId, id)
	if err != nil {
		return nil, storeErr("purchase bill", err)
	}
	return bill, nil
}

func (e *Engine) GetPurchaseBill(ctx context.Context, id int) (result *models.PurchaseBill, err error) {
	ctx, span, tenantId, err := e.begin(ctx, "GetPurchaseBill")
	if err != nil {
		return nil, err
	}
	defer func() { endSpan(span, err) }()

	return e.getPurchaseBill(ctx, tenantId, id)
}

func (e *Engine) ListPurchaseBills(ctx context.Context, filter models.PurchaseBillFilter) (result []*models.PurchaseBill, err error) {
	ctx, span, tenantId, err := e.begin(ctx, "ListPurchaseBills")
	if err != nil {
		return nil, err
	}
	defer func() { endSpan(span, err) }()

	for _, status := range filter.Statuses {
		if !status.IsValid() {
			return nil, utils.ValidationError("invalid purchase bill status %q", status)
		}
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, utils.ValidationError("from date must not be after to date")
	}
	page := models.Pagination{Limit: filter.Limit, Offset: filter.Offset}.Normalize()
	filter.Limit, filter.Offset = page.Limit, page.Offset

	bills, err := e.store.ListPurchaseBills(ctx, tenantId, filter)
	if err != nil {
		return nil, storeErr("purchase bill", err)
	}
	return bills, nil
}

package workflow

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/billing_backend/config"
	"github.com/mmdatafocus/billing_backend/models"
	"github.com/mmdatafocus/billing_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// StockMovement is the per-product receipt of one recorded bill.
type StockMovement struct {
	ProductId     int
	Qty           decimal.Decimal
	PurchasePrice decimal.Decimal
}

// AggregateBillItems groups items by product in first-appearance order.
// Quantities are summed; the purchase price is the one on the last item for
// that product, not an average.
func AggregateBillItems(items []models.PurchaseBillItem) []StockMovement {
	index := map[int]int{}
	var movements []StockMovement
	for _, item := range items {
		i, ok := index[item.ProductId]
		if !ok {
			index[item.ProductId] = len(movements)
			movements = append(movements, StockMovement{
				ProductId:     item.ProductId,
				Qty:           item.Quantity,
				PurchasePrice: item.PurchasePrice,
			})
			continue
		}
		movements[i].Qty = movements[i].Qty.Add(item.Quantity)
		movements[i].PurchasePrice = item.PurchasePrice
	}
	return movements
}

// RecordPurchaseBill moves a draft bill to recorded and receives its items into stock.
func (e *Engine) RecordPurchaseBill(ctx context.Context, id int) (result *models.PurchaseBill, err error) {
	ctx, span, tenantId, err := e.begin(ctx, "RecordPurchaseBill")
	if err != nil {
		return nil, err
	}
	defer func() { endSpan(span, err) }()

	return e.recordPurchaseBill(ctx, tenantId, id)
}

// recordPurchaseBill applies each product's movement under its own stock lock
// with a conditional write, then flips the bill status. Product updates are
// not rolled back: a failure after some products moved is a partial failure
// naming them, left for manual reconciliation.
func (e *Engine) recordPurchaseBill(ctx context.Context, tenantId string, id int) (*models.PurchaseBill, error) {
	err := e.withLock(ctx, billLockKey(tenantId, id), func() error {
		bill, err := e.store.GetPurchaseBill(ctx, tenantId, id)
		if err != nil {
			return storeErr("purchase bill", err)
		}
		if bill.Status != models.BillStatusDraft {
			return utils.ConflictError("purchase bill is already recorded")
		}
		if len(bill.Items) == 0 {
			return utils.ValidationError("purchase bill has no items")
		}

		var mutated []int
		partial := func(step string, cause error) error {
			if len(mutated) == 0 {
				return cause
			}
			e.logger.WithFields(logrus.Fields{
				"module":      "StockProcessing.go",
				"funcName":    "recordPurchaseBill",
				"bill_id":     id,
				"tenant_id":   tenantId,
				"product_ids": mutated,
			}).Error("inventory partially updated: " + cause.Error())
			return utils.PartialFailureError(fmt.Sprintf("%s failed after stock was updated for products %v", step, mutated), cause, nil)
		}

		for _, m := range AggregateBillItems(bill.Items) {
			if err := e.receiveStock(ctx, tenantId, m); err != nil {
				return partial(fmt.Sprintf("stock update for product %d", m.ProductId), err)
			}
			mutated = append(mutated, m.ProductId)
		}

		err = e.store.UpdatePurchaseBillStatus(ctx, tenantId, id, models.BillStatusDraft, models.BillStatusRecorded)
		if err != nil {
			return partial("bill status update", storeErr("purchase bill", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.getPurchaseBill(ctx, tenantId, id)
}

// receiveStock adds the movement to the product under the product stock lock.
func (e *Engine) receiveStock(ctx context.Context, tenantId string, m StockMovement) error {
	return e.withLock(ctx, productStockLockKey(tenantId, m.ProductId), func() error {
		product, err := e.store.GetProduct(ctx, tenantId, m.ProductId)
		if err != nil {
			return storeErr(fmt.Sprintf("product %d", m.ProductId), err)
		}
		newStock := product.StockQty.Add(m.Qty)
		err = e.store.UpdateProductStock(ctx, tenantId, m.ProductId, product.StockQty, newStock, m.PurchasePrice)
		if err != nil {
			config.LogError(e.logger, "StockProcessing.go", "receiveStock", "UpdateProductStock", m, err)
			return storeErr(fmt.Sprintf("product %d stock", m.ProductId), err)
		}
		return nil
	})
}

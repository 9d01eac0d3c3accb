package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/mmdatafocus/billing_backend/models"
	"github.com/mmdatafocus/billing_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSagaUndoesCommittedStepsInReverse(t *testing.T) {
	e := NewEngine(models.NewMemoryStore(), utils.NewLocalLocker(0), quietLogger())
	var log []string
	step := func(name string, fail bool) sagaStep {
		return sagaStep{
			name: name,
			do: func(ctx context.Context) error {
				log = append(log, "do "+name)
				if fail {
					return errInjected
				}
				return nil
			},
			undo: func(ctx context.Context) error {
				log = append(log, "undo "+name)
				return nil
			},
		}
	}
	noUndo := step("b", false)
	noUndo.undo = nil

	err := e.runSaga(context.Background(), "test", []sagaStep{step("a", false), noUndo, step("c", false), step("d", true), step("e", false)})
	assert.ErrorIs(t, err, errInjected)
	assert.Equal(t, []string{"do a", "do b", "do c", "do d", "undo c", "undo a"}, log)
}

func TestRunSagaCompensatesAfterCancellation(t *testing.T) {
	e := NewEngine(models.NewMemoryStore(), utils.NewLocalLocker(0), quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	undone := false

	err := e.runSaga(ctx, "test", []sagaStep{
		{
			name: "write",
			do:   func(ctx context.Context) error { return nil },
			undo: func(ctx context.Context) error {
				undone = ctx.Err() == nil
				return nil
			},
		},
		{
			name: "cancelled",
			do: func(ctx context.Context) error {
				cancel()
				return ctx.Err()
			},
		},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, undone, "undo must run with a live context")
}

func TestRunSagaFailedUndoIsPartialFailure(t *testing.T) {
	e := NewEngine(models.NewMemoryStore(), utils.NewLocalLocker(0), quietLogger())
	undoErr := errors.New("undo failed")

	err := e.runSaga(context.Background(), "test", []sagaStep{
		{name: "a", do: func(ctx context.Context) error { return nil }, undo: func(ctx context.Context) error { return undoErr }},
		{name: "b", do: func(ctx context.Context) error { return errInjected }},
	})
	assert.True(t, utils.IsKind(err, utils.KindPartialFailure))
	assert.ErrorIs(t, err, errInjected)
	assert.ErrorIs(t, err, undoErr)

	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.ErrorIs(t, appErr.Compensation, undoErr)
}

func TestInvoiceItemFailureRollsBackInvoice(t *testing.T) {
	var faulty *faultyStore
	f := newFixtureWith(t, func(m *models.MemoryStore) models.Store {
		faulty = newFaultyStore(m)
		return faulty
	})
	faulty.failFrom("CreateSalesInvoiceItems", 0)

	_, err := f.engine.CreateSalesInvoice(f.ctx, &models.NewSalesInvoice{
		CustomerId:  f.customer.ID,
		InvoiceDate: "2024-05-02",
		Items:       []models.NewSalesInvoiceItem{{ProductId: intPtr(f.pen.ID), Quantity: dec("1")}},
	})
	assert.True(t, utils.IsKind(err, utils.KindStore), "got %v", err)
	assert.ErrorIs(t, err, errInjected)

	invoices, err := f.memory.ListSalesInvoices(f.ctx, f.tenant.ID, models.SalesInvoiceFilter{})
	require.NoError(t, err)
	assert.Empty(t, invoices)

	faulty.heal()
	assert.Equal(t, "INV-0001", f.invoiceOf(t, f.pen, "1").InvoiceNumber, "the number was not consumed")
}

func TestCounterFailureRollsBackInvoiceAndItems(t *testing.T) {
	var faulty *faultyStore
	f := newFixtureWith(t, func(m *models.MemoryStore) models.Store {
		faulty = newFaultyStore(m)
		return faulty
	})
	faulty.failFrom("AdvanceInvoiceCounter", 0)

	_, err := f.engine.CreateSalesInvoice(f.ctx, &models.NewSalesInvoice{
		CustomerId:  f.customer.ID,
		InvoiceDate: "2024-05-02",
		Items:       []models.NewSalesInvoiceItem{{ProductId: intPtr(f.pen.ID), Quantity: dec("1")}},
	})
	assert.ErrorIs(t, err, errInjected)

	invoices, err := f.memory.ListSalesInvoices(f.ctx, f.tenant.ID, models.SalesInvoiceFilter{})
	require.NoError(t, err)
	assert.Empty(t, invoices)
}

func TestInvoiceRollbackFailureIsPartial(t *testing.T) {
	var faulty *faultyStore
	f := newFixtureWith(t, func(m *models.MemoryStore) models.Store {
		faulty = newFaultyStore(m)
		return faulty
	})
	faulty.failFrom("CreateSalesInvoiceItems", 0)
	faulty.failFrom("DeleteSalesInvoice", 0)

	_, err := f.engine.CreateSalesInvoice(f.ctx, &models.NewSalesInvoice{
		CustomerId:  f.customer.ID,
		InvoiceDate: "2024-05-02",
		Items:       []models.NewSalesInvoiceItem{{ProductId: intPtr(f.pen.ID), Quantity: dec("1")}},
	})
	assert.True(t, utils.IsKind(err, utils.KindPartialFailure), "got %v", err)
	assert.ErrorIs(t, err, errInjected)
	assert.Contains(t, err.Error(), "could not be rolled back")
}

func TestBillItemFailureRollsBackBill(t *testing.T) {
	var faulty *faultyStore
	f := newFixtureWith(t, func(m *models.MemoryStore) models.Store {
		faulty = newFaultyStore(m)
		return faulty
	})
	faulty.failFrom("CreatePurchaseBillItems", 0)

	_, err := f.engine.CreatePurchaseBill(f.ctx, &models.NewPurchaseBill{
		SupplierId: f.supplier.ID,
		BillNumber: "PM-1",
		BillDate:   "2024-05-03",
		Items:      f.mixedBillItems(),
	})
	assert.ErrorIs(t, err, errInjected)

	bills, err := f.memory.ListPurchaseBills(f.ctx, f.tenant.ID, models.PurchaseBillFilter{})
	require.NoError(t, err)
	assert.Empty(t, bills)

	faulty.heal()
	f.billOf(t, "PM-1", f.mixedBillItems()...)
}

package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/billing_backend/config"
	"github.com/mmdatafocus/billing_backend/models"
	"github.com/mmdatafocus/billing_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("billing-workflow")

// Engine runs every write path of the ledger: invoice and bill composition,
// numbering, payments and inventory recording.
// Read-decide-write sequences run under a Locker key and finish with a
// conditional store update, so concurrent writers through the engine cannot
// act on a stale counter, balance or stock value.
type Engine struct {
	store  models.Store
	locker utils.Locker
	logger *logrus.Logger
	now    func() time.Time
}

func NewEngine(store models.Store, locker utils.Locker, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &Engine{
		store:  store,
		locker: locker,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the clock used for default payment dates.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) Store() models.Store {
	return e.store
}

// begin opens a span for the operation and resolves the request tenant.
func (e *Engine) begin(ctx context.Context, name string) (context.Context, trace.Span, string, error) {
	ctx, span := tracer.Start(ctx, name)
	tenantId, err := utils.RequireTenant(ctx)
	if err != nil {
		endSpan(span, err)
		return ctx, nil, "", err
	}
	return ctx, span, tenantId, nil
}

func endSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// withLock runs fn while holding key.
func (e *Engine) withLock(ctx context.Context, key string, fn func() error) error {
	release, err := e.locker.Obtain(ctx, key)
	if err != nil {
		config.LogError(e.logger, "MainWorkflow.go", "withLock", "Obtain", key, err)
		if errors.Is(err, utils.ErrLockNotObtained) {
			return utils.ConflictError("resource is busy, try again")
		}
		return utils.StoreError("could not obtain lock", err)
	}
	defer release()
	return fn()
}

// storeErr classifies a Store error for resource.
func storeErr(resource string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrNotFound):
		return utils.NotFoundError(resource)
	case errors.Is(err, models.ErrDuplicate):
		return utils.ConflictError("%s already exists", resource)
	case errors.Is(err, models.ErrConcurrentUpdate):
		return utils.ConflictError("%s was changed concurrently", resource)
	default:
		return utils.StoreError(resource, err)
	}
}

func invoiceLockKey(tenantId string, invoiceId int) string {
	return utils.LockKey("sales-invoice", tenantId, invoiceId)
}

func billLockKey(tenantId string, billId int) string {
	return utils.LockKey("purchase-bill", tenantId, billId)
}

func productStockLockKey(tenantId string, productId int) string {
	return utils.LockKey("product-stock", tenantId, productId)
}

func invoiceNumberLockKey(tenantId string) string {
	return utils.LockKey("invoice-number", tenantId)
}

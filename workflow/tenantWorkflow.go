package workflow

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/mmdatafocus/billing_backend/models"
	"github.com/mmdatafocus/billing_backend/utils"
	"github.com/shopspring/decimal"
)

const (
	defaultCurrencyCode  = "INR"
	defaultInvoicePrefix = "INV-"
)

var decimalHundred = decimal.NewFromInt(100)

// CreateTenant onboards a shop. It runs before any tenant exists in the
// context, so it is not tenant scoped.
func (e *Engine) CreateTenant(ctx context.Context, input *models.NewTenant) (result *models.Tenant, err error) {
	ctx, span := tracer.Start(ctx, "CreateTenant")
	defer func() { endSpan(span, err) }()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.DefaultTaxPercent != nil && (input.DefaultTaxPercent.IsNegative() || input.DefaultTaxPercent.GreaterThan(decimalHundred)) {
		return nil, utils.ValidationError("default tax percent must be between 0 and 100")
	}

	tenant := &models.Tenant{
		ID:                uuid.New().String(),
		Name:              strings.TrimSpace(input.Name),
		Slug:              strings.ToLower(strings.TrimSpace(input.Slug)),
		CurrencyCode:      strings.ToUpper(input.CurrencyCode),
		CurrencySymbol:    input.CurrencySymbol,
		DefaultTaxPercent: input.DefaultTaxPercent,
		InvoicePrefix:     input.InvoicePrefix,
		InvoiceNextNumber: 1,
		PageSize:          models.DefaultPageSize,
	}
	if tenant.CurrencyCode == "" {
		tenant.CurrencyCode = defaultCurrencyCode
	}
	if tenant.InvoicePrefix == "" {
		tenant.InvoicePrefix = defaultInvoicePrefix
	}
	if err := e.store.CreateTenant(ctx, tenant); err != nil {
		return nil, storeErr("tenant "+tenant.Slug, err)
	}
	e.logger.WithField("tenant_id", tenant.ID).Info("tenant onboarded")
	return tenant, nil
}

// GetTenant returns the tenant of the request.
func (e *Engine) GetTenant(ctx context.Context) (result *models.Tenant, err error) {
	ctx, span, tenantId, err := e.begin(ctx, "GetTenant")
	if err != nil {
		return nil, err
	}
	defer func() { endSpan(span, err) }()

	tenant, err := e.store.GetTenant(ctx, tenantId)
	if err != nil {
		return nil, storeErr("tenant", err)
	}
	return tenant, nil
}

// seed-tenant onboards a shop and prints a bearer token for it.
//
// Usage (from the repository root):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//	  go run ./cmd/seed-tenant --name "Corner Store" --slug corner-store --tax 18 --sample
//
// --sample also creates one customer, one supplier and two products so the
// API can be exercised right away.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mmdatafocus/billing_backend/config"
	"github.com/mmdatafocus/billing_backend/models"
	"github.com/mmdatafocus/billing_backend/utils"
	"github.com/mmdatafocus/billing_backend/workflow"
	"github.com/shopspring/decimal"
)

func main() {
	name := flag.String("name", "", "Required: shop name")
	slug := flag.String("slug", "", "Required: unique shop slug")
	prefix := flag.String("prefix", "", "Invoice number prefix (default INV-)")
	currency := flag.String("currency", "", "ISO currency code (default INR)")
	tax := flag.String("tax", "", "Default tax percent, e.g. 18")
	userId := flag.String("user-id", "", "User id for the token (default: random uuid)")
	sample := flag.Bool("sample", false, "Also create a sample customer, supplier and products")
	flag.Parse()

	if strings.TrimSpace(*name) == "" || strings.TrimSpace(*slug) == "" {
		fmt.Fprintln(os.Stderr, "--name and --slug are required")
		os.Exit(1)
	}

	input := &models.NewTenant{
		Name:          *name,
		Slug:          *slug,
		CurrencyCode:  *currency,
		InvoicePrefix: *prefix,
	}
	if *tax != "" {
		pct, err := utils.ParseDecimal(*tax)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --tax: %v\n", err)
			os.Exit(1)
		}
		input.DefaultTaxPercent = &pct
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized. Set DB_* env vars.")
		os.Exit(1)
	}
	if err := models.Migrate(db); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	logger := config.GetLogger()
	store := models.NewGormStore(db)
	engine := workflow.NewEngine(store, utils.NewLocalLocker(0), logger)

	ctx := utils.SetSkipTenantScopeInContext(context.Background(), true)
	tenant, err := engine.CreateTenant(ctx, input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create tenant: %v\n", err)
		os.Exit(1)
	}

	if *sample {
		ctx = utils.SetTenantIdInContext(context.Background(), tenant.ID)
		if err := seedSample(ctx, store, tenant.ID); err != nil {
			fmt.Fprintf(os.Stderr, "seed sample data: %v\n", err)
			os.Exit(1)
		}
	}

	uid := *userId
	if uid == "" {
		uid = uuid.NewString()
	}
	token, err := utils.JwtGenerate(uid, tenant.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("tenant_id=%s\nslug=%s\ntoken=%s\n", tenant.ID, tenant.Slug, token)
}

func seedSample(ctx context.Context, store models.Store, tenantId string) error {
	if err := store.CreateCustomer(ctx, &models.Customer{TenantId: tenantId, Name: "Walk-in Customer"}); err != nil {
		return err
	}
	if err := store.CreateSupplier(ctx, &models.Supplier{TenantId: tenantId, Name: "Default Supplier"}); err != nil {
		return err
	}
	products := []*models.Product{
		{TenantId: tenantId, Name: "Rice 5kg", UnitPrice: decimal.NewFromInt(350), HsnCode: "1006"},
		{TenantId: tenantId, Name: "Sugar 1kg", UnitPrice: decimal.NewFromInt(48), HsnCode: "1701"},
	}
	for _, p := range products {
		if err := store.CreateProduct(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

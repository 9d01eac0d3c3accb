// reconcile-payments re-derives amount paid (and invoice status) for every
// invoice and purchase bill of one tenant from its payment rows.
//
// Run it after a partial failure was reported, or after payments were
// written outside the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/billing_backend/config"
	"github.com/mmdatafocus/billing_backend/models"
	"github.com/mmdatafocus/billing_backend/utils"
	"github.com/mmdatafocus/billing_backend/workflow"
	"github.com/sirupsen/logrus"
)

func main() {
	tenantId := flag.String("tenant-id", "", "Required: tenant id (uuid)")
	dryRun := flag.Bool("dry-run", false, "If true, only list documents whose stored amount paid differs")
	flag.Parse()

	if strings.TrimSpace(*tenantId) == "" {
		fmt.Fprintln(os.Stderr, "--tenant-id is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	config.ConnectRedisWithRetry(ctx)

	logger := config.GetLogger()
	store := models.NewGormStore(db)
	engine := workflow.NewEngine(store, utils.NewRedisLockerFromEnv(), logger)
	ctx = utils.SetTenantIdInContext(ctx, *tenantId)

	report, err := engine.ReconcilePayments(ctx, *dryRun)
	if err != nil {
		logger.WithFields(logrus.Fields{"tenant_id": *tenantId}).Error(err.Error())
		os.Exit(1)
	}
	fmt.Printf("invoices checked=%d drifted=%d\n", report.InvoicesChecked, len(report.DriftedInvoices))
	fmt.Printf("bills checked=%d drifted=%d\n", report.BillsChecked, len(report.DriftedBills))
	for _, id := range report.DriftedInvoices {
		fmt.Printf("invoice %d\n", id)
	}
	for _, id := range report.DriftedBills {
		fmt.Printf("bill %d\n", id)
	}
}

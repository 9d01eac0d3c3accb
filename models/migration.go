package models

import (
	"log"

	"github.com/mmdatafocus/billing_backend/config"
	"gorm.io/gorm"
)

func MigrateTable() {
	if err := Migrate(config.GetDB()); err != nil {
		log.Fatal(err)
	}
}

// Migrate creates or alters every table the billing engine uses.
// Cost columns on invoice items are part of the schema, not optional.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Tenant{},
		&Customer{}, &Supplier{}, &Product{},
		&SalesInvoice{}, &SalesInvoiceItem{}, &InvoicePayment{},
		&PurchaseBill{}, &PurchaseBillItem{}, &BillPayment{},
	)
}

// migrate runs AutoMigrate for every billing table and exits.
// Use it when the API runs with SKIP_MIGRATIONS=true.
package main

import (
	"log"

	"github.com/mmdatafocus/billing_backend/config"
	"github.com/mmdatafocus/billing_backend/models"
)

func main() {
	config.ConnectDatabaseWithRetry()
	models.MigrateTable()
	log.Println("migrations applied")
}

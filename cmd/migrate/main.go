// cmd/migrate/main.go
package main

import (
	"fmt"
	"os"

	"github.com/FreakyLetsFail/NKalendar/internal/common/config"
	"github.com/FreakyLetsFail/NKalendar/internal/common/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "[ERROR]", err)
		os.Exit(1)
	}

	sourceDir := "migrations"
	if len(os.Args) > 1 {
		sourceDir = os.Args[1]
	}

	if err := database.Migrate(sourceDir, cfg.Database.Postgres.MigrateURL()); err != nil {
		fmt.Fprintln(os.Stderr, "[ERROR]", err)
		os.Exit(1)
	}
	fmt.Println("migrations applied")
}

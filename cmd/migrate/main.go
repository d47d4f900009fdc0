// migrate applies the embedded SQL migrations: go run ./cmd/migrate [-direction=down]
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/echofeed/echofeed/internal/config"
	"github.com/echofeed/echofeed/internal/database"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if err := database.Migrate(cfg.DatabaseURL, *direction); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

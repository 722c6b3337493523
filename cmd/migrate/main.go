// migrate applies the embedded schema migrations: go run ./cmd/migrate [-direction down]
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"identity-plane/internal/config"
	"identity-plane/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	err = migrate.Run(cfg.DatabaseURL, *direction)
	switch {
	case err == nil:
		fmt.Println("migrate: done")
	case errors.Is(err, migrate.ErrNoChange):
		fmt.Println("migrate: already at target version")
	default:
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

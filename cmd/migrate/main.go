// Command migrate applies or rolls back the embedded schema migrations.
//
//	migrate -direction up
//	migrate -direction down
package main

import (
	"flag"
	"fmt"
	"os"

	"cpfregistry/internal/platform/config"
	"cpfregistry/internal/platform/logger"
	"cpfregistry/internal/platform/postgres/migrate"
)

func main() {
	direction := flag.String("direction", migrate.DirectionUp, "migration direction: up or down")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	if err := migrate.Run(cfg.Database.URL, *direction); err != nil {
		log.Error("migration failed", "direction", *direction, "error", err)
		os.Exit(1)
	}

	version, dirty, err := migrate.Version(cfg.Database.URL)
	if err != nil {
		log.Error("failed to read schema version", "error", err)
		os.Exit(1)
	}
	log.Info("migrations complete", "direction", *direction, "version", version, "dirty", dirty)
}

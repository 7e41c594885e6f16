// migrate applies the embedded SQL migrations: go run ./cmd/migrate [-direction up|down].
// Config is loaded as for the server, so ADMIN_TOKEN must be set even though it is unused here.
package main

import (
	"flag"
	"fmt"
	"os"

	"creator-access-gate/internal/config"
	"creator-access-gate/internal/db/migrate"
	"creator-access-gate/internal/logging"
)

func main() {
	direction := flag.String("direction", migrate.DirectionUp, "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.IsProduction())
	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set; create a .env or export DATABASE_URL")
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		logger.Fatal().Err(err).Str("direction", *direction).Msg("migrate failed")
	}
	logger.Info().Str("direction", *direction).Msg("migrations at target version")
}

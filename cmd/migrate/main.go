// Command migrate applies the embedded Postgres schema migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/infra/postgres"
	"github.com/dvloznov/finance-ledger/internal/logger"
)

var (
	dsn       = flag.String("dsn", "", "Postgres connection string (defaults to $DATABASE_URL)")
	direction = flag.String("direction", "up", "migration direction: up or down")
	timeout   = flag.Duration("timeout", 2*time.Minute, "overall deadline")
)

func main() {
	flag.Parse()
	log := logger.New()

	dir, err := parseDirection(*direction)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid flags")
	}
	url := resolveDSN(*dsn, os.Getenv)
	if url == "" {
		log.Fatal().Msgf("Error: -dsn or %s is required", config.EnvDatabaseURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	log.Info().Str("direction", string(dir)).Msg("Running migrations")
	if err := postgres.Migrate(ctx, url, dir); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

func parseDirection(s string) (postgres.Direction, error) {
	switch postgres.Direction(s) {
	case postgres.Up, postgres.Down:
		return postgres.Direction(s), nil
	}
	return "", fmt.Errorf("unknown direction %q, want up or down", s)
}

func resolveDSN(flagValue string, getenv func(string) string) string {
	if flagValue != "" {
		return flagValue
	}
	return getenv(config.EnvDatabaseURL)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-ledger/internal/config"
	infraBQ "github.com/dvloznov/finance-ledger/internal/infra/bigquery"
	"github.com/dvloznov/finance-ledger/internal/infra/postgres"
	"github.com/dvloznov/finance-ledger/internal/infra/redis"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/dvloznov/finance-ledger/internal/memstore"
)

// Flags shared by every subcommand. They override the environment.
var (
	dsnFlag      = flag.String("dsn", "", "Postgres connection string (defaults to $DATABASE_URL)")
	redisFlag    = flag.String("redis", "", "Redis address for the fingerprint cache (defaults to $REDIS_ADDR)")
	logLevelFlag = flag.String("log-level", "", "log level (defaults to $LEDGER_LOG_LEVEL)")
	userFlag     = flag.String("user", os.Getenv("LEDGER_USER_ID"), "acting user ID")
)

// app holds the wired collaborators for one CLI invocation.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	store    ledger.Store
	svc      *ledger.Service
	exporter *infraBQ.Exporter
	closers  []func()
}

// openApp loads configuration and wires the store, cache and exporter.
func openApp(ctx context.Context) (context.Context, *app, error) {
	cfg, err := config.Load()
	if err != nil {
		return ctx, nil, err
	}
	cfg = applyFlags(cfg, *dsnFlag, *redisFlag, *logLevelFlag)
	if err := cfg.Validate(); err != nil {
		return ctx, nil, err
	}

	log, err := logger.NewWithLevel(cfg.LogLevel)
	if err != nil {
		return ctx, nil, fmt.Errorf("openApp: %w", err)
	}
	ctx = logger.WithContext(ctx, log)
	a := &app{cfg: cfg, log: log}

	if cfg.DatabaseURL == "" {
		log.Warn().Msg("No database configured, using an in-memory store that is discarded on exit")
		a.store = memstore.New()
	} else {
		store, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return ctx, nil, err
		}
		a.store = store
		a.closers = append(a.closers, store.Close)
	}

	opts := []ledger.ServiceOption{ledger.WithPageSizes(cfg.DefaultPageSize, cfg.MaxPageSize)}

	if cfg.RedisAddr != "" {
		client, err := redis.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			a.close()
			return ctx, nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		opts = append(opts, ledger.WithFingerprintCache(redis.NewFingerprintCache(client, cfg.FingerprintTTL)))
		log.Debug().Str("addr", cfg.RedisAddr).Msg("Fingerprint cache enabled")
	}

	if cfg.ExportEnabled() {
		exporter, err := infraBQ.NewExporter(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			a.close()
			return ctx, nil, err
		}
		a.exporter = exporter
		a.closers = append(a.closers, func() { _ = exporter.Close() })
		opts = append(opts, ledger.WithExporter(exporter))
	}

	a.svc = ledger.NewService(a.store, opts...)
	return ctx, a, nil
}

func applyFlags(cfg config.Config, dsn, redisAddr, logLevel string) config.Config {
	if dsn != "" {
		cfg.DatabaseURL = dsn
	}
	if redisAddr != "" {
		cfg.RedisAddr = redisAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// run opens the app, resolves the acting user and calls fn.
func run(ctx context.Context, fn func(ctx context.Context, a *app, userID uuid.UUID) error) subcommands.ExitStatus {
	userID, err := parseID("user", *userFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	ctx, a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	if err := fn(ctx, a, userID); err != nil {
		return a.fail(err)
	}
	return subcommands.ExitSuccess
}

// fail logs err and maps caller mistakes to a usage exit.
func (a *app) fail(err error) subcommands.ExitStatus {
	a.log.Error().Err(err).Msg("Command failed")
	if errors.Is(err, ledger.ErrValidation) || errors.Is(err, errUsage) {
		return subcommands.ExitUsageError
	}
	return subcommands.ExitFailure
}

var errUsage = errors.New("usage")

func parseID(name, value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, fmt.Errorf("%w: -%s is required", errUsage, name)
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: -%s: %v", errUsage, name, err)
	}
	return id, nil
}

func parseOptionalID(name, value string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := parseID(name, value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dvloznov/finance-ledger/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Direction selects which way Migrate moves the schema.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Migrate applies (or reverts) the embedded migrations against dsn. Running it
// on an up-to-date schema is a no-op.
func Migrate(ctx context.Context, dsn string, dir Direction) error {
	log := logger.FromContext(ctx)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("Migrate: opening database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("Migrate: pinging database: %w", err)
	}

	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	switch dir {
	case Up:
		err = m.Up()
	case Down:
		err = m.Down()
	default:
		return fmt.Errorf("Migrate: unknown direction %q", dir)
	}

	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Str("direction", string(dir)).Msg("No migrations to apply")
			return nil
		}
		var dirtyErr migrate.ErrDirty
		if errors.As(err, &dirtyErr) {
			return fmt.Errorf("Migrate: dirty database version %d", dirtyErr.Version)
		}
		return fmt.Errorf("Migrate: %s: %w", dir, err)
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return fmt.Errorf("Migrate: reading version: %w", verr)
	}
	log.Info().
		Str("direction", string(dir)).
		Uint("version", version).
		Bool("dirty", dirty).
		Msg("Migrations applied")
	return nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("Migrate: loading embedded migrations: %w", err)
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{
		MultiStatementEnabled: true,
		SchemaName:            "public",
	})
	if err != nil {
		return nil, fmt.Errorf("Migrate: creating postgres driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("Migrate: creating migrator: %w", err)
	}
	return m, nil
}

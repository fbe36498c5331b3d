package migration

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// SchemaTable records the applied fee schema version
const SchemaTable = "fee_schema_migrations"

// Migrator applies the fee schema from a migrations directory
type Migrator struct {
	m   *migrate.Migrate
	log *zap.Logger
}

// New creates a Migrator over an open postgres pool. Close releases the pool too.
func New(db *sql.DB, migrationsPath string, log *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: SchemaTable})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations at %s: %w", migrationsPath, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Migrator{m: m, log: log.Named("migration")}, nil
}

// Up applies every pending migration
func (mg *Migrator) Up() error {
	return mg.apply("up", mg.m.Up)
}

// Down rolls the schema back to empty
func (mg *Migrator) Down() error {
	return mg.apply("down", mg.m.Down)
}

// Steps moves n migrations; negative n rolls back
func (mg *Migrator) Steps(n int) error {
	return mg.apply(fmt.Sprintf("step %d", n), func() error { return mg.m.Steps(n) })
}

func (mg *Migrator) apply(op string, fn func() error) error {
	mg.log.Info("Applying migrations", zap.String("op", op))
	if err := fn(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			mg.log.Info("Schema already current", zap.String("op", op))
			return nil
		}
		return fmt.Errorf("migration %s failed: %w", op, err)
	}
	version, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	mg.log.Info("Schema migrated", zap.String("op", op), zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Version returns the applied version, 0 for an empty schema
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, dirty, nil
}

// Force records version as applied without running anything, clearing a dirty flag
func (mg *Migrator) Force(version int) error {
	mg.log.Warn("Forcing schema version", zap.Int("version", version))
	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("failed to force schema version %d: %w", version, err)
	}
	return nil
}

// Close releases the migration source and the database pool
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

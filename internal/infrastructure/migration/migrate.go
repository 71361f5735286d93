// Package migration applies and authors the SQL schema migrations.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// MigrationsTable is where golang-migrate records the applied version
const MigrationsTable = "connector_schema_migrations"

// Migrator runs one migration set against one database
type Migrator struct {
	m   *migrate.Migrate
	log *zap.Logger
}

// Status is the applied version. Version 0 means nothing was applied.
type Status struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

// New reads the migration set from fsys, either migrations.FS or
// os.DirFS of a checkout.
func New(db *sql.DB, fsys fs.FS, log *zap.Logger) (*Migrator, error) {
	src, err := iofs.New(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	drv, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		return nil, fmt.Errorf("open postgres driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", drv)
	if err != nil {
		return nil, fmt.Errorf("init migrate: %w", err)
	}
	return &Migrator{m: m, log: log.Named("migration")}, nil
}

func (m *Migrator) Up() error { return m.apply("up", m.m.Up) }

func (m *Migrator) Down() error { return m.apply("down", m.m.Down) }

// Steps moves n versions, downwards when n is negative
func (m *Migrator) Steps(n int) error {
	return m.apply(fmt.Sprintf("step %d", n), func() error { return m.m.Steps(n) })
}

func (m *Migrator) GoTo(version uint) error {
	return m.apply(fmt.Sprintf("goto %d", version), func() error { return m.m.Migrate(version) })
}

// apply treats "nothing to do" as success and logs the resulting version
func (m *Migrator) apply(cmd string, fn func() error) error {
	m.log.Info("Applying migrations", zap.String("command", cmd))
	switch err := fn(); {
	case errors.Is(err, migrate.ErrNoChange):
		m.log.Info("Schema already current", zap.String("command", cmd))
		return nil
	case err != nil:
		return fmt.Errorf("migrate %s: %w", cmd, err)
	}

	st, err := m.Status()
	if err != nil {
		return err
	}
	m.log.Info("Migrations applied",
		zap.String("command", cmd),
		zap.Uint("version", st.Version),
		zap.Bool("dirty", st.Dirty),
	)
	return nil
}

func (m *Migrator) Status() (Status, error) {
	v, dirty, err := m.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return Status{}, nil
	case err != nil:
		return Status{}, fmt.Errorf("read schema version: %w", err)
	}
	return Status{Version: v, Dirty: dirty}, nil
}

// Force records version as applied and clears the dirty flag without running
// anything. Use it after repairing a failed migration by hand.
func (m *Migrator) Force(version int) error {
	m.log.Warn("Forcing schema version", zap.Int("version", version))
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Close also closes the *sql.DB given to New
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}

// Package migrate owns the Postgres schema. SQL files live in migrations/ and
// are embedded into every binary, so the api and cron-worker can apply them
// without shipping the directory.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/rentalz-backend/pkg/config"
	"github.com/angelmondragon/rentalz-backend/pkg/db"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
)

// SourceDir is where new migrations are scaffolded, relative to the repo root.
const SourceDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded returns the compiled-in migration set rooted at its directory.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(fmt.Sprintf("migrate: embedded migrations missing: %v", err))
	}
	return sub
}

// Migrator applies a migration set to one database.
type Migrator struct {
	provider *goose.Provider
}

// New builds a Migrator over fsys. Pass Embedded() outside of local tooling.
func New(sqlDB *sql.DB, fsys fs.FS) (*Migrator, error) {
	if sqlDB == nil {
		return nil, errors.New("migrate: sql db is required")
	}
	if fsys == nil {
		return nil, errors.New("migrate: migration source is required")
	}
	p, err := goose.NewProvider(goose.DialectPostgres, sqlDB, fsys)
	if err != nil {
		return nil, fmt.Errorf("migrate: goose provider: %w", err)
	}
	return &Migrator{provider: p}, nil
}

// Up applies every pending migration and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return len(results), fmt.Errorf("migrate up: %w", err)
	}
	return len(results), nil
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) error {
	if _, err := m.provider.Down(ctx); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Version reports the highest applied version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	v, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("migrate version: %w", err)
	}
	return v, nil
}

// MigrationState is one row of Status output.
type MigrationState struct {
	Version int64
	File    string
	Applied bool
}

func (m *Migrator) Status(ctx context.Context) ([]MigrationState, error) {
	rows, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate status: %w", err)
	}
	out := make([]MigrationState, 0, len(rows))
	for _, row := range rows {
		out = append(out, MigrationState{
			Version: row.Source.Version,
			File:    row.Source.Path,
			Applied: row.State == goose.StateApplied,
		})
	}
	return out, nil
}

// To moves the schema up or down until target is the applied version.
func (m *Migrator) To(ctx context.Context, target int64) error {
	current, err := m.Version(ctx)
	if err != nil {
		return err
	}
	switch {
	case target > current:
		_, err = m.provider.UpTo(ctx, target)
	case target < current:
		_, err = m.provider.DownTo(ctx, target)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate to %d: %w", target, err)
	}
	return nil
}

// ApplyOnBoot runs the embedded migrations when RENTALZ_AUTO_MIGRATE is set in
// a dev environment. Staging and prod migrate through cmd/migrate.
func ApplyOnBoot(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("unwrap sql db: %w", err)
	}
	m, err := New(sqlDB, Embedded())
	if err != nil {
		return err
	}
	applied, err := m.Up(ctx)
	if err != nil {
		return err
	}
	logg.Info(logg.WithFields(ctx, map[string]any{"applied": applied}), "migrate.boot_complete")
	return nil
}

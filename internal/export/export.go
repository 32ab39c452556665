// Package export copies the CSV-backed history into a SQL database for
// reporting. The CSV files stay the system of record; an export can be
// rerun at any time and overwrites what it wrote before.
package export

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/claude/kcalplanner/internal/config"
	"github.com/claude/kcalplanner/internal/models"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Source is the data being exported. *storage.Store satisfies it.
type Source interface {
	AllUsers() []models.User
	AllRecords() []models.WorkoutRecord
}

// Sink is a database the history is written to. Writes are upserts keyed
// by ID, so repeating an export is harmless.
type Sink interface {
	Migrate(ctx context.Context) error
	WriteUsers(ctx context.Context, users []models.User) error
	WriteRecords(ctx context.Context, recs []models.WorkoutRecord) error
	Close() error
}

// Summary counts what an export wrote.
type Summary struct {
	Users   int
	Records int
}

// Open returns the sink selected by cfg.Driver.
func Open(ctx context.Context, cfg config.ExportConfig) (Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	case "postgres":
		return OpenPostgres(ctx, cfg.Database.DSN())
	}
	return nil, fmt.Errorf("unknown export driver %q", cfg.Driver)
}

// Run migrates the sink and writes every user and record from src.
func Run(ctx context.Context, src Source, sink Sink, log *slog.Logger) (Summary, error) {
	if err := sink.Migrate(ctx); err != nil {
		return Summary{}, err
	}

	users := src.AllUsers()
	if err := sink.WriteUsers(ctx, users); err != nil {
		return Summary{}, fmt.Errorf("exporting users: %w", err)
	}
	log.Info("users exported", "count", len(users))

	recs := src.AllRecords()
	if err := sink.WriteRecords(ctx, recs); err != nil {
		return Summary{Users: len(users)}, fmt.Errorf("exporting workout records: %w", err)
	}
	log.Info("workout records exported", "count", len(recs))

	return Summary{Users: len(users), Records: len(recs)}, nil
}

// runMigrations applies the embedded migrations for one dialect to the
// database at url.
func runMigrations(dialect, url string) error {
	src, err := iofs.New(migrationsFS, "migrations/"+dialect)
	if err != nil {
		return fmt.Errorf("loading %s migrations: %w", dialect, err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/kcalplanner/internal/models"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "modernc.org/sqlite"
)

// SQLite writes to a local database file through modernc.org/sqlite.
type SQLite struct {
	path string
	db   *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating export dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// One writer; sqlite serialises anyway.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	return &SQLite{path: path, db: db}, nil
}

func (s *SQLite) Migrate(context.Context) error {
	return runMigrations("sqlite", "sqlite://"+s.path)
}

func (s *SQLite) WriteUsers(ctx context.Context, users []models.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, u := range users {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, name, gender, age, height_cm, weight_kg, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET
			   name = excluded.name, gender = excluded.gender, age = excluded.age,
			   height_cm = excluded.height_cm, weight_kg = excluded.weight_kg,
			   created_at = excluded.created_at`,
			u.ID, u.Name, u.Gender, u.Age, u.HeightCm, u.WeightKg, sqliteTime(u.CreatedAt))
		if err != nil {
			return fmt.Errorf("upserting user %s: %w", u.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) WriteRecords(ctx context.Context, recs []models.WorkoutRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range recs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO workout_records (id, user_id, user_name, workout_day, total_kcal, user_weight_kg, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET
			   user_id = excluded.user_id, user_name = excluded.user_name,
			   workout_day = excluded.workout_day, total_kcal = excluded.total_kcal,
			   user_weight_kg = excluded.user_weight_kg, created_at = excluded.created_at`,
			r.ID, r.UserID, r.UserName, r.WorkoutDay, r.TotalCalories, r.UserWeightKg, sqliteTime(r.CreatedAt))
		if err != nil {
			return fmt.Errorf("upserting record %s: %w", r.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM workout_exercises WHERE record_id = ?`, r.ID); err != nil {
			return fmt.Errorf("clearing exercises of %s: %w", r.ID, err)
		}
		for i, summary := range r.Exercises {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO workout_exercises (record_id, position, summary) VALUES (?, ?, ?)`,
				r.ID, i, summary)
			if err != nil {
				return fmt.Errorf("inserting exercise %d of %s: %w", i, r.ID, err)
			}
		}
	}
	return tx.Commit()
}

// Close closes the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func sqliteTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

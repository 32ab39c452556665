package export

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/claude/kcalplanner/internal/config"
	"github.com/claude/kcalplanner/internal/models"
)

type fakeSource struct {
	users []models.User
	recs  []models.WorkoutRecord
}

func (f fakeSource) AllUsers() []models.User            { return f.users }
func (f fakeSource) AllRecords() []models.WorkoutRecord { return f.recs }

func testSource(t *testing.T) fakeSource {
	t.Helper()
	u, err := models.NewUser(`Ann "A", Jr`, "F", 30, 170, 70)
	if err != nil {
		t.Fatal(err)
	}
	rec := models.NewWorkoutRecord(u.ID, u.Name, "Cardio / Mixed",
		[]string{"Running (moderate): 30 min => 343.00 kcal", "Cycling (moderate): 20 min => 175.00 kcal"}, 518, 70)
	return fakeSource{users: []models.User{u}, recs: []models.WorkoutRecord{rec}}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func count(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

// TestSQLiteExport verifies the schema is created and users, records and
// exercise lines land in their tables.
func TestSQLiteExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "kcal.db")
	sink, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	src := testSource(t)
	sum, err := Run(context.Background(), src, sink, testLogger())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Users != 1 || sum.Records != 1 {
		t.Errorf("summary = %+v", sum)
	}

	if n := count(t, sink.db, "users"); n != 1 {
		t.Errorf("users = %d, want 1", n)
	}
	if n := count(t, sink.db, "workout_exercises"); n != 2 {
		t.Errorf("exercises = %d, want 2", n)
	}

	var name string
	var kcal float64
	var created string
	err = sink.db.QueryRow(`SELECT r.user_name, r.total_kcal, r.created_at FROM workout_records r`).Scan(&name, &kcal, &created)
	if err != nil {
		t.Fatal(err)
	}
	if name != `Ann "A", Jr` || kcal != 518 {
		t.Errorf("record = %q %v", name, kcal)
	}
	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil || !ts.Equal(src.recs[0].CreatedAt) {
		t.Errorf("created_at = %q, want %v", created, src.recs[0].CreatedAt)
	}
}

// TestSQLiteExportIsRepeatable verifies a second export updates rows in
// place instead of duplicating them.
func TestSQLiteExportIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kcal.db")
	sink, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	src := testSource(t)
	if _, err := Run(context.Background(), src, sink, testLogger()); err != nil {
		t.Fatal(err)
	}
	if err := src.users[0].SetWeightKg(68); err != nil {
		t.Fatal(err)
	}
	src.recs[0].Exercises = src.recs[0].Exercises[:1]
	if _, err := Run(context.Background(), src, sink, testLogger()); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if n := count(t, sink.db, "users"); n != 1 {
		t.Errorf("users = %d, want 1", n)
	}
	if n := count(t, sink.db, "workout_exercises"); n != 1 {
		t.Errorf("exercises = %d, want 1", n)
	}
	var w float64
	if err := sink.db.QueryRow(`SELECT weight_kg FROM users`).Scan(&w); err != nil {
		t.Fatal(err)
	}
	if w != 68 {
		t.Errorf("weight = %v, want 68", w)
	}
}

// TestOpenUnknownDriver verifies the driver name is checked.
func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.ExportConfig{Driver: "mysql"})
	if err == nil {
		t.Fatal("expected error")
	}
}

// TestOpenChecksDriverSettings verifies a driver missing its required
// settings is refused before anything is created.
func TestOpenChecksDriverSettings(t *testing.T) {
	if _, err := Open(context.Background(), config.ExportConfig{Driver: "sqlite"}); err == nil {
		t.Fatal("expected error for sqlite without a path")
	}
}

type failingSink struct {
	migrateErr error
}

func (f failingSink) Migrate(context.Context) error { return f.migrateErr }
func (failingSink) WriteUsers(context.Context, []models.User) error {
	return errors.New("disk full")
}
func (failingSink) WriteRecords(context.Context, []models.WorkoutRecord) error { return nil }
func (failingSink) Close() error                                               { return nil }

// TestRunStopsOnError verifies migration and write failures are returned.
func TestRunStopsOnError(t *testing.T) {
	src := testSource(t)
	if _, err := Run(context.Background(), src, failingSink{migrateErr: errors.New("no schema")}, testLogger()); err == nil {
		t.Error("expected migrate error")
	}
	if _, err := Run(context.Background(), src, failingSink{}, testLogger()); err == nil {
		t.Error("expected write error")
	}
}

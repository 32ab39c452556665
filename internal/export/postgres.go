package export

import (
	"context"
	"fmt"

	"github.com/claude/kcalplanner/internal/models"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres wraps a pgxpool.Pool.
type Postgres struct {
	Pool *pgxpool.Pool
	dsn  string
}

// OpenPostgres creates a connection pool and checks it can reach the server.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Postgres{Pool: pool, dsn: dsn}, nil
}

func (p *Postgres) Migrate(context.Context) error {
	return runMigrations("postgres", p.dsn)
}

func (p *Postgres) WriteUsers(ctx context.Context, users []models.User) error {
	b := &pgx.Batch{}
	for _, u := range users {
		b.Queue(
			`INSERT INTO users (id, name, gender, age, height_cm, weight_kg, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)
			 ON CONFLICT (id) DO UPDATE SET
			   name = EXCLUDED.name, gender = EXCLUDED.gender, age = EXCLUDED.age,
			   height_cm = EXCLUDED.height_cm, weight_kg = EXCLUDED.weight_kg,
			   created_at = EXCLUDED.created_at`,
			u.ID, u.Name, u.Gender, u.Age, u.HeightCm, u.WeightKg, u.CreatedAt)
	}
	return p.sendBatch(ctx, b)
}

func (p *Postgres) WriteRecords(ctx context.Context, recs []models.WorkoutRecord) error {
	b := &pgx.Batch{}
	for _, r := range recs {
		b.Queue(
			`INSERT INTO workout_records (id, user_id, user_name, workout_day, total_kcal, user_weight_kg, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)
			 ON CONFLICT (id) DO UPDATE SET
			   user_id = EXCLUDED.user_id, user_name = EXCLUDED.user_name,
			   workout_day = EXCLUDED.workout_day, total_kcal = EXCLUDED.total_kcal,
			   user_weight_kg = EXCLUDED.user_weight_kg, created_at = EXCLUDED.created_at`,
			r.ID, r.UserID, r.UserName, r.WorkoutDay, r.TotalCalories, r.UserWeightKg, r.CreatedAt)
		b.Queue(`DELETE FROM workout_exercises WHERE record_id = $1`, r.ID)
		for i, summary := range r.Exercises {
			b.Queue(`INSERT INTO workout_exercises (record_id, position, summary) VALUES ($1,$2,$3)`,
				r.ID, i, summary)
		}
	}
	return p.sendBatch(ctx, b)
}

// sendBatch runs b in one transaction.
func (p *Postgres) sendBatch(ctx context.Context, b *pgx.Batch) error {
	if b.Len() == 0 {
		return nil
	}
	tx, err := p.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("executing batch: %w", err)
	}
	return tx.Commit(ctx)
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	p.Pool.Close()
	return nil
}

package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/gridbench/gridbench/internal/domain"
)

type Repos struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Repos { return &Repos{db: db} }

// EnsureResultsTable creates the plain (non-hypertable) results table.
func (r *Repos) EnsureResultsTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS benchmark_results (
		id             BIGSERIAL PRIMARY KEY,
		run_at         TIMESTAMPTZ      NOT NULL,
		chunk_interval TEXT             NOT NULL,
		query          TEXT             NOT NULL,
		compressed     BOOLEAN          NOT NULL,
		runs           INT              NOT NULL,
		min_millis     DOUBLE PRECISION NOT NULL,
		avg_millis     DOUBLE PRECISION NOT NULL,
		p95_millis     DOUBLE PRECISION NOT NULL
	)`)
	return err
}

func (r *Repos) InsertResult(ctx context.Context, res *domain.BenchmarkResult) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO benchmark_results
		(run_at, chunk_interval, query, compressed, runs, min_millis, avg_millis, p95_millis)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		res.RunAt, res.ChunkInterval, res.Query, res.Compressed, res.Runs,
		res.MinMillis, res.AvgMillis, res.P95Millis)
	return err
}

func (r *Repos) ListResults(ctx context.Context) ([]domain.BenchmarkResult, error) {
	var out []domain.BenchmarkResult
	err := r.db.SelectContext(ctx, &out, `SELECT id, run_at, chunk_interval, query, compressed,
		runs, min_millis, avg_millis, p95_millis
		FROM benchmark_results ORDER BY run_at DESC, query`)
	return out, err
}

// HourlyProfile returns average power per hour of day over the last day,
// the quickest visual check that the diurnal double peak made it into the
// store intact.
func (r *Repos) HourlyProfile(ctx context.Context) ([]domain.HourlyAverage, error) {
	var out []domain.HourlyAverage
	err := r.db.SelectContext(ctx, &out, `SELECT EXTRACT(HOUR FROM timestamp)::int AS hour,
		AVG(power) AS avg_power
		FROM energy_readings
		WHERE timestamp >= NOW() - INTERVAL '1 day'
		GROUP BY hour ORDER BY hour`)
	return out, err
}

func (r *Repos) TopMeters(ctx context.Context, limit int) ([]domain.MeterUsage, error) {
	var out []domain.MeterUsage
	err := r.db.SelectContext(ctx, &out, `SELECT meter_id, SUM(energy) AS total_energy
		FROM energy_readings
		GROUP BY meter_id ORDER BY total_energy DESC LIMIT $1`, limit)
	return out, err
}

// Package store is the client for the external time-series store
// (TimescaleDB). Partitioning, compression and incremental aggregate
// refresh all live on the server side; this package only issues the DDL
// and DML that drive them.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/gridbench/gridbench/internal/domain"
)

// ReadingsTable is the hypertable holding raw meter samples.
const ReadingsTable = "energy_readings"

// ErrConnectivity wraps failures to reach the store.
var ErrConnectivity = errors.New("time-series store unreachable")

// Options configures Connect. ConnectRetries of 0 means fail on the first
// error; otherwise connection attempts back off exponentially up to the
// given count.
type Options struct {
	DSN            string
	ConnectRetries uint64
}

type Store struct {
	db *sqlx.DB
}

// Connect opens a pool against the store and verifies it with a ping.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	open := func() (*sqlx.DB, error) {
		return sqlx.ConnectContext(ctx, "pgx", opts.DSN)
	}

	db, err := open()
	if err != nil && opts.ConnectRetries > 0 {
		policy := backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewExponentialBackOff(), opts.ConnectRetries), ctx)
		err = backoff.Retry(func() error {
			db, err = open()
			return err
		}, policy)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying pool for repository-level reads.
func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// CreateReadingsTable declares the readings hypertable with the given
// chunk interval, e.g. "3 hours", "1 day", "1 week". The interval is a
// physical layout knob only; query semantics are unchanged.
func (s *Store) CreateReadingsTable(ctx context.Context, chunkInterval string) error {
	return s.execAll(ctx, readingsTableDDL(chunkInterval))
}

func readingsTableDDL(chunkInterval string) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS energy_readings (
			timestamp  TIMESTAMPTZ      NOT NULL,
			meter_id   TEXT             NOT NULL,
			power      DOUBLE PRECISION NOT NULL,
			voltage    DOUBLE PRECISION NOT NULL,
			current    DOUBLE PRECISION NOT NULL,
			frequency  DOUBLE PRECISION NOT NULL,
			energy     DOUBLE PRECISION NOT NULL
		)`,
		fmt.Sprintf(`SELECT create_hypertable('energy_readings', 'timestamp',
			chunk_time_interval => INTERVAL '%s', if_not_exists => TRUE)`, chunkInterval),
		`CREATE INDEX IF NOT EXISTS energy_readings_meter_time_idx
			ON energy_readings (meter_id, timestamp DESC)`,
	}
}

// InsertBatch appends rows with a single multi-row INSERT.
func (s *Store) InsertBatch(ctx context.Context, rows []domain.Reading) error {
	if len(rows) == 0 {
		return nil
	}
	query, args := buildInsert(rows)
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func buildInsert(rows []domain.Reading) (string, []interface{}) {
	const cols = 7
	values := make([]string, 0, len(rows))
	args := make([]interface{}, 0, len(rows)*cols)
	for i, r := range rows {
		base := i * cols
		values = append(values, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		args = append(args, r.Timestamp, r.MeterID, r.Power, r.Voltage, r.Current, r.Frequency, r.Energy)
	}
	query := `INSERT INTO energy_readings (timestamp, meter_id, power, voltage, current, frequency, energy) VALUES ` +
		strings.Join(values, ",")
	return query, args
}

// TimedQuery runs an arbitrary read, draining the full result set, and
// returns the elapsed wall time.
func (s *Store) TimedQuery(ctx context.Context, query string, args ...interface{}) (time.Duration, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// CompressChunks enables columnar compression on the readings table
// (segmented by meter, ordered by time) and compresses every chunk older
// than the given bound, e.g. "1 hour".
func (s *Store) CompressChunks(ctx context.Context, olderThan string) error {
	return s.execAll(ctx, compressionDDL(olderThan))
}

func compressionDDL(olderThan string) []string {
	return []string{
		`ALTER TABLE energy_readings SET (
			timescaledb.compress,
			timescaledb.compress_segmentby = 'meter_id',
			timescaledb.compress_orderby   = 'timestamp DESC'
		)`,
		fmt.Sprintf(`SELECT compress_chunk(c, if_not_compressed => TRUE)
			FROM show_chunks('energy_readings', older_than => INTERVAL '%s') c`, olderThan),
	}
}

// CreateHourlyAggregate declares a continuous aggregate over the readings
// table plus a refresh policy; the store recomputes only buckets touched
// by new rows inside the refresh window.
func (s *Store) CreateHourlyAggregate(ctx context.Context, view, bucket, refreshWindow, cadence string) error {
	return s.execAll(ctx, aggregateDDL(view, bucket, refreshWindow, cadence))
}

func aggregateDDL(view, bucket, refreshWindow, cadence string) []string {
	return []string{
		fmt.Sprintf(`CREATE MATERIALIZED VIEW IF NOT EXISTS %s
			WITH (timescaledb.continuous) AS
			SELECT time_bucket(INTERVAL '%s', timestamp) AS bucket,
			       meter_id,
			       AVG(power)  AS avg_power,
			       MAX(power)  AS max_power,
			       SUM(energy) AS total_energy
			FROM energy_readings
			GROUP BY bucket, meter_id
			WITH NO DATA`, view, bucket),
		fmt.Sprintf(`SELECT add_continuous_aggregate_policy('%s',
			start_offset      => INTERVAL '%s',
			end_offset        => INTERVAL '%s',
			schedule_interval => INTERVAL '%s')`, view, refreshWindow, bucket, cadence),
	}
}

// TableSize reports the total on-disk footprint of a hypertable in bytes.
func (s *Store) TableSize(ctx context.Context, table string) (int64, error) {
	var size int64
	err := s.db.GetContext(ctx, &size, `SELECT hypertable_size($1)`, table)
	return size, err
}

// RowCount reports the number of rows currently in the readings table.
func (s *Store) RowCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM energy_readings`)
	return n, err
}

func (s *Store) execAll(ctx context.Context, stmts []string) error {
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(q), err)
		}
	}
	return nil
}

func firstLine(q string) string {
	q = strings.TrimSpace(q)
	if i := strings.IndexByte(q, '\n'); i >= 0 {
		q = q[:i]
	}
	return q
}

// Package bench is a parameterized benchmark driver for the readings
// hypertable. One driver run replaces a hand-run protocol of per-layout
// SQL scripts: the chunk interval, query set, repetition count and
// compression step are all configuration.
package bench

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
)

// Query is one named benchmark statement.
type Query struct {
	Name string
	SQL  string
	Args []interface{}
}

// DefaultQueries is the experiment's query set: a narrow recent scan, a
// single-meter range, the hourly diurnal profile, and a full-table
// aggregation. Narrow scans reward small chunks via chunk exclusion;
// full aggregations reward large ones.
func DefaultQueries() []Query {
	return []Query{
		{
			Name: "recent-window",
			SQL: `SELECT timestamp, meter_id, power
				FROM energy_readings
				WHERE timestamp >= NOW() - INTERVAL '1 hour'`,
		},
		{
			Name: "meter-day",
			SQL: `SELECT timestamp, power, energy
				FROM energy_readings
				WHERE meter_id = $1
				  AND timestamp >= NOW() - INTERVAL '1 day'
				ORDER BY timestamp`,
			Args: []interface{}{"0000000001"},
		},
		{
			Name: "hourly-profile",
			SQL: `SELECT EXTRACT(HOUR FROM timestamp)::int AS hour,
				       AVG(power) AS avg_power
				FROM energy_readings
				WHERE timestamp >= NOW() - INTERVAL '1 day'
				GROUP BY hour
				ORDER BY hour`,
		},
		{
			Name: "full-aggregation",
			SQL: `SELECT meter_id, AVG(power) AS avg_power, SUM(energy) AS total_energy
				FROM energy_readings
				GROUP BY meter_id`,
		},
	}
}

// RollupQuery reads the pre-computed hourly aggregate instead of the base
// table, for comparing against hourly-profile.
func RollupQuery(view string) Query {
	return Query{
		Name: "rollup-hourly",
		SQL: fmt.Sprintf(`SELECT bucket, AVG(avg_power)
			FROM %s
			WHERE bucket >= NOW() - INTERVAL '1 day'
			GROUP BY bucket
			ORDER BY bucket`, view),
	}
}

// QueryRunner is the timed read operation of the store.
type QueryRunner interface {
	TimedQuery(ctx context.Context, query string, args ...interface{}) (time.Duration, error)
}

// Stats summarizes repeated timed runs of one query.
type Stats struct {
	Name string
	Runs int
	Min  time.Duration
	Avg  time.Duration
	P95  time.Duration
}

type Driver struct {
	store QueryRunner
	runs  int
	log   zerolog.Logger
}

func NewDriver(store QueryRunner, runs int, log zerolog.Logger) *Driver {
	if runs <= 0 {
		runs = 5
	}
	return &Driver{store: store, runs: runs, log: log}
}

// RunSet times each query in order: one discarded warm-up run, then the
// configured number of measured runs.
func (d *Driver) RunSet(ctx context.Context, queries []Query) ([]Stats, error) {
	out := make([]Stats, 0, len(queries))
	for _, q := range queries {
		s, err := d.runOne(ctx, q)
		if err != nil {
			return out, fmt.Errorf("query %s: %w", q.Name, err)
		}
		d.log.Info().
			Str("query", s.Name).
			Dur("min", s.Min).
			Dur("avg", s.Avg).
			Dur("p95", s.P95).
			Msg("query timed")
		out = append(out, s)
	}
	return out, nil
}

func (d *Driver) runOne(ctx context.Context, q Query) (Stats, error) {
	// Warm-up run primes caches so measured runs compare layouts, not
	// cold-start noise.
	if _, err := d.store.TimedQuery(ctx, q.SQL, q.Args...); err != nil {
		return Stats{}, err
	}
	samples := make([]time.Duration, 0, d.runs)
	for i := 0; i < d.runs; i++ {
		elapsed, err := d.store.TimedQuery(ctx, q.SQL, q.Args...)
		if err != nil {
			return Stats{}, err
		}
		samples = append(samples, elapsed)
	}
	return summarize(q.Name, samples), nil
}

func summarize(name string, samples []time.Duration) Stats {
	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, s := range sorted {
		sum += s
	}
	return Stats{
		Name: name,
		Runs: len(sorted),
		Min:  sorted[0],
		Avg:  sum / time.Duration(len(sorted)),
		P95:  percentile(sorted, 0.95),
	}
}

// percentile uses nearest-rank on an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	rank := int(float64(len(sorted))*p+0.5) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

// Report is the full outcome of one driver invocation, suitable for JSON
// upload and for rendering.
type Report struct {
	RunAt           time.Time `json:"run_at"`
	ChunkInterval   string    `json:"chunk_interval"`
	Rows            int64     `json:"rows"`
	SizeBytes       int64     `json:"size_bytes"`
	SizeAfterBytes  int64     `json:"size_after_bytes,omitempty"`
	Uncompressed    []Stats   `json:"uncompressed"`
	Compressed      []Stats   `json:"compressed,omitempty"`
}

// RenderTable writes the report as an aligned text table.
func RenderTable(w io.Writer, rep Report) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Query", "Layout", "Runs", "Min", "Avg", "P95"})
	appendStats := func(stats []Stats, layout string) {
		for _, s := range stats {
			table.Append([]string{
				s.Name,
				layout,
				fmt.Sprintf("%d", s.Runs),
				s.Min.Round(time.Microsecond).String(),
				s.Avg.Round(time.Microsecond).String(),
				s.P95.Round(time.Microsecond).String(),
			})
		}
	}
	appendStats(rep.Uncompressed, rep.ChunkInterval)
	appendStats(rep.Compressed, rep.ChunkInterval+" compressed")
	table.Render()

	fmt.Fprintf(w, "rows: %d  size: %s", rep.Rows, humanBytes(rep.SizeBytes))
	if rep.SizeAfterBytes > 0 {
		fmt.Fprintf(w, "  compressed size: %s", humanBytes(rep.SizeAfterBytes))
	}
	fmt.Fprintln(w)
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

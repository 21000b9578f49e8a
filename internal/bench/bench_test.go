package bench

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls   map[string]int
	latency map[string][]time.Duration
	failOn  string
}

func (f *fakeRunner) TimedQuery(_ context.Context, query string, _ ...interface{}) (time.Duration, error) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	n := f.calls[query]
	f.calls[query] = n + 1
	if query == f.failOn {
		return 0, errors.New("relation does not exist")
	}
	seq := f.latency[query]
	if len(seq) == 0 {
		return time.Millisecond, nil
	}
	return seq[n%len(seq)], nil
}

func TestRunSetWarmupPlusMeasuredRuns(t *testing.T) {
	t.Parallel()

	queries := []Query{{Name: "a", SQL: "SELECT 1"}, {Name: "b", SQL: "SELECT 2"}}
	fr := &fakeRunner{}
	stats, err := NewDriver(fr, 3, zerolog.Nop()).RunSet(context.Background(), queries)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	require.Equal(t, 4, fr.calls["SELECT 1"], "warm-up plus 3 measured")
	require.Equal(t, 3, stats[0].Runs)
}

func TestRunSetSurfacesQueryError(t *testing.T) {
	t.Parallel()

	queries := []Query{{Name: "ok", SQL: "SELECT 1"}, {Name: "bad", SQL: "SELECT nope"}}
	fr := &fakeRunner{failOn: "SELECT nope"}
	stats, err := NewDriver(fr, 2, zerolog.Nop()).RunSet(context.Background(), queries)
	require.Error(t, err)
	require.Contains(t, err.Error(), "query bad")
	require.Len(t, stats, 1, "results up to the failure are kept")
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	samples := []time.Duration{
		5 * time.Millisecond,
		1 * time.Millisecond,
		3 * time.Millisecond,
		2 * time.Millisecond,
		4 * time.Millisecond,
	}
	s := summarize("q", samples)
	require.Equal(t, time.Millisecond, s.Min)
	require.Equal(t, 3*time.Millisecond, s.Avg)
	require.Equal(t, 5*time.Millisecond, s.P95)
	require.Equal(t, 5, s.Runs)
}

func TestPercentileNearestRank(t *testing.T) {
	t.Parallel()

	sorted := make([]time.Duration, 100)
	for i := range sorted {
		sorted[i] = time.Duration(i+1) * time.Millisecond
	}
	require.Equal(t, 95*time.Millisecond, percentile(sorted, 0.95))
	require.Equal(t, 50*time.Millisecond, percentile(sorted, 0.50))
	require.Equal(t, time.Millisecond, percentile(sorted[:1], 0.95))
}

func TestDefaultQueriesNamedSet(t *testing.T) {
	t.Parallel()

	names := map[string]bool{}
	for _, q := range DefaultQueries() {
		names[q.Name] = true
		require.NotEmpty(t, q.SQL)
	}
	require.True(t, names["recent-window"])
	require.True(t, names["meter-day"])
	require.True(t, names["hourly-profile"])
	require.True(t, names["full-aggregation"])
}

func TestRenderTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	RenderTable(&buf, Report{
		RunAt:         time.Now(),
		ChunkInterval: "1 day",
		Rows:          4032000,
		SizeBytes:     512 * 1024 * 1024,
		Uncompressed:  []Stats{{Name: "recent-window", Runs: 5, Min: time.Millisecond, Avg: 2 * time.Millisecond, P95: 3 * time.Millisecond}},
		Compressed:    []Stats{{Name: "recent-window", Runs: 5, Min: 2 * time.Millisecond, Avg: 4 * time.Millisecond, P95: 6 * time.Millisecond}},
	})
	out := buf.String()
	require.Contains(t, out, "recent-window")
	require.Contains(t, out, "1 day compressed")
	require.Contains(t, out, "rows: 4032000")
	require.Contains(t, out, "512.0 MiB")
}

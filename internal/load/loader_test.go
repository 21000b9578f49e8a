package load

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gridbench/gridbench/internal/domain"
	"github.com/gridbench/gridbench/internal/generate"
)

// fakeStore records batches and fails selected attempts. Attempt numbers
// are 1-based and count every InsertBatch call, retries included.
type fakeStore struct {
	batches      [][]domain.Reading
	attempts     int
	failAttempts map[int]error
}

func (f *fakeStore) InsertBatch(_ context.Context, rows []domain.Reading) error {
	f.attempts++
	if err := f.failAttempts[f.attempts]; err != nil {
		return err
	}
	cp := make([]domain.Reading, len(rows))
	copy(cp, rows)
	f.batches = append(f.batches, cp)
	return nil
}

func newStream(t *testing.T, meters, days, interval int) *generate.Stream {
	t.Helper()
	s, err := generate.New(generate.Config{
		Meters:          meters,
		Days:            days,
		IntervalMinutes: interval,
		StartDate:       time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Seed:            11,
	})
	require.NoError(t, err)
	return s
}

func TestRunLoadsAllRowsInBatches(t *testing.T) {
	t.Parallel()

	src := newStream(t, 2, 1, 60) // 48 rows
	fs := &fakeStore{}
	rep, err := New(fs, 20, zerolog.Nop()).Run(context.Background(), src)
	require.NoError(t, err)

	require.EqualValues(t, 48, rep.Rows)
	require.Positive(t, rep.RowsPerSec)
	require.Len(t, fs.batches, 3, "20+20+8")
	require.Len(t, fs.batches[0], 20)
	require.Len(t, fs.batches[2], 8)
}

func TestRunRetriesFailedBatchOnce(t *testing.T) {
	t.Parallel()

	src := newStream(t, 2, 1, 60)
	fs := &fakeStore{failAttempts: map[int]error{2: errors.New("deadlock")}}
	rep, err := New(fs, 20, zerolog.Nop()).Run(context.Background(), src)
	require.NoError(t, err, "single failure must be absorbed by the retry")
	require.EqualValues(t, 48, rep.Rows)
	require.Len(t, fs.batches, 3)
}

func TestRunAbortsAfterSecondFailure(t *testing.T) {
	t.Parallel()

	// 5 batches of 96; batch 3 fails on both attempts (calls 3 and 4).
	src := newStream(t, 20, 1, 60) // 480 rows
	boom := errors.New("connection reset")
	fs := &fakeStore{failAttempts: map[int]error{3: boom, 4: boom}}

	rep, err := New(fs, 96, zerolog.Nop()).Run(context.Background(), src)
	require.Error(t, err)

	var we *WriteError
	require.ErrorAs(t, err, &we)
	require.EqualValues(t, 192, we.Committed, "batches 1-2 stay committed")
	require.ErrorIs(t, we, boom)
	require.EqualValues(t, 192, rep.Rows)
	require.Len(t, fs.batches, 2)
}

func TestRunHonorsCancellationBetweenBatches(t *testing.T) {
	t.Parallel()

	src := newStream(t, 20, 1, 60)
	fs := &fakeStore{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := New(fs, 96, zerolog.Nop()).Run(ctx, src)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, rep.Rows)
	require.Empty(t, fs.batches)
}

func TestDefaultBatchSize(t *testing.T) {
	t.Parallel()

	l := New(&fakeStore{}, 0, zerolog.Nop())
	require.Equal(t, DefaultBatchSize, l.batchSize)
}

// Package load streams generated readings into the time-series store in
// batches. The full run is never buffered; memory use is bounded by one
// batch regardless of row count.
package load

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gridbench/gridbench/internal/domain"
)

// DefaultBatchSize amortizes per-row overhead without holding much memory.
const DefaultBatchSize = 10000

// BatchWriter is the store-side append operation.
type BatchWriter interface {
	InsertBatch(ctx context.Context, rows []domain.Reading) error
}

// Source is a lazy reading sequence, typically *generate.Stream.
type Source interface {
	Next() (domain.Reading, bool)
	Total() int64
}

// WriteError reports a batch that failed after its single retry. Rows
// committed before the failure stay in the store; the count lets a partial
// run be reasoned about manually.
type WriteError struct {
	Committed int64
	Err       error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("batch write failed after retry (%d rows committed): %v", e.Committed, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Report summarizes a completed (or aborted) load.
type Report struct {
	Rows       int64
	Elapsed    time.Duration
	RowsPerSec float64
}

type Loader struct {
	store     BatchWriter
	batchSize int
	log       zerolog.Logger
}

func New(store BatchWriter, batchSize int, log zerolog.Logger) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Loader{store: store, batchSize: batchSize, log: log}
}

// Run drains src into the store. Each failed batch is retried once; a
// second failure aborts with a *WriteError carrying the committed count.
// Cancellation is honored between batches, leaving a clean append-only
// prefix behind.
func (l *Loader) Run(ctx context.Context, src Source) (Report, error) {
	start := time.Now()
	total := src.Total()
	var committed int64

	l.log.Info().
		Int64("total_rows", total).
		Int("batch_size", l.batchSize).
		Msg("starting bulk load")

	batch := make([]domain.Reading, 0, l.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.store.InsertBatch(ctx, batch); err != nil {
			l.log.Warn().Err(err).Int64("committed", committed).Msg("batch insert failed, retrying once")
			if err = l.store.InsertBatch(ctx, batch); err != nil {
				return &WriteError{Committed: committed, Err: err}
			}
		}
		committed += int64(len(batch))
		batch = batch[:0]

		elapsed := time.Since(start)
		rate := float64(committed) / elapsed.Seconds()
		l.log.Info().
			Int64("rows", committed).
			Int64("total", total).
			Float64("rows_per_sec", rate).
			Str("eta", eta(committed, total, rate)).
			Msg("progress")
		return nil
	}

	for {
		r, ok := src.Next()
		if !ok {
			break
		}
		batch = append(batch, r)
		if len(batch) == l.batchSize {
			if err := flush(); err != nil {
				return l.report(committed, start), err
			}
		}
	}
	if err := flush(); err != nil {
		return l.report(committed, start), err
	}

	rep := l.report(committed, start)
	l.log.Info().
		Int64("rows", rep.Rows).
		Dur("elapsed", rep.Elapsed).
		Float64("rows_per_sec", rep.RowsPerSec).
		Msg("load complete")
	return rep, nil
}

func (l *Loader) report(rows int64, start time.Time) Report {
	elapsed := time.Since(start)
	rep := Report{Rows: rows, Elapsed: elapsed}
	if elapsed > 0 {
		rep.RowsPerSec = float64(rows) / elapsed.Seconds()
	}
	return rep
}

func eta(done, total int64, rate float64) string {
	if rate <= 0 || done >= total {
		return "0s"
	}
	return (time.Duration(float64(total-done)/rate) * time.Second).String()
}

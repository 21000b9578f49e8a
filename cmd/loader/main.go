package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/gridbench/gridbench/internal/cloud"
	"github.com/gridbench/gridbench/internal/config"
	"github.com/gridbench/gridbench/internal/generate"
	"github.com/gridbench/gridbench/internal/load"
	"github.com/gridbench/gridbench/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	meters := pflag.Int("meters", 1000, "number of meters to simulate")
	days := pflag.Int("days", 14, "days of historical data")
	interval := pflag.Int("interval", 5, "sampling interval in minutes")
	startDate := pflag.String("start-date", "", "first reading date, YYYY-MM-DD (default: now minus --days)")
	batchSize := pflag.Int("batch-size", load.DefaultBatchSize, "rows per batch insert")
	chunkInterval := pflag.String("chunk-interval", "1 day", "hypertable chunk interval")
	seed := pflag.Int64("seed", 0, "PRNG seed (0 derives one from the clock)")
	pflag.Parse()

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	start, err := resolveStart(*startDate, *days, *interval)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	stream, err := generate.New(generate.Config{
		Meters:          *meters,
		Days:            *days,
		IntervalMinutes: *interval,
		StartDate:       start,
		Seed:            *seed,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Connect(ctx, store.Options{DSN: config.DSN(), ConnectRetries: config.ConnectRetries()})
	if err != nil {
		log.Error().Err(err).Msg("store connect failed")
		os.Exit(1)
	}
	defer st.Close()

	if err := st.CreateReadingsTable(ctx, *chunkInterval); err != nil {
		log.Error().Err(err).Msg("create readings table failed")
		os.Exit(1)
	}

	rep, err := load.New(st, *batchSize, log.Logger).Run(ctx, stream)
	if err != nil {
		log.Error().Err(err).Msg("bulk load failed")
		fmt.Fprintf(os.Stderr, "load aborted: %d rows committed\n", rep.Rows)
		os.Exit(1)
	}

	notifyCloud(ctx, rep)
	fmt.Printf("loaded %d rows in %s (%.0f rows/sec)\n", rep.Rows, rep.Elapsed.Round(time.Second), rep.RowsPerSec)
}

// resolveStart aligns the window so the last reading lands just before
// now, matching the original load-backwards-from-today behavior.
func resolveStart(date string, days, interval int) (time.Time, error) {
	if date == "" {
		step := time.Duration(interval) * time.Minute
		if step <= 0 {
			step = time.Minute
		}
		return time.Now().UTC().Truncate(step).AddDate(0, 0, -days), nil
	}
	start, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --start-date %q: %v", date, err)
	}
	return start, nil
}

func notifyCloud(ctx context.Context, rep load.Report) {
	if !config.UseCloudServices() || config.SNSTopicArn() == "" {
		return
	}
	snsClient, err := cloud.NewSNSClient(ctx, config.AWSRegion(), config.SNSTopicArn())
	if err != nil {
		log.Warn().Err(err).Msg("sns client init failed")
		return
	}
	if err := snsClient.SendLoadSummary(ctx, rep.Rows, rep.Elapsed, rep.RowsPerSec); err != nil {
		log.Warn().Err(err).Msg("sns notify failed")
	}
}

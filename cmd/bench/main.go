package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/gridbench/gridbench/internal/bench"
	"github.com/gridbench/gridbench/internal/cloud"
	"github.com/gridbench/gridbench/internal/config"
	"github.com/gridbench/gridbench/internal/domain"
	"github.com/gridbench/gridbench/internal/repository"
	"github.com/gridbench/gridbench/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	chunkInterval := pflag.String("chunk-interval", "1 day", "chunk interval the readings table was loaded with (result label)")
	runs := pflag.Int("runs", 5, "measured runs per query")
	compress := pflag.Bool("compress", false, "compress chunks and re-time the query set")
	compressOlderThan := pflag.String("compress-older-than", "1 hour", "compress chunks older than this bound")
	rollup := pflag.Bool("rollup", false, "create the hourly continuous aggregate and time a rollup read")
	rollupView := pflag.String("rollup-view", "energy_hourly", "continuous aggregate view name")
	pflag.Parse()

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Connect(ctx, store.Options{DSN: config.DSN(), ConnectRetries: config.ConnectRetries()})
	if err != nil {
		log.Error().Err(err).Msg("store connect failed")
		os.Exit(1)
	}
	defer st.Close()

	if err := run(ctx, st, *chunkInterval, *runs, *compress, *compressOlderThan, *rollup, *rollupView); err != nil {
		log.Error().Err(err).Msg("benchmark failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, st *store.Store, chunkInterval string, runs int,
	compress bool, compressOlderThan string, rollup bool, rollupView string) error {

	repos := repository.New(st.DB())
	if err := repos.EnsureResultsTable(ctx); err != nil {
		return fmt.Errorf("results table: %w", err)
	}

	queries := bench.DefaultQueries()
	if rollup {
		if err := st.CreateHourlyAggregate(ctx, rollupView, "1 hour", "3 hours", "30 minutes"); err != nil {
			return fmt.Errorf("continuous aggregate: %w", err)
		}
		queries = append(queries, bench.RollupQuery(rollupView))
	}

	rows, err := st.RowCount(ctx)
	if err != nil {
		return err
	}
	size, err := st.TableSize(ctx, store.ReadingsTable)
	if err != nil {
		return err
	}

	report := bench.Report{
		RunAt:         time.Now().UTC(),
		ChunkInterval: chunkInterval,
		Rows:          rows,
		SizeBytes:     size,
	}

	driver := bench.NewDriver(st, runs, log.Logger)
	report.Uncompressed, err = driver.RunSet(ctx, queries)
	if err != nil {
		return err
	}
	if err := persist(ctx, repos, report, report.Uncompressed, false); err != nil {
		return err
	}

	if compress {
		if err := st.CompressChunks(ctx, compressOlderThan); err != nil {
			return fmt.Errorf("compress chunks: %w", err)
		}
		report.SizeAfterBytes, err = st.TableSize(ctx, store.ReadingsTable)
		if err != nil {
			return err
		}
		report.Compressed, err = driver.RunSet(ctx, queries)
		if err != nil {
			return err
		}
		if err := persist(ctx, repos, report, report.Compressed, true); err != nil {
			return err
		}
	}

	bench.RenderTable(os.Stdout, report)
	return publish(ctx, report)
}

func persist(ctx context.Context, repos *repository.Repos, rep bench.Report, stats []bench.Stats, compressed bool) error {
	for _, s := range stats {
		res := domain.BenchmarkResult{
			RunAt:         rep.RunAt,
			ChunkInterval: rep.ChunkInterval,
			Query:         s.Name,
			Compressed:    compressed,
			Runs:          s.Runs,
			MinMillis:     float64(s.Min) / float64(time.Millisecond),
			AvgMillis:     float64(s.Avg) / float64(time.Millisecond),
			P95Millis:     float64(s.P95) / float64(time.Millisecond),
		}
		if err := repos.InsertResult(ctx, &res); err != nil {
			return fmt.Errorf("persist result %s: %w", s.Name, err)
		}
	}
	return nil
}

func publish(ctx context.Context, report bench.Report) error {
	if !config.UseCloudServices() {
		return nil
	}

	var reportURL string
	s3Client, err := cloud.NewS3Client(ctx, config.AWSRegion(), config.S3Bucket())
	if err != nil {
		log.Warn().Err(err).Msg("s3 client init failed")
	} else {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		key := fmt.Sprintf("benchmarks/%s.json", report.RunAt.Format("20060102T150405Z"))
		reportURL, err = s3Client.UploadReport(ctx, key, data)
		if err != nil {
			log.Warn().Err(err).Msg("report upload failed")
		} else {
			log.Info().Str("url", reportURL).Msg("report uploaded")
		}
	}

	if config.SNSTopicArn() != "" {
		snsClient, err := cloud.NewSNSClient(ctx, config.AWSRegion(), config.SNSTopicArn())
		if err != nil {
			log.Warn().Err(err).Msg("sns client init failed")
		} else if err := snsClient.SendBenchmarkSummary(ctx, report.ChunkInterval, len(report.Uncompressed), reportURL); err != nil {
			log.Warn().Err(err).Msg("sns notify failed")
		}
	}
	return nil
}

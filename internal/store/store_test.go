package store

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gridbench/gridbench/internal/domain"
)

func TestReadingsTableDDL(t *testing.T) {
	t.Parallel()

	for _, interval := range []string{"3 hours", "1 day", "1 week"} {
		stmts := readingsTableDDL(interval)
		require.Len(t, stmts, 3)
		require.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS energy_readings")
		require.Contains(t, stmts[1], "create_hypertable")
		require.Contains(t, stmts[1], "INTERVAL '"+interval+"'")
	}
}

func TestBuildInsert(t *testing.T) {
	t.Parallel()

	rows := []domain.Reading{
		{Timestamp: time.Unix(0, 0).UTC(), MeterID: "0000000001", Power: 1000, Voltage: 230, Current: 1000.0 / 230, Frequency: 50, Energy: 0.0833},
		{Timestamp: time.Unix(300, 0).UTC(), MeterID: "0000000002", Power: 250, Voltage: 228, Current: 250.0 / 228, Frequency: 49.9, Energy: 0.0208},
	}
	query, args := buildInsert(rows)

	require.Len(t, args, 14)
	require.Equal(t, 1, strings.Count(query, "),("), "two placeholder groups joined once")
	require.Contains(t, query, "($1,$2,$3,$4,$5,$6,$7)")
	require.Contains(t, query, "($8,$9,$10,$11,$12,$13,$14)")
	require.Contains(t, query, "INSERT INTO energy_readings (timestamp, meter_id, power, voltage, current, frequency, energy)")
	require.Equal(t, "0000000001", args[1])
	require.Equal(t, "0000000002", args[8])
}

func TestCompressionDDL(t *testing.T) {
	t.Parallel()

	stmts := compressionDDL("1 hour")
	require.Len(t, stmts, 2)
	require.Contains(t, stmts[0], "timescaledb.compress")
	require.Contains(t, stmts[0], "compress_segmentby = 'meter_id'")
	require.Contains(t, stmts[1], "compress_chunk")
	require.Contains(t, stmts[1], "older_than => INTERVAL '1 hour'")
}

func TestAggregateDDL(t *testing.T) {
	t.Parallel()

	stmts := aggregateDDL("energy_hourly", "1 hour", "3 hours", "30 minutes")
	require.Len(t, stmts, 2)
	require.Contains(t, stmts[0], "CREATE MATERIALIZED VIEW IF NOT EXISTS energy_hourly")
	require.Contains(t, stmts[0], "timescaledb.continuous")
	require.Contains(t, stmts[0], "time_bucket(INTERVAL '1 hour', timestamp)")
	require.Contains(t, stmts[1], "add_continuous_aggregate_policy('energy_hourly'")
	require.Contains(t, stmts[1], "start_offset      => INTERVAL '3 hours'")
	require.Contains(t, stmts[1], "schedule_interval => INTERVAL '30 minutes'")
}

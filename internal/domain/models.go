package domain

import (
	"fmt"
	"time"
)

// MeterIDWidth is the fixed zero-padded width of a meter identifier.
// The leading digits leave room for encoding regions later.
const MeterIDWidth = 10

// MaxMeters is the largest meter count representable at MeterIDWidth.
const MaxMeters = 9999999999

// FormatMeterID renders a 1-based meter number as a fixed-width id,
// e.g. 1 -> "0000000001".
func FormatMeterID(n int) string {
	return fmt.Sprintf("%0*d", MeterIDWidth, n)
}

// Reading is a single meter sample. Power, voltage and frequency are
// measured quantities; current and energy are derived (I = P/V, energy in
// kWh over the sampling interval).
type Reading struct {
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
	MeterID   string    `db:"meter_id" json:"meter_id"`
	Power     float64   `db:"power" json:"power"`
	Voltage   float64   `db:"voltage" json:"voltage"`
	Current   float64   `db:"current" json:"current"`
	Frequency float64   `db:"frequency" json:"frequency"`
	Energy    float64   `db:"energy" json:"energy"`
}

// BenchmarkResult is one timed query summary for a given table layout.
type BenchmarkResult struct {
	ID            int64     `db:"id" json:"id"`
	RunAt         time.Time `db:"run_at" json:"run_at"`
	ChunkInterval string    `db:"chunk_interval" json:"chunk_interval"`
	Query         string    `db:"query" json:"query"`
	Compressed    bool      `db:"compressed" json:"compressed"`
	Runs          int       `db:"runs" json:"runs"`
	MinMillis     float64   `db:"min_millis" json:"min_millis"`
	AvgMillis     float64   `db:"avg_millis" json:"avg_millis"`
	P95Millis     float64   `db:"p95_millis" json:"p95_millis"`
}

// HourlyAverage is one bucket of the diurnal consumption profile.
type HourlyAverage struct {
	Hour     int     `db:"hour" json:"hour"`
	AvgPower float64 `db:"avg_power" json:"avg_power"`
}

// MeterUsage is aggregate consumption for a single meter.
type MeterUsage struct {
	MeterID     string  `db:"meter_id" json:"meter_id"`
	TotalEnergy float64 `db:"total_energy" json:"total_energy"`
}

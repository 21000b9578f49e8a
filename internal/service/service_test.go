package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gridbench/gridbench/internal/domain"
)

type captureInserter struct {
	rows []domain.Reading
}

func (c *captureInserter) InsertBatch(_ context.Context, rows []domain.Reading) error {
	c.rows = append(c.rows, rows...)
	return nil
}

func TestFromMQTTRoundTrip(t *testing.T) {
	t.Parallel()

	in := domain.Reading{
		Timestamp: time.Date(2025, 3, 10, 7, 5, 0, 0, time.UTC),
		MeterID:   "0000000042",
		Power:     2100,
		Voltage:   231.2,
		Current:   2100 / 231.2,
		Frequency: 49.97,
		Energy:    0.175,
	}
	payload, err := json.Marshal(in)
	require.NoError(t, err)

	ci := &captureInserter{}
	svc := &ReadingService{ins: ci}
	require.NoError(t, svc.FromMQTT("energy/readings", payload))
	require.Len(t, ci.rows, 1)
	require.Equal(t, in, ci.rows[0])
}

func TestFromMQTTRejectsBadPayloads(t *testing.T) {
	t.Parallel()

	ci := &captureInserter{}
	svc := &ReadingService{ins: ci}

	require.Error(t, svc.FromMQTT("energy/readings", []byte("not json")))
	require.Error(t, svc.FromMQTT("energy/readings", []byte(`{"power": 100}`)), "missing meter_id and timestamp")
	require.Empty(t, ci.rows)
}

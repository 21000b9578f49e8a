package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/gridbench/gridbench/internal/domain"
	"github.com/gridbench/gridbench/internal/repository"
)

// ReadingInserter is the store-side append, shared with the bulk loader.
type ReadingInserter interface {
	InsertBatch(ctx context.Context, rows []domain.Reading) error
}

type Services struct {
	Repos    *repository.Repos
	Readings *ReadingService
}

func New(db *sqlx.DB, ins ReadingInserter) *Services {
	return &Services{
		Repos:    repository.New(db),
		Readings: &ReadingService{ins: ins},
	}
}

type ReadingService struct {
	ins ReadingInserter
}

// FromMQTT decodes a published reading and appends it through the same
// insert path as the bulk loader.
func (s *ReadingService) FromMQTT(topic string, payload []byte) error {
	var r domain.Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return fmt.Errorf("decode %s payload: %w", topic, err)
	}
	if r.MeterID == "" || r.Timestamp.IsZero() {
		return fmt.Errorf("reading on %s missing meter_id or timestamp", topic)
	}
	return s.ins.InsertBatch(context.Background(), []domain.Reading{r})
}

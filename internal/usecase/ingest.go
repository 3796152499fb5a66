package usecase

import (
	"context"
	"fmt"
	"time"

	"CardPulse/internal/domain/models"
	drepo "CardPulse/internal/domain/repository"
)

// IngestUseCase validates raw observations and routes them to the
// configured backend. Invalid records (non-positive price, missing
// dimension) are dropped and counted, never errored; a batch never fails
// wholesale for one bad row.
type IngestUseCase struct {
	pub     drepo.Publisher
	store   drepo.SnapshotStore
	metrics drepo.Metrics
	backend string
}

// NewIngestUseCase creates a new IngestUseCase instance.
func NewIngestUseCase(pub drepo.Publisher, store drepo.SnapshotStore, metrics drepo.Metrics, backend string) *IngestUseCase {
	return &IngestUseCase{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

// Ingest processes a single observation.
func (uc *IngestUseCase) Ingest(ctx context.Context, obs *models.PriceObservation) (models.IngestStats, error) {
	if !obs.Valid() {
		uc.metrics.RecordObservationDropped(dropReason(obs))
		return models.IngestStats{Dropped: 1}, nil
	}

	start := time.Now()
	var err error
	switch uc.backend {
	case "kafka":
		err = uc.pub.Publish(ctx, obs)
	case "clickhouse":
		err = uc.store.Upsert(ctx, obs)
	default:
		err = fmt.Errorf("unknown backend: %s", uc.backend)
	}
	if err != nil {
		uc.metrics.RecordError("ingest")
		return models.IngestStats{}, fmt.Errorf("ingest observation: %w", err)
	}

	uc.metrics.RecordObservationStored(uc.backend, obs.VenueID)
	uc.metrics.RecordLastPrice(obs.CardID, obs.Price.InexactFloat64())
	uc.metrics.RecordLatency("ingest", time.Since(start).Seconds())
	return models.IngestStats{Stored: 1}, nil
}

// IngestBatch processes a batch, skipping and counting invalid rows.
func (uc *IngestUseCase) IngestBatch(ctx context.Context, obs []*models.PriceObservation) (models.IngestStats, error) {
	if len(obs) == 0 {
		return models.IngestStats{}, nil
	}

	valid := make([]*models.PriceObservation, 0, len(obs))
	dropped := 0
	for _, o := range obs {
		if !o.Valid() {
			uc.metrics.RecordObservationDropped(dropReason(o))
			dropped++
			continue
		}
		valid = append(valid, o)
	}
	if len(valid) == 0 {
		return models.IngestStats{Dropped: dropped}, nil
	}

	start := time.Now()
	var (
		stored int
		err    error
	)
	switch uc.backend {
	case "kafka":
		err = uc.pub.PublishBatch(ctx, valid)
		stored = len(valid)
	case "clickhouse":
		stored, err = uc.store.UpsertBatch(ctx, valid)
	default:
		err = fmt.Errorf("unknown backend: %s", uc.backend)
	}
	if err != nil {
		uc.metrics.RecordError("ingest_batch")
		return models.IngestStats{Dropped: dropped}, fmt.Errorf("ingest batch: %w", err)
	}

	for _, o := range valid {
		uc.metrics.RecordObservationStored(uc.backend, o.VenueID)
	}
	uc.metrics.RecordLatency("ingest_batch", time.Since(start).Seconds())
	return models.IngestStats{Stored: stored, Dropped: dropped}, nil
}

// Close closes underlying resources if available.
func (uc *IngestUseCase) Close() {
	if uc.pub != nil {
		_ = uc.pub.Close()
	}
	if uc.store != nil {
		_ = uc.store.Close()
	}
}

func dropReason(obs *models.PriceObservation) string {
	switch {
	case obs == nil:
		return "nil"
	case obs.CardID == "" || obs.VenueID == "" || obs.Time.IsZero():
		return "missing_dimension"
	default:
		return "bad_price"
	}
}

package repository

import (
	"context"
	"time"

	"CardPulse/internal/domain/models"
)

// SnapshotStore persists raw price observations. Writes are idempotent
// upserts keyed by the natural key; conflict resolution is last write
// wins at the storage layer, so concurrent writers need no locking here.
type SnapshotStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Upsert(ctx context.Context, obs *models.PriceObservation) error
	UpsertBatch(ctx context.Context, obs []*models.PriceObservation) (int, error)
	QueryRaw(ctx context.Context, cardID string, from, to time.Time, limit int) ([]*models.PriceObservation, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// Publisher forwards normalized observations to a message backend.
type Publisher interface {
	Publish(ctx context.Context, obs *models.PriceObservation) error
	PublishBatch(ctx context.Context, obs []*models.PriceObservation) error
	Close() error
}

// Metrics records operational metrics.
type Metrics interface {
	RecordObservationStored(backend, venue string)
	RecordObservationDropped(reason string)
	RecordError(kind string)
	RecordLastPrice(cardID string, price float64)
	RecordLatency(op string, seconds float64)
}

package repository

import (
	"context"
	"time"

	"CardPulse/internal/domain/models"
)

// MarketReader is the narrow read-only query surface the compositor and
// the signal detector depend on. Two query shapes: materialized rollups
// for the historical range, live bucketed aggregation over raw
// observations for the tail. The storage engine varies behind it.
type MarketReader interface {
	// QueryRollups returns rollup rows with bucket_time in [from, to),
	// ascending. cardID == "" aggregates across all cards (market index).
	QueryRollups(ctx context.Context, cardID string, gran Granularity, from, to time.Time, f models.FilterSet) ([]models.RollupRow, error)

	// QueryRawBuckets aggregates raw observations with time in [from, to]
	// into buckets of the same granularity, ascending, price > 0 only.
	QueryRawBuckets(ctx context.Context, cardID string, gran Granularity, from, to time.Time, f models.FilterSet) ([]models.RollupRow, error)

	// RollupsAvailable reports whether the materialized rollup tables can
	// be queried at all. When false, callers degrade to QueryRawBuckets
	// over the entire period.
	RollupsAvailable(ctx context.Context, gran Granularity) bool
}

// RecommendationStore is the evaluator's boundary to externally owned
// recommendations: list the ones due for scoring and write their outcome
// annotation exactly once.
type RecommendationStore interface {
	// PendingEvaluation returns unevaluated recommendations whose horizon
	// has elapsed, oldest first, capped at limit.
	PendingEvaluation(ctx context.Context, asOf time.Time, limit int) ([]*models.Recommendation, error)

	// RealizedPrices returns observations for the card inside the
	// recommendation horizon, ascending by time.
	RealizedPrices(ctx context.Context, cardID string, from, to time.Time) ([]models.PricePoint, error)

	// SaveOutcome writes the outcome annotation. Idempotent per record.
	SaveOutcome(ctx context.Context, rec *models.Recommendation, res *models.OutcomeResult, at time.Time) error
}

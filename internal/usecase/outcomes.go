package usecase

import (
	"context"
	"fmt"
	"time"

	"CardPulse/internal/domain/models"
	domrepo "CardPulse/internal/domain/repository"
	"CardPulse/internal/services/outcome"
	applogger "CardPulse/pkg/logger"
)

const defaultOutcomeBatch = 100

// OutcomeBatchUseCase scores recommendations whose horizon has elapsed.
// Records are independent: each outcome commits before the next record
// is touched, and a single record's failure is collected, never raised.
// A record with no realized prices is skipped and stays pending for the
// next run.
type OutcomeBatchUseCase struct {
	recs      domrepo.RecommendationStore
	evaluator *outcome.Evaluator
	metrics   domrepo.Metrics
	logger    *applogger.Logger
	now       func() time.Time
}

func NewOutcomeBatchUseCase(recs domrepo.RecommendationStore, evaluator *outcome.Evaluator, metrics domrepo.Metrics, logger *applogger.Logger) *OutcomeBatchUseCase {
	return &OutcomeBatchUseCase{
		recs:      recs,
		evaluator: evaluator,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// EvaluatePending runs one bounded batch and returns per-item stats.
func (uc *OutcomeBatchUseCase) EvaluatePending(ctx context.Context, batchSize int) (*models.OutcomeBatchStats, error) {
	if batchSize <= 0 || batchSize > 1000 {
		batchSize = defaultOutcomeBatch
	}
	now := uc.now().UTC()

	pending, err := uc.recs.PendingEvaluation(ctx, now, batchSize)
	if err != nil {
		return nil, fmt.Errorf("list pending recommendations: %w", err)
	}

	stats := &models.OutcomeBatchStats{Errors: map[string]string{}}
	for _, rec := range pending {
		if ctx.Err() != nil {
			// batch is resumable: stop scheduling further records
			break
		}
		stats.Processed++
		if err := uc.evaluateOne(ctx, rec, now); err != nil {
			stats.Errors[rec.ID] = err.Error()
			uc.metrics.RecordError("outcome_evaluate")
			if uc.logger != nil {
				uc.logger.Error("recommendation evaluation failed",
					applogger.String("recommendation_id", rec.ID),
					applogger.String("card_id", rec.CardID),
					applogger.Error(err),
				)
			}
			continue
		}
		if rec.Evaluated() {
			stats.Evaluated++
		} else {
			stats.SkippedNoData++
		}
	}

	if len(stats.Errors) == 0 {
		stats.Errors = nil
	}
	if uc.logger != nil {
		uc.logger.Info("outcome batch complete",
			applogger.Int("processed", stats.Processed),
			applogger.Int("evaluated", stats.Evaluated),
			applogger.Int("skipped_no_data", stats.SkippedNoData),
			applogger.Int("errors", len(stats.Errors)),
		)
	}
	return stats, nil
}

func (uc *OutcomeBatchUseCase) evaluateOne(ctx context.Context, rec *models.Recommendation, now time.Time) error {
	realized, err := uc.recs.RealizedPrices(ctx, rec.CardID, rec.CreatedAt, rec.ValidUntil)
	if err != nil {
		return fmt.Errorf("realized prices: %w", err)
	}

	res, err := uc.evaluator.Evaluate(rec, realized)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	if res == nil {
		// insufficient data, leave unevaluated for a future retry
		return nil
	}

	if err := uc.recs.SaveOutcome(ctx, rec, res, now); err != nil {
		return fmt.Errorf("save outcome: %w", err)
	}
	rec.EvaluatedAt = now
	return nil
}

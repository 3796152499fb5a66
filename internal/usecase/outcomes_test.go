package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CardPulse/internal/domain/models"
	"CardPulse/internal/services/outcome"
)

type fakeRecStore struct {
	pending  []*models.Recommendation
	realized map[string][]models.PricePoint
	priceErr map[string]error

	limitSeen int
	saved     []string
}

func (s *fakeRecStore) PendingEvaluation(_ context.Context, _ time.Time, limit int) ([]*models.Recommendation, error) {
	s.limitSeen = limit
	return s.pending, nil
}

func (s *fakeRecStore) RealizedPrices(_ context.Context, cardID string, _, _ time.Time) ([]models.PricePoint, error) {
	if err := s.priceErr[cardID]; err != nil {
		return nil, err
	}
	return s.realized[cardID], nil
}

func (s *fakeRecStore) SaveOutcome(_ context.Context, rec *models.Recommendation, _ *models.OutcomeResult, _ time.Time) error {
	s.saved = append(s.saved, rec.ID)
	return nil
}

func buyRec(id, cardID string) *models.Recommendation {
	created := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	return &models.Recommendation{
		ID:           id,
		CardID:       cardID,
		Action:       models.ActionBuy,
		CurrentPrice: decimal.NewFromInt(10),
		TargetPrice:  decimal.NewFromInt(15),
		HorizonDays:  7,
		CreatedAt:    created,
		ValidUntil:   created.AddDate(0, 0, 7),
	}
}

func pricePoints(ts time.Time, prices ...float64) []models.PricePoint {
	out := make([]models.PricePoint, len(prices))
	for i, p := range prices {
		out[i] = models.PricePoint{Time: ts.Add(time.Duration(i) * time.Hour), Price: decimal.NewFromFloat(p)}
	}
	return out
}

func outcomeUC(s *fakeRecStore) *OutcomeBatchUseCase {
	uc := NewOutcomeBatchUseCase(s, outcome.NewEvaluator(decimal.NewFromFloat(0.15)), newFakeMetrics(), nil)
	uc.now = func() time.Time { return time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC) }
	return uc
}

func TestEvaluatePendingMixedBatch(t *testing.T) {
	base := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	s := &fakeRecStore{
		pending: []*models.Recommendation{
			buyRec("r1", "card-1"),
			buyRec("r2", "card-no-data"),
		},
		realized: map[string][]models.PricePoint{
			"card-1": pricePoints(base, 10, 12, 15),
		},
	}
	uc := outcomeUC(s)

	stats, err := uc.EvaluatePending(context.Background(), 50)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Evaluated)
	assert.Equal(t, 1, stats.SkippedNoData, "no realized prices leaves the record pending")
	assert.Nil(t, stats.Errors)
	assert.Equal(t, []string{"r1"}, s.saved)
	assert.True(t, s.pending[0].Evaluated())
	assert.False(t, s.pending[1].Evaluated())
}

func TestEvaluatePendingErrorIsolation(t *testing.T) {
	base := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	s := &fakeRecStore{
		pending: []*models.Recommendation{
			buyRec("r1", "card-broken"),
			buyRec("r2", "card-2"),
		},
		realized: map[string][]models.PricePoint{
			"card-2": pricePoints(base, 10, 11),
		},
		priceErr: map[string]error{"card-broken": errors.New("query timeout")},
	}
	uc := outcomeUC(s)

	stats, err := uc.EvaluatePending(context.Background(), 50)
	require.NoError(t, err, "one record's failure never fails the batch")

	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Evaluated)
	require.Contains(t, stats.Errors, "r1")
	assert.Contains(t, stats.Errors["r1"], "query timeout")
	assert.Equal(t, []string{"r2"}, s.saved)
}

func TestEvaluatePendingBatchSizeClamped(t *testing.T) {
	s := &fakeRecStore{}
	uc := outcomeUC(s)

	_, err := uc.EvaluatePending(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 100, s.limitSeen)

	_, err = uc.EvaluatePending(context.Background(), 5000)
	require.NoError(t, err)
	assert.Equal(t, 100, s.limitSeen)
}

func TestEvaluatePendingCancelledContext(t *testing.T) {
	s := &fakeRecStore{
		pending: []*models.Recommendation{buyRec("r1", "card-1")},
	}
	uc := outcomeUC(s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := uc.EvaluatePending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Processed)
	assert.Empty(t, s.saved)
}

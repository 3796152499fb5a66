package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CardPulse/internal/domain/models"
	domrepo "CardPulse/internal/domain/repository"
	"CardPulse/internal/services/chart"
)

type fakeReader struct {
	avail   bool
	rollups []models.RollupRow
	raw     []models.RollupRow

	rollupCalls int
	rollupFrom  time.Time
	rollupTo    time.Time
	rawFrom     time.Time
	rawTo       time.Time
}

func (f *fakeReader) QueryRollups(_ context.Context, _ string, _ domrepo.Granularity, from, to time.Time, _ models.FilterSet) ([]models.RollupRow, error) {
	f.rollupCalls++
	f.rollupFrom, f.rollupTo = from, to
	return f.rollups, nil
}

func (f *fakeReader) QueryRawBuckets(_ context.Context, _ string, _ domrepo.Granularity, from, to time.Time, _ models.FilterSet) ([]models.RollupRow, error) {
	f.rawFrom, f.rawTo = from, to
	return f.raw, nil
}

func (f *fakeReader) RollupsAvailable(context.Context, domrepo.Granularity) bool { return f.avail }

func rollupAt(t time.Time, price float64) models.RollupRow {
	d := decimal.NewFromFloat(price)
	return models.RollupRow{BucketTime: t, AvgPrice: d, AvgMarket: d, MinPrice: d, MaxPrice: d, CardCount: 1}
}

func fixedHistoryUC(r *fakeReader, now time.Time) *HistoryUseCase {
	uc := NewHistoryUseCase(r, chart.DefaultConfig(), nil)
	uc.now = func() time.Time { return now }
	return uc
}

func TestGetHistorySeamSplit(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 34, 56, 0, time.UTC)
	cutoff := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	start := time.Date(2024, 4, 30, 12, 30, 0, 0, time.UTC)

	r := &fakeReader{
		avail: true,
		rollups: []models.RollupRow{
			rollupAt(start, 10),
			rollupAt(cutoff.Add(-30*time.Minute), 11),
		},
		raw: []models.RollupRow{
			rollupAt(cutoff, 12),
			rollupAt(cutoff.Add(30*time.Minute), 13),
		},
	}
	uc := fixedHistoryUC(r, now)

	res, err := uc.GetHistory(context.Background(), GetHistoryParams{
		CardID: "card-1",
		Period: domrepo.NormalizePeriod("24h"),
	})
	require.NoError(t, err)

	// rollups serve [periodStart, cutoff), raw serves [cutoff, now], both
	// aligned to 30m boundaries
	assert.Equal(t, start, r.rollupFrom)
	assert.Equal(t, cutoff, r.rollupTo)
	assert.Equal(t, cutoff, r.rawFrom)
	assert.Equal(t, now, r.rawTo)

	require.Equal(t, 4, res.Count)
	assert.False(t, res.Fallback)
	for i := 1; i < len(res.Points); i++ {
		assert.True(t, res.Points[i-1].BucketTime.Before(res.Points[i].BucketTime),
			"series must be strictly ascending at %d", i)
	}
}

func TestGetHistoryFallbackWhenRollupsMissing(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 34, 56, 0, time.UTC)
	r := &fakeReader{
		avail: false,
		raw:   []models.RollupRow{rollupAt(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), 20)},
	}
	uc := fixedHistoryUC(r, now)

	res, err := uc.GetHistory(context.Background(), GetHistoryParams{
		CardID: "card-1",
		Period: domrepo.NormalizePeriod("24h"),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, r.rollupCalls, "rollups must not be queried when unavailable")
	assert.True(t, res.Fallback)
	// live query covers the entire period
	assert.Equal(t, time.Date(2024, 4, 30, 12, 30, 0, 0, time.UTC), r.rawFrom)
	assert.Equal(t, now, r.rawTo)
	assert.Equal(t, 1, res.Count)
}

func TestGetHistoryEmptySides(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	uc := fixedHistoryUC(&fakeReader{avail: true}, now)

	res, err := uc.GetHistory(context.Background(), GetHistoryParams{
		CardID: "card-1",
		Period: domrepo.NormalizePeriod("7d"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)
	assert.Empty(t, res.Points)
}

func TestGetHistoryRequiresCardID(t *testing.T) {
	uc := fixedHistoryUC(&fakeReader{}, time.Now())
	_, err := uc.GetHistory(context.Background(), GetHistoryParams{Period: domrepo.DefaultPeriod()})
	assert.Error(t, err)
}

func TestGetHistoryDensify(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r := &fakeReader{
		avail: false,
		raw: []models.RollupRow{
			rollupAt(t0, 10),
			rollupAt(t0.Add(90*time.Minute), 13),
		},
	}
	// ShortGap below the gap width forces interpolation; the default
	// would forward-fill a gap this short.
	cfg := chart.DefaultConfig()
	cfg.ShortGap = 1
	uc := NewHistoryUseCase(r, cfg, nil)
	uc.now = func() time.Time { return now }

	res, err := uc.GetHistory(context.Background(), GetHistoryParams{
		CardID: "card-1",
		Period: domrepo.NormalizePeriod("24h"),
		Fill:   true,
	})
	require.NoError(t, err)

	require.Equal(t, 4, res.Count, "two 30m gaps should be interpolated")
	assert.True(t, res.Points[1].AvgPrice.Equal(decimal.NewFromInt(11)))
	assert.True(t, res.Points[2].AvgPrice.Equal(decimal.NewFromInt(12)))
}

func TestGetHistoryDensifyShortGapForwardFills(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r := &fakeReader{
		avail: false,
		raw: []models.RollupRow{
			rollupAt(t0, 10),
			rollupAt(t0.Add(90*time.Minute), 13),
		},
	}
	uc := fixedHistoryUC(r, now)

	res, err := uc.GetHistory(context.Background(), GetHistoryParams{
		CardID: "card-1",
		Period: domrepo.NormalizePeriod("24h"),
		Fill:   true,
	})
	require.NoError(t, err)

	// default ShortGap is 3: a two bucket gap carries the last price
	require.Equal(t, 4, res.Count)
	assert.True(t, res.Points[1].AvgPrice.Equal(decimal.NewFromInt(10)))
	assert.True(t, res.Points[2].AvgPrice.Equal(decimal.NewFromInt(10)))
	assert.True(t, res.Points[3].AvgPrice.Equal(decimal.NewFromInt(13)))
}

func TestGetMarketIndexRequiresCurrency(t *testing.T) {
	uc := fixedHistoryUC(&fakeReader{}, time.Now())
	_, err := uc.GetMarketIndex(context.Background(), "", domrepo.DefaultPeriod(), models.FilterSet{}, false)
	assert.Error(t, err)
}

func TestGetMarketIndexSetsCurrency(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := &fakeReader{avail: true}
	uc := fixedHistoryUC(r, now)

	res, err := uc.GetMarketIndex(context.Background(), models.CurrencyUSD, domrepo.NormalizePeriod("30d"), models.FilterSet{}, false)
	require.NoError(t, err)
	assert.Equal(t, models.CurrencyUSD, res.Currency)
	assert.Empty(t, res.CardID)
}

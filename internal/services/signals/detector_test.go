package signals

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CardPulse/internal/domain/models"
)

func rows(prices ...float64) []models.RollupRow {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.RollupRow, 0, len(prices))
	for i, p := range prices {
		out = append(out, models.RollupRow{
			BucketTime: base.Add(time.Duration(i) * time.Hour),
			CardID:     "card-1",
			Currency:   models.CurrencyUSD,
			AvgPrice:   decimal.NewFromFloat(p),
		})
	}
	return out
}

func openDetector() *Detector {
	// zero gates so every computed signal is reported
	return NewDetector(Config{MinTrendPoints: 10})
}

func TestMomentumDirections(t *testing.T) {
	d := openDetector()

	up := d.Momentum("card-1", models.CurrencyUSD, "30d", rows(10, 11, 12))
	require.NotNil(t, up)
	assert.Equal(t, models.DirUp, up.Direction)
	assert.InDelta(t, 0.2, up.Value, 1e-9)

	down := d.Momentum("card-1", models.CurrencyUSD, "30d", rows(12, 11, 10))
	require.NotNil(t, down)
	assert.Equal(t, models.DirDown, down.Direction)

	flat := d.Momentum("card-1", models.CurrencyUSD, "30d", rows(10, 11, 10))
	require.NotNil(t, flat)
	assert.Equal(t, models.DirNeutral, flat.Direction)
	assert.Zero(t, flat.Value)
}

func TestMomentumGate(t *testing.T) {
	d := NewDetector(Config{MomentumThreshold: 0.1, MinTrendPoints: 10})

	assert.Nil(t, d.Momentum("card-1", models.CurrencyUSD, "30d", rows(10, 10.5)),
		"5%% move is under the 10%% gate")
	assert.NotNil(t, d.Momentum("card-1", models.CurrencyUSD, "30d", rows(10, 12)))
}

func TestMomentumSkipsNonPositiveBuckets(t *testing.T) {
	d := openDetector()

	s := d.Momentum("card-1", models.CurrencyUSD, "30d", rows(0, 10, 12, 0))
	require.NotNil(t, s)
	assert.InDelta(t, 0.2, s.Value, 1e-9)
	assert.Equal(t, 2, s.Points, "zero-price buckets do not count")

	assert.Nil(t, d.Momentum("card-1", models.CurrencyUSD, "30d", rows(0, 10)),
		"a single usable bucket is insufficient")
}

func TestVolatilityCoefficientOfVariation(t *testing.T) {
	d := openDetector()

	s := d.Volatility("card-1", models.CurrencyUSD, "30d", rows(10, 20, 30))
	require.NotNil(t, s)
	// mean 20, sample stddev 10 -> CV 0.5
	assert.InDelta(t, 0.5, s.Value, 1e-9)
	assert.InDelta(t, 10, s.Stddev, 1e-9)
}

func TestVolatilityGate(t *testing.T) {
	d := NewDetector(Config{MinVolatility: 0.2, MinTrendPoints: 10})

	assert.Nil(t, d.Volatility("card-1", models.CurrencyUSD, "30d", rows(100, 101, 99)))
	assert.NotNil(t, d.Volatility("card-1", models.CurrencyUSD, "30d", rows(10, 20, 30)))
}

func TestTrendRequiresTenPoints(t *testing.T) {
	d := openDetector()

	assert.Nil(t, d.Trend("card-1", models.CurrencyUSD, "30d", rows(1, 2, 3, 4, 5, 6, 7, 8, 9)))
	assert.NotNil(t, d.Trend("card-1", models.CurrencyUSD, "30d", rows(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)))
}

func TestTrendClassification(t *testing.T) {
	d := NewDetector(Config{MinCorrelation: 0.5, MinTrendPoints: 10})

	up := d.Trend("card-1", models.CurrencyUSD, "30d", rows(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))
	require.NotNil(t, up)
	assert.Equal(t, models.DirUptrend, up.Direction)
	assert.InDelta(t, 1.0, up.Slope, 1e-9)
	assert.InDelta(t, 1.0, up.RSquared, 1e-9)

	down := d.Trend("card-1", models.CurrencyUSD, "30d", rows(10, 9, 8, 7, 6, 5, 4, 3, 2, 1))
	require.NotNil(t, down)
	assert.Equal(t, models.DirDowntrend, down.Direction)

	noisy := d.Trend("card-1", models.CurrencyUSD, "30d", rows(5, 9, 2, 8, 1, 9, 3, 7, 2, 8))
	require.NotNil(t, noisy)
	assert.Equal(t, models.DirSideways, noisy.Direction, "low R² classifies sideways, R²=%v", noisy.RSquared)
}

func TestTrendFlatSeriesIsSideways(t *testing.T) {
	d := NewDetector(Config{MinCorrelation: 0.5, MinTrendPoints: 10})

	s := d.Trend("card-1", models.CurrencyUSD, "30d", rows(5, 5, 5, 5, 5, 5, 5, 5, 5, 5))
	require.NotNil(t, s)
	assert.Equal(t, models.DirSideways, s.Direction, "zero slope is never a trend")
}

func TestOLSKnownFit(t *testing.T) {
	slope, r2 := OLS([]float64{2, 4, 6, 8})
	assert.InDelta(t, 2.0, slope, 1e-9)
	assert.InDelta(t, 1.0, r2, 1e-9)
}

func TestStddevSample(t *testing.T) {
	assert.InDelta(t, 10.0, Stddev([]float64{10, 20, 30}), 1e-9)
	assert.Zero(t, Stddev([]float64{42}))
}

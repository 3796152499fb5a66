package chart

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CardPulse/internal/domain/models"
)

var t0 = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func pt(bucket int, price string) models.PricePoint {
	return models.PricePoint{
		Time:  t0.Add(time.Duration(bucket) * time.Hour),
		Price: decimal.RequireFromString(price),
	}
}

func fill(points []models.PricePoint, buckets int) Result {
	cfg := DefaultConfig()
	cfg.ShortGap = 1
	return Fill(cfg, points, t0, t0.Add(time.Duration(buckets-1)*time.Hour), time.Hour)
}

func TestFillLinearInterpolation(t *testing.T) {
	res := fill([]models.PricePoint{pt(0, "10"), pt(3, "13")}, 4)

	require.Len(t, res.Points, 4)
	assert.True(t, res.Points[1].Price.Equal(decimal.RequireFromString("11")), "t1 = %s", res.Points[1].Price)
	assert.True(t, res.Points[2].Price.Equal(decimal.RequireFromString("12")), "t2 = %s", res.Points[2].Price)
	assert.Equal(t, 2, res.Filled)
}

func TestFillShortGapForwardFills(t *testing.T) {
	cfg := DefaultConfig() // ShortGap 3
	res := Fill(cfg, []models.PricePoint{pt(0, "10"), pt(3, "13")}, t0, t0.Add(3*time.Hour), time.Hour)

	require.Len(t, res.Points, 4)
	assert.True(t, res.Points[1].Price.Equal(decimal.RequireFromString("10")), "short gaps carry the prior value")
	assert.True(t, res.Points[2].Price.Equal(decimal.RequireFromString("10")))
}

func TestFillBackwardFillsLeadingGap(t *testing.T) {
	res := fill([]models.PricePoint{pt(2, "7"), pt(3, "8")}, 4)

	require.Len(t, res.Points, 4)
	assert.True(t, res.Points[0].Price.Equal(decimal.RequireFromString("7")))
	assert.True(t, res.Points[1].Price.Equal(decimal.RequireFromString("7")))
}

func TestFillTooFewPointsReturnsInput(t *testing.T) {
	in := []models.PricePoint{pt(0, "10")}
	res := fill(in, 10)

	assert.Equal(t, in, res.Points)
	assert.Zero(t, res.Filled)
}

func TestFillDropsOutOfBandInputs(t *testing.T) {
	res := fill([]models.PricePoint{pt(0, "10"), pt(1, "999999"), pt(3, "13")}, 4)

	assert.Equal(t, 1, res.Dropped)
	for _, p := range res.Points {
		assert.True(t, p.Price.LessThanOrEqual(decimal.NewFromInt(100000)),
			"no output outside the sanity band, got %s", p.Price)
	}
}

func TestFillNeverShrinksBelowValidInput(t *testing.T) {
	in := []models.PricePoint{pt(0, "10"), pt(1, "11"), pt(2, "12"), pt(5, "15")}
	res := fill(in, 6)

	assert.GreaterOrEqual(t, len(res.Points), len(in))
}

func TestFillWideGapOmitted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShortGap = 1
	cfg.MaxGapFraction = 0.3 // 30% of 10 buckets = 3 max

	in := []models.PricePoint{pt(0, "10"), pt(9, "19")}
	res := Fill(cfg, in, t0, t0.Add(9*time.Hour), time.Hour)

	// the 8-bucket interior gap exceeds the cap and stays unfilled
	require.Len(t, res.Points, 2)
	assert.True(t, res.Points[0].Price.Equal(decimal.RequireFromString("10")))
	assert.True(t, res.Points[1].Price.Equal(decimal.RequireFromString("19")))
}

func TestFillSortsUnorderedInput(t *testing.T) {
	res := fill([]models.PricePoint{pt(3, "13"), pt(0, "10")}, 4)

	require.Len(t, res.Points, 4)
	for i := 1; i < len(res.Points); i++ {
		assert.True(t, res.Points[i].Time.After(res.Points[i-1].Time))
	}
}

func TestFillExactMatchTolerance(t *testing.T) {
	in := []models.PricePoint{
		{Time: t0.Add(30 * time.Second), Price: decimal.NewFromInt(10)}, // within ±60s of t0
		pt(1, "11"),
	}
	res := fill(in, 2)

	require.Len(t, res.Points, 2)
	assert.True(t, res.Points[0].Time.Equal(t0), "near matches snap to the bucket timestamp")
	assert.True(t, res.Points[0].Price.Equal(decimal.NewFromInt(10)))
	assert.Zero(t, res.Filled)
}

package outcome

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CardPulse/internal/domain/models"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pts(prices ...string) []models.PricePoint {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.PricePoint, 0, len(prices))
	for i, p := range prices {
		out = append(out, models.PricePoint{Time: base.Add(time.Duration(i) * time.Hour), Price: dec(p)})
	}
	return out
}

func rec(action models.Action, current, target string) *models.Recommendation {
	return &models.Recommendation{
		ID:           "rec-1",
		CardID:       "card-1",
		Action:       action,
		CurrentPrice: dec(current),
		TargetPrice:  dec(target),
		HorizonDays:  7,
	}
}

func TestEvaluateBuyExactTarget(t *testing.T) {
	e := NewEvaluator(decimal.Zero)

	res, err := e.Evaluate(rec(models.ActionBuy, "10", "15"), pts("10", "12", "15"))
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.True(t, res.AccuracyEnd.Equal(dec("1")), "accuracy_end = %s", res.AccuracyEnd)
	assert.True(t, res.ProfitPctEnd.Equal(dec("50")), "profit_pct_end = %s", res.ProfitPctEnd)
	assert.True(t, res.PricePeak.Equal(dec("15")))
}

func TestEvaluateBuyHalfway(t *testing.T) {
	e := NewEvaluator(decimal.Zero)

	res, err := e.Evaluate(rec(models.ActionBuy, "10", "15"), pts("10", "12.5"))
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.True(t, res.AccuracyEnd.Equal(dec("0.5")), "accuracy_end = %s", res.AccuracyEnd)
	assert.True(t, res.ProfitPctEnd.Equal(dec("25")), "profit_pct_end = %s", res.ProfitPctEnd)
}

func TestEvaluateBuyOvershootClamped(t *testing.T) {
	e := NewEvaluator(decimal.Zero)

	res, err := e.Evaluate(rec(models.ActionBuy, "10", "15"), pts("10", "30"))
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.True(t, res.AccuracyEnd.Equal(dec("1")), "overshoot must clamp to 1")
	assert.True(t, res.ProfitPctEnd.Equal(dec("200")))
}

func TestEvaluateBuyLoss(t *testing.T) {
	e := NewEvaluator(decimal.Zero)

	res, err := e.Evaluate(rec(models.ActionBuy, "10", "15"), pts("10", "8"))
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.True(t, res.AccuracyEnd.IsZero(), "negative move scores zero")
	assert.True(t, res.ProfitPctEnd.Equal(dec("-20")))
}

func TestEvaluateBuyMalformedPrediction(t *testing.T) {
	e := NewEvaluator(decimal.Zero)

	// target below current: predicted gain <= 0 is malformed input.
	res, err := e.Evaluate(rec(models.ActionBuy, "10", "9"), pts("10", "11"))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.AccuracyEnd.Equal(dec("1")), "flat-or-up against malformed prediction scores 1")

	res, err = e.Evaluate(rec(models.ActionBuy, "10", "9"), pts("10", "7"))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.AccuracyEnd.IsZero(), "loss against malformed prediction scores 0")
}

func TestEvaluateSellExactTarget(t *testing.T) {
	e := NewEvaluator(decimal.Zero)

	res, err := e.Evaluate(rec(models.ActionSell, "20", "12"), pts("20", "16", "12"))
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.True(t, res.AccuracyEnd.Equal(dec("1")), "accuracy_end = %s", res.AccuracyEnd)
	assert.True(t, res.PricePeak.Equal(dec("12")), "SELL peak is the minimum observed price")
}

func TestEvaluateSellPeakIsMinimum(t *testing.T) {
	e := NewEvaluator(decimal.Zero)

	res, err := e.Evaluate(rec(models.ActionSell, "20", "12"), pts("20", "9", "18"))
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.True(t, res.PricePeak.Equal(dec("9")))
	assert.True(t, res.AccuracyPeak.Equal(dec("1")), "drop past target clamps to 1")
}

func TestEvaluateHoldSmallMove(t *testing.T) {
	e := NewEvaluator(dec("0.15"))

	// max observed deviation 8% of 100
	res, err := e.Evaluate(rec(models.ActionHold, "100", "100"), pts("100", "108", "104"))
	require.NoError(t, err)
	require.NotNil(t, res)

	want := dec("1").Sub(dec("0.08").Div(dec("0.15")))
	assert.True(t, res.AccuracyEnd.Equal(want), "accuracy = %s, want %s", res.AccuracyEnd, want)
	f, _ := res.AccuracyEnd.Float64()
	assert.InDelta(t, 0.4667, f, 0.0001)
}

func TestEvaluateHoldPeakDirection(t *testing.T) {
	e := NewEvaluator(dec("0.15"))

	// downside move (12%) dominates the upside one (5%)
	res, err := e.Evaluate(rec(models.ActionHold, "100", "100"), pts("105", "88", "99"))
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.True(t, res.PricePeak.Equal(dec("88")), "peak follows the larger move")
	assert.True(t, res.AccuracyEnd.IsZero() == false)
}

func TestEvaluateHoldBigMoveScoresZero(t *testing.T) {
	e := NewEvaluator(dec("0.15"))

	res, err := e.Evaluate(rec(models.ActionHold, "100", "100"), pts("100", "150"))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.AccuracyEnd.IsZero())
}

func TestEvaluateNoObservations(t *testing.T) {
	e := NewEvaluator(decimal.Zero)

	res, err := e.Evaluate(rec(models.ActionBuy, "10", "15"), nil)
	require.NoError(t, err)
	assert.Nil(t, res, "no data must yield no result, not a zero outcome")
}

func TestEvaluateUnknownAction(t *testing.T) {
	e := NewEvaluator(decimal.Zero)

	_, err := e.Evaluate(rec(models.Action("SHORT"), "10", "15"), pts("10"))
	require.Error(t, err)
}

func TestEvaluateDeterministic(t *testing.T) {
	e := NewEvaluator(dec("0.15"))
	r := rec(models.ActionBuy, "10", "15")
	obs := pts("10", "11", "14", "13")

	a, err := e.Evaluate(r, obs)
	require.NoError(t, err)
	b, err := e.Evaluate(r, obs)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

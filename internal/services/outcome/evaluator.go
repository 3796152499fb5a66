// Package outcome scores past recommendations against realized prices.
package outcome

import (
	"fmt"

	"github.com/shopspring/decimal"

	"CardPulse/internal/domain/models"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Evaluator is a pure scoring function. Identical inputs always produce
// an identical OutcomeResult.
type Evaluator struct {
	holdThreshold decimal.Decimal // max tolerated move for a perfect HOLD
}

// NewEvaluator builds an evaluator. A non-positive threshold falls back
// to the stock 0.15.
func NewEvaluator(holdThreshold decimal.Decimal) *Evaluator {
	if !holdThreshold.IsPositive() {
		holdThreshold = decimal.NewFromFloat(0.15)
	}
	return &Evaluator{holdThreshold: holdThreshold}
}

// Evaluate compares a recommendation's prediction against the realized
// prices inside its horizon. Returns (nil, nil) when realized is empty:
// insufficient data, the caller must leave the record unevaluated for a
// later retry. An unknown action is a fatal input error.
func (e *Evaluator) Evaluate(rec *models.Recommendation, realized []models.PricePoint) (*models.OutcomeResult, error) {
	if rec == nil {
		return nil, fmt.Errorf("recommendation is nil")
	}
	if !models.ValidAction(rec.Action) {
		return nil, fmt.Errorf("unknown recommendation action %q", rec.Action)
	}
	if len(realized) == 0 {
		return nil, nil
	}

	end := realized[len(realized)-1]
	switch rec.Action {
	case models.ActionBuy:
		peak := maxPoint(realized)
		return e.scoreDirectional(rec, end, peak, false), nil
	case models.ActionSell:
		peak := minPoint(realized)
		return e.scoreDirectional(rec, end, peak, true), nil
	default: // HOLD
		return e.scoreHold(rec, realized, end), nil
	}
}

// scoreDirectional handles BUY and SELL. For SELL the gains are computed
// as drops (sign flipped) and peak is the minimum observed price.
func (e *Evaluator) scoreDirectional(rec *models.Recommendation, end, peak models.PricePoint, sell bool) *models.OutcomeResult {
	predicted := gain(rec.CurrentPrice, rec.TargetPrice)
	actualEnd := gain(rec.CurrentPrice, end.Price)
	actualPeak := gain(rec.CurrentPrice, peak.Price)
	if sell {
		predicted = predicted.Neg()
		actualEnd = actualEnd.Neg()
		actualPeak = actualPeak.Neg()
	}

	return &models.OutcomeResult{
		PriceEnd:      end.Price,
		PricePeak:     peak.Price,
		PricePeakAt:   peak.Time,
		AccuracyEnd:   accuracy(predicted, actualEnd),
		AccuracyPeak:  accuracy(predicted, actualPeak),
		ProfitPctEnd:  signedPct(actualEnd, sell),
		ProfitPctPeak: signedPct(actualPeak, sell),
	}
}

// scoreHold uses an opportunity-cost model: the larger the observed
// deviation from the entry price, the worse the HOLD call.
func (e *Evaluator) scoreHold(rec *models.Recommendation, realized []models.PricePoint, end models.PricePoint) *models.OutcomeResult {
	high := maxPoint(realized)
	low := minPoint(realized)

	upMove := decimal.Zero
	downMove := decimal.Zero
	if rec.CurrentPrice.IsPositive() {
		upMove = high.Price.Sub(rec.CurrentPrice).Div(rec.CurrentPrice).Abs()
		downMove = rec.CurrentPrice.Sub(low.Price).Div(rec.CurrentPrice).Abs()
	}
	maxMove := upMove
	peak := high
	if downMove.GreaterThan(upMove) {
		maxMove = downMove
		peak = low
	}

	acc := clamp01(one.Sub(maxMove.Div(e.holdThreshold)))
	endGain := gain(rec.CurrentPrice, end.Price)
	peakGain := gain(rec.CurrentPrice, peak.Price)

	return &models.OutcomeResult{
		PriceEnd:      end.Price,
		PricePeak:     peak.Price,
		PricePeakAt:   peak.Time,
		AccuracyEnd:   acc,
		AccuracyPeak:  acc,
		ProfitPctEnd:  endGain.Mul(hundred),
		ProfitPctPeak: peakGain.Mul(hundred),
	}
}

// gain returns (to-from)/from, or zero when from is not positive.
func gain(from, to decimal.Decimal) decimal.Decimal {
	if !from.IsPositive() {
		return decimal.Zero
	}
	return to.Sub(from).Div(from)
}

// accuracy scores an actual move against a predicted one:
// clamp(actual/predicted, 0, 1) when both are positive, zero otherwise.
// A malformed non-positive prediction scores 1 when the realized move
// was at least flat, 0 when it lost.
func accuracy(predicted, actual decimal.Decimal) decimal.Decimal {
	if !predicted.IsPositive() {
		if actual.IsNegative() {
			return decimal.Zero
		}
		return one
	}
	if !actual.IsPositive() {
		return decimal.Zero
	}
	return clamp01(actual.Div(predicted))
}

// signedPct converts a (possibly sign-flipped) gain back to a caller
// facing profit percentage in the price's own direction.
func signedPct(v decimal.Decimal, sell bool) decimal.Decimal {
	if sell {
		v = v.Neg()
	}
	return v.Mul(hundred)
}

func clamp01(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(one) {
		return one
	}
	return v
}

func maxPoint(ps []models.PricePoint) models.PricePoint {
	best := ps[0]
	for _, p := range ps[1:] {
		if p.Price.GreaterThan(best.Price) {
			best = p
		}
	}
	return best
}

func minPoint(ps []models.PricePoint) models.PricePoint {
	best := ps[0]
	for _, p := range ps[1:] {
		if p.Price.LessThan(best.Price) {
			best = p
		}
	}
	return best
}

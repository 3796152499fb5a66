package signals

import (
	"github.com/shopspring/decimal"

	"CardPulse/internal/domain/models"
)

// Config carries the reporting gates for each signal type. The values
// are empirically chosen and surfaced through app config rather than
// hard-coded.
type Config struct {
	MomentumThreshold float64 // min |momentum| to report
	MinVolatility     float64 // min coefficient of variation to report
	MinCorrelation    float64 // min R² for a trend classification
	MinTrendPoints    int     // min buckets for a regression
}

// DefaultConfig returns the stock gates.
func DefaultConfig() Config {
	return Config{
		MomentumThreshold: 0.05,
		MinVolatility:     0.1,
		MinCorrelation:    0.5,
		MinTrendPoints:    10,
	}
}

// Detector computes momentum, volatility and trend signals from rollup
// averages. It never touches raw observations and holds no state beyond
// its gates; the three signal types are independent of one another.
type Detector struct {
	cfg Config
}

func NewDetector(cfg Config) *Detector {
	if cfg.MinTrendPoints <= 0 {
		cfg.MinTrendPoints = DefaultConfig().MinTrendPoints
	}
	return &Detector{cfg: cfg}
}

// usablePrices extracts positive rollup averages in bucket order,
// excluding zero/negative denominators before any ratio is computed.
func usablePrices(rows []models.RollupRow) []float64 {
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.AvgPrice.IsPositive() {
			out = append(out, r.AvgPrice.InexactFloat64())
		}
	}
	return out
}

// Momentum computes (end-start)/start over the window. Returns nil when
// fewer than two usable buckets exist or the move is under the gate.
func (d *Detector) Momentum(cardID string, currency models.Currency, period string, rows []models.RollupRow) *models.Signal {
	first, last, ok := firstLastPositive(rows)
	if !ok {
		return nil
	}
	m, ok := models.MomentumOf(first, last)
	if !ok {
		return nil
	}
	val := m.InexactFloat64()
	dir := models.DirNeutral
	switch {
	case val > 0:
		dir = models.DirUp
	case val < 0:
		dir = models.DirDown
	}
	if abs(val) < d.cfg.MomentumThreshold {
		return nil
	}
	return &models.Signal{
		CardID:    cardID,
		Currency:  currency,
		Type:      models.SignalMomentum,
		Period:    period,
		Value:     val,
		Direction: dir,
		Points:    len(usablePrices(rows)),
	}
}

// Volatility computes the coefficient of variation stddev/mean. Returns
// nil for fewer than two usable buckets, a non-positive mean, or a CV
// under the gate.
func (d *Detector) Volatility(cardID string, currency models.Currency, period string, rows []models.RollupRow) *models.Signal {
	prices := usablePrices(rows)
	if len(prices) < 2 {
		return nil
	}
	mean := Mean(prices)
	if mean <= 0 {
		return nil
	}
	sd := Stddev(prices)
	cv := sd / mean
	if cv < d.cfg.MinVolatility {
		return nil
	}
	return &models.Signal{
		CardID:    cardID,
		Currency:  currency,
		Type:      models.SignalVolatility,
		Period:    period,
		Value:     cv,
		Stddev:    sd,
		Direction: models.DirNeutral,
		Points:    len(prices),
	}
}

// Trend fits an OLS regression of avg price on the sequential bucket
// index. Requires MinTrendPoints usable buckets. Classification:
// uptrend iff slope>0 and R² >= MinCorrelation, mirrored downtrend,
// otherwise sideways.
func (d *Detector) Trend(cardID string, currency models.Currency, period string, rows []models.RollupRow) *models.Signal {
	prices := usablePrices(rows)
	if len(prices) < d.cfg.MinTrendPoints {
		return nil
	}
	slope, r2 := OLS(prices)
	dir := models.DirSideways
	if r2 >= d.cfg.MinCorrelation {
		if slope > 0 {
			dir = models.DirUptrend
		} else if slope < 0 {
			dir = models.DirDowntrend
		}
	}
	return &models.Signal{
		CardID:    cardID,
		Currency:  currency,
		Type:      models.SignalTrend,
		Period:    period,
		Value:     slope,
		Slope:     slope,
		RSquared:  r2,
		Direction: dir,
		Points:    len(prices),
	}
}

func firstLastPositive(rows []models.RollupRow) (first, last decimal.Decimal, ok bool) {
	n := 0
	for _, r := range rows {
		if !r.AvgPrice.IsPositive() {
			continue
		}
		if n == 0 {
			first = r.AvgPrice
		}
		last = r.AvgPrice
		n++
	}
	return first, last, n >= 2
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SignalType enumerates the computed market signals.
type SignalType string

const (
	SignalMomentum   SignalType = "momentum"
	SignalVolatility SignalType = "volatility"
	SignalTrend      SignalType = "trend"
)

// Direction classifies a signal's movement.
type Direction string

const (
	DirUp        Direction = "up"
	DirDown      Direction = "down"
	DirNeutral   Direction = "neutral"
	DirUptrend   Direction = "uptrend"
	DirDowntrend Direction = "downtrend"
	DirSideways  Direction = "sideways"
)

// Signal is one computed statistic for a (card, currency) cohort over a
// rollup window. Not authoritative state: recomputable at any time from
// the rollups.
type Signal struct {
	CardID    string     `json:"card_id"`
	Currency  Currency   `json:"currency"`
	Type      SignalType `json:"type"`
	Period    string     `json:"period"`
	Value     float64    `json:"value"`
	Stddev    float64    `json:"stddev,omitempty"`
	Slope     float64    `json:"slope,omitempty"`
	RSquared  float64    `json:"r_squared,omitempty"`
	Direction Direction  `json:"direction"`
	Points    int        `json:"points"`
}

// SignalSet is the consolidated response for one cohort. A nil member
// means the signal had insufficient data or fell below its reporting
// gate; Errors carries per-signal failures without failing the set.
type SignalSet struct {
	CardID     string            `json:"card_id"`
	Currency   Currency          `json:"currency"`
	Period     string            `json:"period"`
	Timestamp  time.Time         `json:"timestamp"`
	Momentum   *Signal           `json:"momentum,omitempty"`
	Volatility *Signal           `json:"volatility,omitempty"`
	Trend      *Signal           `json:"trend,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
}

// MomentumOf computes the relative change between the first and last
// rollup average. Start must be positive; the bool reports usability.
func MomentumOf(start, end decimal.Decimal) (decimal.Decimal, bool) {
	if !start.IsPositive() {
		return decimal.Zero, false
	}
	return end.Sub(start).Div(start), true
}

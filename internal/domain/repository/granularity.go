package repository

import "time"

// Granularity represents rollup bucket resolution.
type Granularity string

const (
	Gran30m Granularity = "30m"
	Gran1h  Granularity = "1h"
	Gran1d  Granularity = "1d"
)

// Step returns the bucket width.
func (g Granularity) Step() time.Duration {
	switch g {
	case Gran30m:
		return 30 * time.Minute
	case Gran1h:
		return time.Hour
	case Gran1d:
		return 24 * time.Hour
	default:
		return time.Hour
	}
}

// IsValidGranularity returns true if g is a supported granularity.
func IsValidGranularity(g Granularity) bool {
	switch g {
	case Gran30m, Gran1h, Gran1d:
		return true
	default:
		return false
	}
}

// PeriodSpec binds a query period to its bucket granularity, the rollup
// refresh lag bound for that granularity, and the period's lookback
// window (zero Lookback means unbounded).
type PeriodSpec struct {
	Name        string
	Granularity Granularity
	Lag         time.Duration
	Lookback    time.Duration
}

// Lag thresholds must stay monotone with granularity: a coarser bucket
// never has a smaller lag than a finer one.
var periodSpecs = map[string]PeriodSpec{
	"24h": {Name: "24h", Granularity: Gran30m, Lag: 30 * time.Minute, Lookback: 24 * time.Hour},
	"7d":  {Name: "7d", Granularity: Gran30m, Lag: 30 * time.Minute, Lookback: 7 * 24 * time.Hour},
	"30d": {Name: "30d", Granularity: Gran1h, Lag: time.Hour, Lookback: 30 * 24 * time.Hour},
	"90d": {Name: "90d", Granularity: Gran1h, Lag: time.Hour, Lookback: 90 * 24 * time.Hour},
	"1y":  {Name: "1y", Granularity: Gran1d, Lag: 24 * time.Hour, Lookback: 365 * 24 * time.Hour},
	"all": {Name: "all", Granularity: Gran1d, Lag: 24 * time.Hour, Lookback: 0},
}

// DefaultPeriod returns the default query period.
func DefaultPeriod() PeriodSpec { return periodSpecs["30d"] }

// NormalizePeriod converts a raw period string to a spec (or default).
func NormalizePeriod(s string) PeriodSpec {
	if s == "" {
		return DefaultPeriod()
	}
	if spec, ok := periodSpecs[s]; ok {
		return spec
	}
	return DefaultPeriod()
}

// Periods lists the supported period names.
func Periods() []string {
	return []string{"24h", "7d", "30d", "90d", "1y", "all"}
}

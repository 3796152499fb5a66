// Package chart fills gaps in sparse price series for charting. Signal
// computation never uses filled values; it operates on real rollups only.
package chart

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"CardPulse/internal/domain/models"
)

// Config bounds the gap filling. All values have safe defaults.
type Config struct {
	SanityMin      decimal.Decimal // values below are dropped
	SanityMax      decimal.Decimal // values above are dropped
	MatchTolerance time.Duration   // near-match window for a real point
	ShortGap       int             // buckets forward-filled as-is
	MaxGapFraction float64         // fraction of total buckets interpolatable
}

// DefaultConfig returns the stock bounds for a normalized index series.
func DefaultConfig() Config {
	return Config{
		SanityMin:      decimal.NewFromInt(-1000),
		SanityMax:      decimal.NewFromInt(100000),
		MatchTolerance: 60 * time.Second,
		ShortGap:       3,
		MaxGapFraction: 0.9,
	}
}

// Result is the dense series plus bookkeeping for callers that want to
// report data loss.
type Result struct {
	Points  []models.PricePoint
	Dropped int // invalid inputs discarded
	Filled  int // buckets synthesized
}

// Fill produces a dense sequence of buckets covering [start, end] with
// step width from sparse input points. Fewer than two valid points are
// returned unchanged: too little data to interpolate meaningfully.
//
// The function never returns fewer usable points than the valid input
// contained; if filling ever shrinks the series (a defect upstream) the
// sorted valid input is returned instead.
func Fill(cfg Config, input []models.PricePoint, start, end time.Time, step time.Duration) Result {
	if cfg.MatchTolerance <= 0 {
		cfg.MatchTolerance = DefaultConfig().MatchTolerance
	}
	if cfg.ShortGap <= 0 {
		cfg.ShortGap = DefaultConfig().ShortGap
	}
	if cfg.MaxGapFraction <= 0 || cfg.MaxGapFraction > 1 {
		cfg.MaxGapFraction = DefaultConfig().MaxGapFraction
	}
	if cfg.SanityMin.IsZero() && cfg.SanityMax.IsZero() {
		def := DefaultConfig()
		cfg.SanityMin, cfg.SanityMax = def.SanityMin, def.SanityMax
	}

	valid, dropped := validate(cfg, input)
	if len(valid) < 2 || step <= 0 || !end.After(start) {
		return Result{Points: valid, Dropped: dropped}
	}

	totalBuckets := int(end.Sub(start)/step) + 1
	maxGap := int(float64(totalBuckets) * cfg.MaxGapFraction)
	out := make([]models.PricePoint, 0, totalBuckets)
	filled := 0

	next := 0 // index of next unconsumed input point
	var prev *models.PricePoint
	gap := make([]time.Time, 0, 8) // pending unfilled bucket timestamps

	flushGap := func(to *models.PricePoint) {
		if len(gap) == 0 {
			return
		}
		defer func() { gap = gap[:0] }()
		if prev == nil {
			// leading gap: backward-fill from the next known value
			if to == nil {
				return
			}
			for _, ts := range gap {
				out = append(out, models.PricePoint{Time: ts, Price: to.Price})
				filled++
			}
			return
		}
		if len(gap) > maxGap {
			return // too wide, leave the buckets out
		}
		if len(gap) <= cfg.ShortGap || to == nil {
			for _, ts := range gap {
				out = append(out, models.PricePoint{Time: ts, Price: prev.Price})
				filled++
			}
			return
		}
		// linear interpolation toward the next known point
		span := decimal.NewFromInt(int64(len(gap) + 1))
		delta := to.Price.Sub(prev.Price).Div(span)
		for i, ts := range gap {
			v := prev.Price.Add(delta.Mul(decimal.NewFromInt(int64(i + 1))))
			if v.LessThan(cfg.SanityMin) || v.GreaterThan(cfg.SanityMax) {
				v = prev.Price // out-of-band interpolation falls back to forward-fill
			}
			out = append(out, models.PricePoint{Time: ts, Price: v})
			filled++
		}
	}

	for ts := start; !ts.After(end); ts = ts.Add(step) {
		matched := false
		for next < len(valid) {
			d := valid[next].Time.Sub(ts)
			if d < -cfg.MatchTolerance {
				next++ // stale input point, consume and move on
				continue
			}
			if d <= cfg.MatchTolerance {
				p := models.PricePoint{Time: ts, Price: valid[next].Price}
				flushGap(&p)
				out = append(out, p)
				prev = &p
				next++
				matched = true
			}
			break
		}
		if !matched {
			gap = append(gap, ts)
		}
	}
	flushGap(nil)

	// Safety invariant: never hand back less than the real data.
	if len(out) < len(valid) {
		return Result{Points: valid, Dropped: dropped}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return Result{Points: out, Dropped: dropped, Filled: filled}
}

// validate drops points outside the sanity band or with a zero
// timestamp, and returns the remainder sorted ascending.
func validate(cfg Config, input []models.PricePoint) ([]models.PricePoint, int) {
	valid := make([]models.PricePoint, 0, len(input))
	dropped := 0
	for _, p := range input {
		if p.Time.IsZero() {
			dropped++
			continue
		}
		if p.Price.LessThan(cfg.SanityMin) || p.Price.GreaterThan(cfg.SanityMax) {
			dropped++
			continue
		}
		valid = append(valid, p)
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].Time.Before(valid[j].Time) })
	return valid, dropped
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RollupRow is one bucketed summary row from the materialized rollup
// tables. The rollups are maintained asynchronously by the storage layer
// and are eventually consistent with PriceObservation within the lag
// threshold of their granularity.
type RollupRow struct {
	BucketTime    time.Time
	CardID        string
	VenueID       string
	Currency      Currency
	AvgPrice      decimal.Decimal
	AvgMarket     decimal.Decimal
	MinPrice      decimal.Decimal
	MaxPrice      decimal.Decimal
	CardCount     uint64
	TotalListings uint64
	Volume        uint64
}

// MarketIndexPoint is the composite output of the aggregate-lag
// compositor: rollup rows for the stale range stitched with live
// aggregates for the recent tail. Same shape as RollupRow; never
// persisted.
type MarketIndexPoint struct {
	BucketTime    time.Time       `json:"bucket_time"`
	CardID        string          `json:"card_id,omitempty"`
	Currency      Currency        `json:"currency,omitempty"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
	AvgMarket     decimal.Decimal `json:"avg_market_price"`
	MinPrice      decimal.Decimal `json:"min_price"`
	MaxPrice      decimal.Decimal `json:"max_price"`
	CardCount     uint64          `json:"card_count"`
	TotalListings uint64          `json:"total_listings"`
	Volume        uint64          `json:"volume"`
}

// PointFromRollup converts a rollup row into a series point.
func PointFromRollup(r RollupRow) MarketIndexPoint {
	return MarketIndexPoint{
		BucketTime:    r.BucketTime,
		CardID:        r.CardID,
		Currency:      r.Currency,
		AvgPrice:      r.AvgPrice,
		AvgMarket:     r.AvgMarket,
		MinPrice:      r.MinPrice,
		MaxPrice:      r.MaxPrice,
		CardCount:     r.CardCount,
		TotalListings: r.TotalListings,
		Volume:        r.Volume,
	}
}

// PricePoint is a realized (timestamp, price) sample used by the outcome
// evaluator and the chart interpolator.
type PricePoint struct {
	Time  time.Time
	Price decimal.Decimal
}

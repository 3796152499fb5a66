package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action is the closed taxonomy of recommendation actions.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// ValidAction reports whether a is one of the known actions.
func ValidAction(a Action) bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold:
		return true
	default:
		return false
	}
}

// Recommendation is created by an external recommender and annotated
// exactly once by the outcome evaluator after its horizon elapses.
type Recommendation struct {
	ID           string
	CardID       string
	Action       Action
	CurrentPrice decimal.Decimal
	TargetPrice  decimal.Decimal
	HorizonDays  int
	CreatedAt    time.Time
	ValidUntil   time.Time

	// Outcome fields, written once evaluated.
	PriceEnd      decimal.Decimal
	PricePeak     decimal.Decimal
	PricePeakAt   time.Time
	AccuracyEnd   decimal.Decimal
	AccuracyPeak  decimal.Decimal
	ProfitPctEnd  decimal.Decimal
	ProfitPctPeak decimal.Decimal
	EvaluatedAt   time.Time
}

// Evaluated reports whether outcome fields have been written.
func (r *Recommendation) Evaluated() bool { return !r.EvaluatedAt.IsZero() }

// OutcomeResult is the pure scoring output of the evaluator. Identical
// inputs always produce an identical result.
type OutcomeResult struct {
	PriceEnd      decimal.Decimal
	PricePeak     decimal.Decimal
	PricePeakAt   time.Time
	AccuracyEnd   decimal.Decimal
	AccuracyPeak  decimal.Decimal
	ProfitPctEnd  decimal.Decimal
	ProfitPctPeak decimal.Decimal
}

// OutcomeBatchStats summarizes one evaluator batch run. Per-record errors
// are collected here instead of aborting the batch.
type OutcomeBatchStats struct {
	Processed     int               `json:"processed"`
	Evaluated     int               `json:"evaluated"`
	SkippedNoData int               `json:"skipped_no_data"`
	Errors        map[string]string `json:"errors,omitempty"`
}

// IngestStats summarizes one ingest call: how many records were stored
// and how many were dropped for a non-positive price or a missing
// dimension.
type IngestStats struct {
	Stored  int `json:"stored"`
	Dropped int `json:"dropped"`
}

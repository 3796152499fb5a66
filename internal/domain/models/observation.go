package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceObservation is one raw price sample scraped from a marketplace.
// The tuple (Time, CardID, VenueID, Condition, IsFoil, Language) is the
// natural key: a repeated insert for the same tuple overwrites the
// price/volume fields, latest observation wins.
type PriceObservation struct {
	Time          time.Time
	CardID        string
	VenueID       string
	Condition     Condition
	IsFoil        bool
	Language      Language
	Price         decimal.Decimal
	PriceLow      decimal.Decimal
	PriceMid      decimal.Decimal
	PriceHigh     decimal.Decimal
	PriceMarket   decimal.Decimal
	Currency      Currency
	NumListings   uint32
	TotalQuantity uint32
}

// Valid reports whether the observation carries every required dimension
// and a positive price. Invalid observations are skipped and counted by
// ingestion, never errored.
func (o *PriceObservation) Valid() bool {
	if o == nil {
		return false
	}
	if o.CardID == "" || o.VenueID == "" || o.Time.IsZero() {
		return false
	}
	return o.Price.IsPositive()
}

package models

// Requests for market HTTP endpoints. Defined in domain for consistency and reuse.

type HistoryRequest struct {
	CardID    string `query:"card_id" json:"card_id" validate:"required"`
	Period    string `query:"period" json:"period" default:"30d" validate:"oneof=24h 7d 30d 90d 1y all"`
	Currency  string `query:"currency" json:"currency" validate:"omitempty,oneof=USD EUR JPY"`
	Condition string `query:"condition" json:"condition" validate:"omitempty,oneof=NM SP MP HP DMG"`
	Language  string `query:"language" json:"language" validate:"omitempty,oneof=en ja de fr it es"`
	VenueID   string `query:"venue_id" json:"venue_id"`
	Foil      *bool  `query:"foil" json:"foil"`
	Fill      bool   `query:"fill" json:"fill"`
}

type MarketIndexRequest struct {
	Currency  string `query:"currency" json:"currency" default:"USD" validate:"oneof=USD EUR JPY"`
	Period    string `query:"period" json:"period" default:"30d" validate:"oneof=24h 7d 30d 90d 1y all"`
	Condition string `query:"condition" json:"condition" validate:"omitempty,oneof=NM SP MP HP DMG"`
	Language  string `query:"language" json:"language" validate:"omitempty,oneof=en ja de fr it es"`
	VenueID   string `query:"venue_id" json:"venue_id"`
	Foil      *bool  `query:"foil" json:"foil"`
	Fill      bool   `query:"fill" json:"fill"`
}

type SignalsRequest struct {
	CardID   string `query:"card_id" json:"card_id" validate:"required"`
	Currency string `query:"currency" json:"currency" default:"USD" validate:"oneof=USD EUR JPY"`
	Period   string `query:"period" json:"period" default:"30d" validate:"oneof=7d 30d 90d"`
}

type ObservationsRequest struct {
	CardID string `query:"card_id" json:"card_id" validate:"required"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"1000" validate:"gte=1,lte=50000"`
}

type RunOutcomesRequest struct {
	BatchSize int `query:"batch_size" json:"batch_size" default:"100" validate:"gte=1,lte=1000"`
}

// IngestRequest is one observation in the ingest payload. Timestamps are
// RFC3339 or unix seconds; prices are decimal strings.
type IngestRequest struct {
	Time          string `json:"time" validate:"required"`
	CardID        string `json:"card_id" validate:"required"`
	VenueID       string `json:"venue_id" validate:"required"`
	Condition     string `json:"condition" default:"NM" validate:"oneof=NM SP MP HP DMG"`
	IsFoil        bool   `json:"is_foil"`
	Language      string `json:"language" default:"en" validate:"oneof=en ja de fr it es"`
	Price         string `json:"price" validate:"required"`
	PriceLow      string `json:"price_low"`
	PriceMid      string `json:"price_mid"`
	PriceHigh     string `json:"price_high"`
	PriceMarket   string `json:"price_market"`
	Currency      string `json:"currency" default:"USD" validate:"oneof=USD EUR JPY"`
	NumListings   uint32 `json:"num_listings"`
	TotalQuantity uint32 `json:"total_quantity"`
}

type IngestBatchRequest struct {
	Observations []IngestRequest `json:"observations" validate:"required,min=1,max=10000,dive"`
}

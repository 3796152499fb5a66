package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"CardPulse/internal/domain/models"
	domrepo "CardPulse/internal/domain/repository"
	pkgkafka "CardPulse/pkg/kafka"
)

// Pipeline is the ingest path Kafka messages are pushed through.
type Pipeline interface {
	Process(ctx context.Context, obs *models.PriceObservation) error
}

// KafkaObservationsHandler consumes observation messages published by
// the scraping adapters and feeds them into the ingest pipeline.
type KafkaObservationsHandler struct {
	topic   string
	pipe    Pipeline
	metrics domrepo.Metrics
}

func NewKafkaObservationsHandler(topic string, pipe Pipeline, metrics domrepo.Metrics) *KafkaObservationsHandler {
	return &KafkaObservationsHandler{topic: topic, pipe: pipe, metrics: metrics}
}

func (h *KafkaObservationsHandler) Topic() string { return h.topic }

// incoming message schema mirrors models.IngestRequest with unix or ms timestamps
func (h *KafkaObservationsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		T             int64  `json:"t"`
		CardID        string `json:"card_id"`
		VenueID       string `json:"venue_id"`
		Condition     string `json:"condition"`
		IsFoil        bool   `json:"is_foil"`
		Language      string `json:"language"`
		Price         string `json:"price"`
		PriceLow      string `json:"price_low"`
		PriceMid      string `json:"price_mid"`
		PriceHigh     string `json:"price_high"`
		PriceMarket   string `json:"price_market"`
		Currency      string `json:"currency"`
		NumListings   uint32 `json:"num_listings"`
		TotalQuantity uint32 `json:"total_quantity"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}
	// E2E latency from scrape time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.T, 0)).Seconds())

	obs := &models.PriceObservation{
		Time:          time.Unix(m.T, 0).UTC(),
		CardID:        m.CardID,
		VenueID:       m.VenueID,
		Condition:     models.Condition(m.Condition),
		IsFoil:        m.IsFoil,
		Language:      models.Language(m.Language),
		Price:         parseDec(m.Price),
		PriceLow:      parseDec(m.PriceLow),
		PriceMid:      parseDec(m.PriceMid),
		PriceHigh:     parseDec(m.PriceHigh),
		PriceMarket:   parseDec(m.PriceMarket),
		Currency:      models.Currency(m.Currency),
		NumListings:   m.NumListings,
		TotalQuantity: m.TotalQuantity,
	}
	if obs.Condition == "" {
		obs.Condition = models.CondNearMint
	}
	if obs.Language == "" {
		obs.Language = models.LangEnglish
	}
	if obs.Currency == "" {
		obs.Currency = models.CurrencyUSD
	}

	if err := h.pipe.Process(ctx, obs); err != nil {
		h.metrics.RecordError("consumer_ingest")
		return err
	}
	return nil
}

func parseDec(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

var _ pkgkafka.MessageHandler = (*KafkaObservationsHandler)(nil)

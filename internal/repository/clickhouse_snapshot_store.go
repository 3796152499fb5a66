package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"CardPulse/internal/domain/models"
	"CardPulse/internal/domain/repository"
	pkgkafka "CardPulse/pkg/kafka"
)

// CHSnapshotStore implements SnapshotStore for ClickHouse. The table is
// a ReplacingMergeTree ordered by the natural key with an ingestion
// version column, so repeated inserts for the same key collapse to the
// latest write during merges: upsert semantics without read-before-write.
type CHSnapshotStore struct {
	db    *sql.DB
	table string
}

// NewCHSnapshotStore creates ClickHouse snapshot storage.
func NewCHSnapshotStore(db *sql.DB, table string) repository.SnapshotStore {
	return &CHSnapshotStore{db: db, table: table}
}

func (s *CHSnapshotStore) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

const obsColumns = "ts, card_id, venue_id, condition, is_foil, language, price, price_low, price_mid, price_high, price_market, currency, num_listings, total_quantity, ingested_at"

func obsArgs(o *models.PriceObservation, now time.Time) []interface{} {
	return []interface{}{
		o.Time,
		o.CardID,
		o.VenueID,
		string(o.Condition),
		boolToUInt8(o.IsFoil),
		string(o.Language),
		o.Price,
		o.PriceLow,
		o.PriceMid,
		o.PriceHigh,
		o.PriceMarket,
		string(o.Currency),
		o.NumListings,
		o.TotalQuantity,
		now,
	}
}

func (s *CHSnapshotStore) Upsert(ctx context.Context, o *models.PriceObservation) error {
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table, obsColumns)
	if _, err := s.db.ExecContext(ctx, q, obsArgs(o, time.Now().UTC())...); err != nil {
		return fmt.Errorf("upsert observation: %w", err)
	}
	return nil
}

func (s *CHSnapshotStore) UpsertBatch(ctx context.Context, obs []*models.PriceObservation) (int, error) {
	if len(obs) == 0 {
		return 0, nil
	}
	// Batch insert using VALUES multi-row to reduce round-trips.
	// Chunk size tuned to 2000 rows per batch.
	const chunkSize = 2000
	now := time.Now().UTC()
	stored := 0
	for start := 0; start < len(obs); start += chunkSize {
		end := start + chunkSize
		if end > len(obs) {
			end = len(obs)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*15)
		for _, o := range obs[start:end] {
			if o == nil || !o.Valid() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, obsArgs(o, now)...)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, obsColumns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return stored, fmt.Errorf("upsert batch: %w", err)
		}
		stored += len(values)
	}
	return stored, nil
}

func (s *CHSnapshotStore) QueryRaw(ctx context.Context, cardID string, from, to time.Time, limit int) ([]*models.PriceObservation, error) {
	q := fmt.Sprintf(`
        SELECT ts, card_id, venue_id, condition, is_foil, language,
               price, price_low, price_mid, price_high, price_market,
               currency, num_listings, total_quantity
        FROM %s FINAL
        WHERE card_id = ? AND ts >= ? AND ts <= ?
        ORDER BY ts ASC
        LIMIT ?`, s.table)
	rows, err := s.db.QueryContext(ctx, q, cardID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("query raw: %w", err)
	}
	defer rows.Close()

	var out []*models.PriceObservation
	for rows.Next() {
		var (
			o    models.PriceObservation
			foil uint8
		)
		if err := rows.Scan(&o.Time, &o.CardID, &o.VenueID, &o.Condition, &foil, &o.Language,
			&o.Price, &o.PriceLow, &o.PriceMid, &o.PriceHigh, &o.PriceMarket,
			&o.Currency, &o.NumListings, &o.TotalQuantity); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		o.IsFoil = foil != 0
		out = append(out, &o)
	}
	return out, rows.Err()
}

func (s *CHSnapshotStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHSnapshotStore) Close() error {
	return nil // Managed by pkg
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// KafkaPublisher implements Publisher for Kafka.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func obsPayload(o *models.PriceObservation) map[string]interface{} {
	return map[string]interface{}{
		"t":              o.Time.Unix(),
		"card_id":        o.CardID,
		"venue_id":       o.VenueID,
		"condition":      string(o.Condition),
		"is_foil":        o.IsFoil,
		"language":       string(o.Language),
		"price":          o.Price.String(),
		"price_low":      o.PriceLow.String(),
		"price_mid":      o.PriceMid.String(),
		"price_high":     o.PriceHigh.String(),
		"price_market":   o.PriceMarket.String(),
		"currency":       string(o.Currency),
		"num_listings":   o.NumListings,
		"total_quantity": o.TotalQuantity,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, o *models.PriceObservation) error {
	return p.producer.Publish(ctx, p.topic, []byte(o.CardID), obsPayload(o))
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, obs []*models.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(obs))
	for i, o := range obs {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(o.CardID),
			Value: obsPayload(o),
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"CardPulse/internal/domain/models"
	domrepo "CardPulse/internal/domain/repository"
	pkgch "CardPulse/pkg/clickhouse"
	applogger "CardPulse/pkg/logger"
)

// CHMarketReader implements MarketReader backed by ClickHouse. Rollup
// queries hit the materialized rollup tables; raw-bucket queries
// aggregate the observation table on the fly with toStartOfInterval.
type CHMarketReader struct {
	db       *sql.DB
	database string
	rawTable string
	enabled  bool
	l        *applogger.Logger

	mu     sync.Mutex
	probes map[domrepo.Granularity]probe
}

type probe struct {
	ok bool
	at time.Time
}

// probeTTL bounds how often EXISTS TABLE is re-checked.
const probeTTL = time.Minute

func NewCHMarketReader(ch *pkgch.Client, database string, rollupsEnabled bool) *CHMarketReader {
	return &CHMarketReader{
		db:       ch.DB(),
		database: database,
		rawTable: database + ".price_observations",
		enabled:  rollupsEnabled,
		probes:   make(map[domrepo.Granularity]probe),
	}
}

// SetLogger injects a structured logger.
func (r *CHMarketReader) SetLogger(l *applogger.Logger) { r.l = l }

func (r *CHMarketReader) QueryRollups(ctx context.Context, cardID string, gran domrepo.Granularity, from, to time.Time, f models.FilterSet) ([]models.RollupRow, error) {
	start := time.Now()
	table, err := r.tableForGran(gran)
	if err != nil {
		return nil, err
	}

	where, args := rollupFilters(cardID, f)
	where = append(where, "bucket_time >= ?", "bucket_time < ?")
	args = append(args, from, to)

	const qtpl = `
        SELECT bucket_time, any(currency),
               avg(avg_price), avg(avg_market_price),
               min(min_price), max(max_price),
               sum(card_count), sum(total_listings), sum(volume)
        FROM %s
        WHERE %s
        GROUP BY bucket_time
        ORDER BY bucket_time ASC
    `
	q := fmt.Sprintf(qtpl, table, strings.Join(where, " AND "))
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		if r.l != nil {
			r.l.Error("clickhouse query_rollups query error",
				applogger.String("table", table),
				applogger.String("card_id", cardID),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query rollups: %w", err)
	}
	defer rows.Close()

	out := make([]models.RollupRow, 0, 256)
	for rows.Next() {
		row := models.RollupRow{CardID: cardID}
		if err := rows.Scan(&row.BucketTime, &row.Currency,
			&row.AvgPrice, &row.AvgMarket, &row.MinPrice, &row.MaxPrice,
			&row.CardCount, &row.TotalListings, &row.Volume); err != nil {
			return nil, fmt.Errorf("scan rollup: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if r.l != nil {
		r.l.Info("clickhouse query_rollups ok",
			applogger.String("table", table),
			applogger.String("card_id", cardID),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (r *CHMarketReader) QueryRawBuckets(ctx context.Context, cardID string, gran domrepo.Granularity, from, to time.Time, f models.FilterSet) ([]models.RollupRow, error) {
	start := time.Now()
	interval, err := intervalForGran(gran)
	if err != nil {
		return nil, err
	}

	where, args := rawFilters(cardID, f)
	where = append(where, "price > 0", "ts >= ?", "ts <= ?")
	args = append(args, from, to)

	const qtpl = `
        SELECT toStartOfInterval(ts, INTERVAL %s) AS bucket,
               any(currency),
               toDecimal64(avg(toFloat64(price)), 4),
               toDecimal64(avg(toFloat64(price_market)), 4),
               min(price), max(price),
               uniqExact(card_id), sum(num_listings), sum(total_quantity)
        FROM %s FINAL
        WHERE %s
        GROUP BY bucket
        ORDER BY bucket ASC
    `
	q := fmt.Sprintf(qtpl, interval, r.rawTable, strings.Join(where, " AND "))
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		if r.l != nil {
			r.l.Error("clickhouse raw_buckets query error",
				applogger.String("card_id", cardID),
				applogger.String("gran", string(gran)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query raw buckets: %w", err)
	}
	defer rows.Close()

	out := make([]models.RollupRow, 0, 64)
	for rows.Next() {
		row := models.RollupRow{CardID: cardID}
		if err := rows.Scan(&row.BucketTime, &row.Currency,
			&row.AvgPrice, &row.AvgMarket, &row.MinPrice, &row.MaxPrice,
			&row.CardCount, &row.TotalListings, &row.Volume); err != nil {
			return nil, fmt.Errorf("scan raw bucket: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if r.l != nil {
		r.l.Info("clickhouse raw_buckets ok",
			applogger.String("card_id", cardID),
			applogger.String("gran", string(gran)),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (r *CHMarketReader) RollupsAvailable(ctx context.Context, gran domrepo.Granularity) bool {
	if !r.enabled {
		return false
	}
	table, err := r.tableForGran(gran)
	if err != nil {
		return false
	}

	r.mu.Lock()
	p, hit := r.probes[gran]
	r.mu.Unlock()
	if hit && time.Since(p.at) < probeTTL {
		return p.ok
	}

	var exists uint8
	err = r.db.QueryRowContext(ctx, fmt.Sprintf("EXISTS TABLE %s", table)).Scan(&exists)
	ok := err == nil && exists == 1
	if err != nil && r.l != nil {
		r.l.Warn("clickhouse rollup probe failed",
			applogger.String("table", table),
			applogger.Error(err),
		)
	}

	r.mu.Lock()
	r.probes[gran] = probe{ok: ok, at: time.Now()}
	r.mu.Unlock()
	return ok
}

func rollupFilters(cardID string, f models.FilterSet) ([]string, []interface{}) {
	where := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	if cardID != "" {
		where = append(where, "card_id = ?")
		args = append(args, cardID)
	}
	if f.Currency != "" {
		where = append(where, "currency = ?")
		args = append(args, string(f.Currency))
	}
	if f.VenueID != "" {
		where = append(where, "venue_id = ?")
		args = append(args, f.VenueID)
	}
	return where, args
}

func rawFilters(cardID string, f models.FilterSet) ([]string, []interface{}) {
	where, args := rollupFilters(cardID, f)
	if f.Condition != "" {
		where = append(where, "condition = ?")
		args = append(args, string(f.Condition))
	}
	if f.Language != "" {
		where = append(where, "language = ?")
		args = append(args, string(f.Language))
	}
	if f.Foil != nil {
		where = append(where, "is_foil = ?")
		args = append(args, boolToUInt8(*f.Foil))
	}
	return where, args
}

func (r *CHMarketReader) tableForGran(g domrepo.Granularity) (string, error) {
	switch g {
	case domrepo.Gran30m, domrepo.Gran1h, domrepo.Gran1d:
		return fmt.Sprintf("%s.price_rollup_%s", r.database, g), nil
	default:
		return "", fmt.Errorf("unsupported granularity: %s", g)
	}
}

func intervalForGran(g domrepo.Granularity) (string, error) {
	switch g {
	case domrepo.Gran30m:
		return "30 minute", nil
	case domrepo.Gran1h:
		return "1 hour", nil
	case domrepo.Gran1d:
		return "1 day", nil
	default:
		return "", fmt.Errorf("unsupported granularity: %s", g)
	}
}

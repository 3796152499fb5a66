package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"CardPulse/internal/domain/models"
	domrepo "CardPulse/internal/domain/repository"
	pkgch "CardPulse/pkg/clickhouse"
	applogger "CardPulse/pkg/logger"
)

// CHRecommendationStore implements RecommendationStore backed by
// ClickHouse. The table is a ReplacingMergeTree versioned by
// evaluated_at, so writing the outcome annotation is an insert of the
// full row: the evaluated version supersedes the pending one at merge
// time, and FINAL hides the pending duplicate until then.
type CHRecommendationStore struct {
	db       *sql.DB
	table    string
	rawTable string
	l        *applogger.Logger
}

func NewCHRecommendationStore(ch *pkgch.Client, table, rawTable string) *CHRecommendationStore {
	return &CHRecommendationStore{db: ch.DB(), table: table, rawTable: rawTable}
}

// SetLogger injects a structured logger.
func (s *CHRecommendationStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHRecommendationStore) PendingEvaluation(ctx context.Context, asOf time.Time, limit int) ([]*models.Recommendation, error) {
	start := time.Now()
	const qtpl = `
        SELECT id, card_id, action, current_price, target_price,
               horizon_days, created_at, valid_until
        FROM %s FINAL
        WHERE evaluated_at = toDateTime(0) AND valid_until <= ?
        ORDER BY valid_until ASC
        LIMIT ?
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, asOf, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse pending_evaluation query error", applogger.Error(err))
		}
		return nil, fmt.Errorf("pending evaluation: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Recommendation, 0, limit)
	for rows.Next() {
		var (
			rec     models.Recommendation
			horizon int32
		)
		if err := rows.Scan(&rec.ID, &rec.CardID, &rec.Action, &rec.CurrentPrice, &rec.TargetPrice,
			&horizon, &rec.CreatedAt, &rec.ValidUntil); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		rec.HorizonDays = int(horizon)
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse pending_evaluation ok",
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHRecommendationStore) RealizedPrices(ctx context.Context, cardID string, from, to time.Time) ([]models.PricePoint, error) {
	const qtpl = `
        SELECT ts, price
        FROM %s FINAL
        WHERE card_id = ? AND ts >= ? AND ts <= ? AND price > 0
        ORDER BY ts ASC
    `
	q := fmt.Sprintf(qtpl, s.rawTable)
	rows, err := s.db.QueryContext(ctx, q, cardID, from, to)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse realized_prices query error",
				applogger.String("card_id", cardID),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("realized prices: %w", err)
	}
	defer rows.Close()

	out := make([]models.PricePoint, 0, 256)
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Time, &p.Price); err != nil {
			return nil, fmt.Errorf("scan price point: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *CHRecommendationStore) SaveOutcome(ctx context.Context, rec *models.Recommendation, res *models.OutcomeResult, at time.Time) error {
	const qtpl = `
        INSERT INTO %s (id, card_id, action, current_price, target_price,
                        horizon_days, created_at, valid_until,
                        price_end, price_peak, price_peak_at,
                        accuracy_end, accuracy_peak,
                        profit_pct_end, profit_pct_peak, evaluated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	q := fmt.Sprintf(qtpl, s.table)
	_, err := s.db.ExecContext(ctx, q,
		rec.ID, rec.CardID, string(rec.Action), rec.CurrentPrice, rec.TargetPrice,
		int32(rec.HorizonDays), rec.CreatedAt, rec.ValidUntil,
		res.PriceEnd, res.PricePeak, res.PricePeakAt,
		res.AccuracyEnd, res.AccuracyPeak,
		res.ProfitPctEnd, res.ProfitPctPeak, at,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse save_outcome error",
				applogger.String("id", rec.ID),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("save outcome: %w", err)
	}
	return nil
}

var _ domrepo.RecommendationStore = (*CHRecommendationStore)(nil)
var _ domrepo.MarketReader = (*CHMarketReader)(nil)

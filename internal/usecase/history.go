package usecase

import (
	"context"
	"fmt"
	"time"

	"CardPulse/internal/domain/models"
	domrepo "CardPulse/internal/domain/repository"
	"CardPulse/internal/services/chart"
	applogger "CardPulse/pkg/logger"
	"CardPulse/pkg/util"
)

// HistoryUseCase composes materialized rollups (historical, possibly
// stale) with live bucketed queries over raw observations (recent,
// authoritative) into one ordered series. The seam is a half-open/
// half-closed split on the lag cutoff: rollups cover
// [periodStart, cutoff), live covers [cutoff, now], so no bucket is
// counted twice and none is skipped.
type HistoryUseCase struct {
	reader  domrepo.MarketReader
	fill    chart.Config
	logger  *applogger.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewHistoryUseCase(reader domrepo.MarketReader, fill chart.Config, logger *applogger.Logger) *HistoryUseCase {
	return &HistoryUseCase{
		reader:  reader,
		fill:    fill,
		logger:  logger,
		timeout: 15 * time.Second,
		now:     time.Now,
	}
}

type GetHistoryParams struct {
	CardID  string
	Period  domrepo.PeriodSpec
	Filters models.FilterSet
	Fill    bool // densify for charting
}

type GetHistoryResult struct {
	CardID      string                    `json:"card_id,omitempty"`
	Currency    models.Currency           `json:"currency,omitempty"`
	Period      string                    `json:"period"`
	Granularity string                    `json:"granularity"`
	Count       int                       `json:"count"`
	Fallback    bool                      `json:"fallback,omitempty"`
	Points      []models.MarketIndexPoint `json:"points"`
}

// GetHistory returns the composed series for one card.
func (uc *HistoryUseCase) GetHistory(ctx context.Context, p GetHistoryParams) (*GetHistoryResult, error) {
	if p.CardID == "" {
		return nil, fmt.Errorf("card_id required")
	}
	return uc.compose(ctx, p.CardID, p.Period, p.Filters, p.Fill)
}

// GetMarketIndex returns the composed series aggregated across all cards
// in one currency.
func (uc *HistoryUseCase) GetMarketIndex(ctx context.Context, currency models.Currency, period domrepo.PeriodSpec, filters models.FilterSet, fill bool) (*GetHistoryResult, error) {
	if currency == "" {
		return nil, fmt.Errorf("currency required")
	}
	filters.Currency = currency
	res, err := uc.compose(ctx, "", period, filters, fill)
	if err != nil {
		return nil, err
	}
	res.Currency = currency
	return res, nil
}

func (uc *HistoryUseCase) compose(ctx context.Context, cardID string, period domrepo.PeriodSpec, filters models.FilterSet, fill bool) (*GetHistoryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	now := uc.now().UTC().Truncate(time.Second)
	cutoff := now.Add(-period.Lag)
	periodStart := time.Time{}
	if period.Lookback > 0 {
		periodStart = now.Add(-period.Lookback)
	}
	// Seam on a bucket boundary, else the cutoff bucket appears on both
	// sides of the split.
	periodStart, cutoff = util.AlignFromTo(periodStart, cutoff, string(period.Granularity))

	var (
		historical []models.RollupRow
		fallback   bool
	)
	if uc.reader.RollupsAvailable(ctx, period.Granularity) {
		rows, err := uc.reader.QueryRollups(ctx, cardID, period.Granularity, periodStart, cutoff, filters)
		if err != nil {
			return nil, fmt.Errorf("query rollups: %w", err)
		}
		historical = rows
	} else {
		// Documented fallback: no materialization in this deployment, the
		// live query covers the entire period.
		fallback = true
		cutoff = periodStart
		if uc.logger != nil {
			uc.logger.Warn("rollups unavailable, degrading to raw scan",
				applogger.String("granularity", string(period.Granularity)),
				applogger.String("period", period.Name),
			)
		}
	}

	live, err := uc.reader.QueryRawBuckets(ctx, cardID, period.Granularity, cutoff, now, filters)
	if err != nil {
		return nil, fmt.Errorf("query raw buckets: %w", err)
	}

	points := make([]models.MarketIndexPoint, 0, len(historical)+len(live))
	for _, r := range historical {
		points = append(points, models.PointFromRollup(r))
	}
	for _, r := range live {
		points = append(points, models.PointFromRollup(r))
	}

	if fill && len(points) >= 2 {
		points = uc.densify(points, period)
	}

	return &GetHistoryResult{
		CardID:      cardID,
		Period:      period.Name,
		Granularity: string(period.Granularity),
		Count:       len(points),
		Fallback:    fallback,
		Points:      points,
	}, nil
}

// densify runs the chart interpolator over average prices. Only the
// charting output is filled; other aggregates carry through on real
// buckets and are zero on synthesized ones.
func (uc *HistoryUseCase) densify(points []models.MarketIndexPoint, period domrepo.PeriodSpec) []models.MarketIndexPoint {
	step := period.Granularity.Step()
	sparse := make([]models.PricePoint, 0, len(points))
	byTime := make(map[int64]models.MarketIndexPoint, len(points))
	for _, p := range points {
		sparse = append(sparse, models.PricePoint{Time: p.BucketTime, Price: p.AvgPrice})
		byTime[p.BucketTime.Unix()] = p
	}
	start := points[0].BucketTime
	end := points[len(points)-1].BucketTime

	res := chart.Fill(uc.fill, sparse, start, end, step)
	out := make([]models.MarketIndexPoint, 0, len(res.Points))
	for _, fp := range res.Points {
		if orig, ok := byTime[fp.Time.Unix()]; ok {
			out = append(out, orig)
			continue
		}
		out = append(out, models.MarketIndexPoint{
			BucketTime: fp.Time,
			AvgPrice:   fp.Price,
			AvgMarket:  fp.Price,
			MinPrice:   fp.Price,
			MaxPrice:   fp.Price,
		})
	}
	return out
}

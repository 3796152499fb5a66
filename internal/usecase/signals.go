package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"CardPulse/internal/domain/models"
	domrepo "CardPulse/internal/domain/repository"
	"CardPulse/internal/services/signals"
	pkgcache "CardPulse/pkg/cache"
)

// SignalsUseCase computes the three independent signals for a
// (card, currency) cohort, fanning out so no signal waits on another.
// Results are cacheable: the cohort window is the cache key.
type SignalsUseCase struct {
	reader   domrepo.MarketReader
	detector *signals.Detector
	cache    pkgcache.Service
	cacheTTL time.Duration
	timeout  time.Duration
}

func NewSignalsUseCase(reader domrepo.MarketReader, detector *signals.Detector, cache pkgcache.Service, cacheTTL time.Duration) *SignalsUseCase {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &SignalsUseCase{
		reader:   reader,
		detector: detector,
		cache:    cache,
		cacheTTL: cacheTTL,
		timeout:  10 * time.Second,
	}
}

type GetSignalsParams struct {
	CardID   string
	Currency models.Currency
	Period   domrepo.PeriodSpec
}

func (uc *SignalsUseCase) GetSignals(ctx context.Context, p GetSignalsParams) (*models.SignalSet, error) {
	if p.CardID == "" {
		return nil, fmt.Errorf("card_id required")
	}
	if p.Currency == "" {
		p.Currency = models.CurrencyUSD
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	key := fmt.Sprintf("signals:%s:%s:%s", p.CardID, p.Currency, p.Period.Name)
	if uc.cache != nil {
		var raw string
		if err := uc.cache.Get(ctx, key, &raw); err == nil {
			var cached models.SignalSet
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	now := time.Now().UTC()
	from := now
	if p.Period.Lookback > 0 {
		from = now.Add(-p.Period.Lookback)
	} else {
		from = time.Time{}
	}
	filters := models.FilterSet{Currency: p.Currency}
	var (
		rows []models.RollupRow
		err  error
	)
	if uc.reader.RollupsAvailable(ctx, p.Period.Granularity) {
		rows, err = uc.reader.QueryRollups(ctx, p.CardID, p.Period.Granularity, from, now, filters)
	} else {
		rows, err = uc.reader.QueryRawBuckets(ctx, p.CardID, p.Period.Granularity, from, now, filters)
	}
	if err != nil {
		return nil, fmt.Errorf("query buckets: %w", err)
	}

	res := &models.SignalSet{
		CardID:    p.CardID,
		Currency:  p.Currency,
		Period:    p.Period.Name,
		Timestamp: now,
	}

	type item struct {
		name string
		sig  *models.Signal
	}
	ch := make(chan item, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		ch <- item{"momentum", uc.detector.Momentum(p.CardID, p.Currency, p.Period.Name, rows)}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		ch <- item{"volatility", uc.detector.Volatility(p.CardID, p.Currency, p.Period.Name, rows)}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		ch <- item{"trend", uc.detector.Trend(p.CardID, p.Currency, p.Period.Name, rows)}
	}()

	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		switch it.name {
		case "momentum":
			res.Momentum = it.sig
		case "volatility":
			res.Volatility = it.sig
		case "trend":
			res.Trend = it.sig
		}
	}

	if uc.cache != nil {
		if b, err := json.Marshal(res); err == nil {
			_ = uc.cache.Set(ctx, key, string(b), uc.cacheTTL)
		}
	}
	return res, nil
}

package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CardPulse/internal/domain/models"
	domrepo "CardPulse/internal/domain/repository"
	"CardPulse/internal/services/signals"
	pkgcache "CardPulse/pkg/cache"
)

func risingRollups(n int, start time.Time) []models.RollupRow {
	rows := make([]models.RollupRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, rollupAt(start.Add(time.Duration(i)*time.Hour), 10+float64(i)))
	}
	return rows
}

func TestGetSignalsComputesAllThree(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	r := &fakeReader{avail: true, rollups: risingRollups(12, start)}
	uc := NewSignalsUseCase(r, signals.NewDetector(signals.DefaultConfig()), nil, time.Minute)

	res, err := uc.GetSignals(context.Background(), GetSignalsParams{
		CardID: "card-1",
		Period: domrepo.NormalizePeriod("30d"),
	})
	require.NoError(t, err)

	require.NotNil(t, res.Momentum)
	assert.Equal(t, models.DirUp, res.Momentum.Direction)
	require.NotNil(t, res.Trend)
	assert.Equal(t, models.DirUptrend, res.Trend.Direction)
	assert.Equal(t, models.CurrencyUSD, res.Currency)
	assert.Equal(t, 1, r.rollupCalls)
}

func TestGetSignalsCacheHitSkipsReader(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	r := &fakeReader{avail: true, rollups: risingRollups(12, start)}
	mem := pkgcache.NewMemoryCache()
	defer mem.Close()
	uc := NewSignalsUseCase(r, signals.NewDetector(signals.DefaultConfig()), mem, time.Minute)

	p := GetSignalsParams{CardID: "card-1", Period: domrepo.NormalizePeriod("30d")}

	first, err := uc.GetSignals(context.Background(), p)
	require.NoError(t, err)
	second, err := uc.GetSignals(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, 1, r.rollupCalls)
	require.NotNil(t, second.Momentum)
	assert.True(t, first.Momentum.Value == second.Momentum.Value)
}

func TestGetSignalsFallsBackToRawBuckets(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	r := &fakeReader{avail: false, raw: risingRollups(12, start)}
	uc := NewSignalsUseCase(r, signals.NewDetector(signals.DefaultConfig()), nil, time.Minute)

	res, err := uc.GetSignals(context.Background(), GetSignalsParams{
		CardID: "card-1",
		Period: domrepo.NormalizePeriod("7d"),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, r.rollupCalls)
	require.NotNil(t, res.Momentum)
}

func TestGetSignalsRequiresCardID(t *testing.T) {
	uc := NewSignalsUseCase(&fakeReader{}, signals.NewDetector(signals.DefaultConfig()), nil, time.Minute)
	_, err := uc.GetSignals(context.Background(), GetSignalsParams{})
	assert.Error(t, err)
}

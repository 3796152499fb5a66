package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CardPulse/internal/domain/models"
)

type fakeMetrics struct {
	stored  int
	dropped map[string]int
	errors  map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{dropped: map[string]int{}, errors: map[string]int{}}
}

func (m *fakeMetrics) RecordObservationStored(string, string) { m.stored++ }
func (m *fakeMetrics) RecordObservationDropped(reason string) { m.dropped[reason]++ }
func (m *fakeMetrics) RecordError(kind string)                { m.errors[kind]++ }
func (m *fakeMetrics) RecordLastPrice(string, float64)        {}
func (m *fakeMetrics) RecordLatency(string, float64)          {}

type fakeStore struct {
	upserts int
	batches [][]*models.PriceObservation
	err     error
}

func (s *fakeStore) Init(context.Context) error { return nil }
func (s *fakeStore) Upsert(_ context.Context, _ *models.PriceObservation) error {
	s.upserts++
	return s.err
}
func (s *fakeStore) UpsertBatch(_ context.Context, obs []*models.PriceObservation) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.batches = append(s.batches, obs)
	return len(obs), nil
}
func (s *fakeStore) QueryRaw(context.Context, string, time.Time, time.Time, int) ([]*models.PriceObservation, error) {
	return nil, nil
}
func (s *fakeStore) Health(context.Context) error { return nil }
func (s *fakeStore) Close() error                 { return nil }

type fakePub struct {
	published int
	batches   int
}

func (p *fakePub) Publish(context.Context, *models.PriceObservation) error { p.published++; return nil }
func (p *fakePub) PublishBatch(_ context.Context, obs []*models.PriceObservation) error {
	p.batches++
	p.published += len(obs)
	return nil
}
func (p *fakePub) Close() error { return nil }

func validObs(cardID string, price float64) *models.PriceObservation {
	return &models.PriceObservation{
		Time:      time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		CardID:    cardID,
		VenueID:   "tcg",
		Condition: models.CondNearMint,
		Language:  models.LangEnglish,
		Price:     decimal.NewFromFloat(price),
		Currency:  models.CurrencyUSD,
	}
}

func TestIngestDropsInvalid(t *testing.T) {
	m := newFakeMetrics()
	uc := NewIngestUseCase(nil, &fakeStore{}, m, "clickhouse")

	bad := validObs("card-1", 0) // non-positive price
	stats, err := uc.Ingest(context.Background(), bad)
	require.NoError(t, err, "invalid rows are counted, not errored")
	assert.Equal(t, models.IngestStats{Dropped: 1}, stats)
	assert.Equal(t, 1, m.dropped["bad_price"])

	noVenue := validObs("card-1", 5)
	noVenue.VenueID = ""
	stats, err = uc.Ingest(context.Background(), noVenue)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Dropped)
	assert.Equal(t, 1, m.dropped["missing_dimension"])
}

func TestIngestBatchSkipsAndCounts(t *testing.T) {
	m := newFakeMetrics()
	store := &fakeStore{}
	uc := NewIngestUseCase(nil, store, m, "clickhouse")

	obs := []*models.PriceObservation{
		validObs("card-1", 10),
		validObs("card-2", 0), // dropped
		validObs("card-3", 12),
	}
	stats, err := uc.IngestBatch(context.Background(), obs)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Stored)
	assert.Equal(t, 1, stats.Dropped)
	require.Len(t, store.batches, 1)
	assert.Len(t, store.batches[0], 2)
	assert.Equal(t, 2, m.stored)
}

func TestIngestBatchAllInvalid(t *testing.T) {
	m := newFakeMetrics()
	store := &fakeStore{}
	uc := NewIngestUseCase(nil, store, m, "clickhouse")

	stats, err := uc.IngestBatch(context.Background(), []*models.PriceObservation{
		validObs("", 10),
		nil,
	})
	require.NoError(t, err)
	assert.Equal(t, models.IngestStats{Dropped: 2}, stats)
	assert.Empty(t, store.batches, "no backend write for an all-invalid batch")
}

func TestIngestKafkaBackend(t *testing.T) {
	m := newFakeMetrics()
	pub := &fakePub{}
	uc := NewIngestUseCase(pub, nil, m, "kafka")

	stats, err := uc.Ingest(context.Background(), validObs("card-1", 10))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Stored)
	assert.Equal(t, 1, pub.published)

	stats, err = uc.IngestBatch(context.Background(), []*models.PriceObservation{
		validObs("card-1", 10),
		validObs("card-2", 11),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Stored)
	assert.Equal(t, 1, pub.batches)
}

func TestIngestBackendFailure(t *testing.T) {
	m := newFakeMetrics()
	store := &fakeStore{err: errors.New("boom")}
	uc := NewIngestUseCase(nil, store, m, "clickhouse")

	_, err := uc.Ingest(context.Background(), validObs("card-1", 10))
	assert.Error(t, err)
	assert.Equal(t, 1, m.errors["ingest"])
}

func TestIngestUnknownBackend(t *testing.T) {
	uc := NewIngestUseCase(nil, &fakeStore{}, newFakeMetrics(), "postgres")
	_, err := uc.Ingest(context.Background(), validObs("card-1", 10))
	assert.Error(t, err)
}

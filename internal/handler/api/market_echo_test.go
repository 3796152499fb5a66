package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CardPulse/internal/domain/models"
)

func ingestRow(t, price string) models.IngestRequest {
	return models.IngestRequest{
		Time:     t,
		CardID:   "card-1",
		VenueID:  "venue-1",
		Price:    price,
		Currency: "USD",
	}
}

func TestObservationFromRequestBadRowsBecomeDroppable(t *testing.T) {
	// A malformed row maps to an invalid observation that the batch
	// drops and counts; it never aborts the whole request.
	badPrice := ingestRow("2024-05-01T10:00:00Z", "not-a-price")
	o := observationFromRequest(&badPrice)
	assert.False(t, o.Valid())
	assert.True(t, o.Price.IsZero())

	badTime := ingestRow("yesterday-ish", "1.50")
	o = observationFromRequest(&badTime)
	assert.False(t, o.Valid())
	assert.True(t, o.Time.IsZero())
}

func TestObservationFromRequestGoodRow(t *testing.T) {
	row := ingestRow("2024-05-01T10:00:00Z", "1.50")
	row.PriceMarket = "1.75"

	o := observationFromRequest(&row)
	require.True(t, o.Valid())
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), o.Time)
	assert.Equal(t, "1.5", o.Price.String())
	assert.Equal(t, "1.75", o.PriceMarket.String())
}

func TestParseTimestampUnixSeconds(t *testing.T) {
	ts, err := parseTimestamp("1714557600")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), ts)
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"CardPulse/internal/domain/models"
	domrepo "CardPulse/internal/domain/repository"
)

// ObservationsUseCase provides raw observation listing for debugging and
// spot checks; charting goes through HistoryUseCase instead.
type ObservationsUseCase struct {
	store domrepo.SnapshotStore
}

func NewObservationsUseCase(store domrepo.SnapshotStore) *ObservationsUseCase {
	return &ObservationsUseCase{store: store}
}

type GetObservationsParams struct {
	CardID string
	From   time.Time
	To     time.Time
	Limit  int
}

type GetObservationsResult struct {
	CardID       string                     `json:"card_id"`
	From         time.Time                  `json:"from"`
	To           time.Time                  `json:"to"`
	Count        int                        `json:"count"`
	Observations []*models.PriceObservation `json:"observations"`
}

func (uc *ObservationsUseCase) GetObservations(ctx context.Context, p GetObservationsParams) (*GetObservationsResult, error) {
	if p.CardID == "" {
		return nil, fmt.Errorf("card_id required")
	}
	if p.From.After(p.To) {
		return nil, fmt.Errorf("from must be <= to")
	}
	if p.Limit <= 0 {
		p.Limit = 1000
	}
	if p.Limit > 50000 {
		p.Limit = 50000
	}

	obs, err := uc.store.QueryRaw(ctx, p.CardID, p.From, p.To, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}

	return &GetObservationsResult{
		CardID:       p.CardID,
		From:         p.From,
		To:           p.To,
		Count:        len(obs),
		Observations: obs,
	}, nil
}

//go:build wireinject
// +build wireinject

package di

import (
	"CardPulse/pkg/config"
	"CardPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCache,

		// Repositories
		ProvideSnapshotStore,
		ProvideObservationPublisher,
		ProvideMarketReader,
		ProvideRecommendationStore,

		// Domain services
		ProvideDetector,
		ProvideChartConfig,
		ProvideEvaluator,

		// Use cases
		ProvideHistoryUseCase,
		ProvideSignalsUseCase,
		ProvideObservationsUseCase,
		ProvideIngestUseCase,
		ProvideIngestPipeline,
		ProvideKafkaObservationsHandler,
		ProvideOutcomeUseCase,

		// Surfaces
		ProvideMarketHandler,
		ProvideEvaluatorCron,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	domservice "DemandLoop/internal/domain/service"
	"DemandLoop/internal/usecase"
	"DemandLoop/pkg/config"
	applogger "DemandLoop/pkg/logger"
	"DemandLoop/pkg/server"
)

var infraSet = wire.NewSet(
	ProvideMetrics,
	ProvidePostgresPool,
	ProvideStores,
	ProvideRedisClient,
	ProvideRateLimiter,
	ProvideResponseCache,
	ProvideClickHouseClient,
	ProvidePredictionArchive,
	ProvideKafkaProducer,
	ProvideKafkaConsumer,
	ProvideHub,
	ProvidePredictionPublisher,
)

var useCaseSet = wire.NewSet(
	ProvideRecomputeUseCase,
	wire.Bind(new(domservice.Recomputer), new(*usecase.RecomputeUseCase)),
	ProvideRecomputePipeline,
	ProvideCheckinUseCase,
	ProvidePlacesUseCase,
	ProvidePlaceDetailUseCase,
	ProvideTrendingUseCase,
	ProvideHistoryUseCase,
	ProvideSignalIngestHandler,
)

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(cfg *config.Config, l *applogger.Logger) (*server.App, error) {
	wire.Build(
		infraSet,
		useCaseSet,
		ProvideHandlers,
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeRecomputeJob wires only what a one-shot recompute pass needs.
func InitializeRecomputeJob(cfg *config.Config, l *applogger.Logger) (*RecomputeJob, error) {
	wire.Build(
		ProvideMetrics,
		ProvidePostgresPool,
		ProvideStores,
		ProvideClickHouseClient,
		ProvidePredictionArchive,
		ProvideKafkaProducer,
		ProvideBatchPublisher,
		ProvideRecomputeUseCase,
		ProvideRecomputeJob,
	)
	return &RecomputeJob{}, nil
}

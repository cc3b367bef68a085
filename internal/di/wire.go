//go:build wireinject
// +build wireinject

package di

import (
	"LPPLWatch/pkg/config"
	"LPPLWatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Logging and metrics
		ProvideLogger,
		ProvideRegisterer,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisClient,
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Pipeline services
		ProvidePriceHistory,
		ProvideCurveFitter,
		ProvideAggregator,
		ProvideRenderer,
		ProvideRetention,
		ProvideLayout,

		// Repositories
		ProvideConfidenceStore,
		ProvideSignalPublisher,

		// Use cases
		ProvideRunOrchestrator,
		ProvideBatchRunner,
		ProvideRunQueue,
		ProvideRunTrigger,
		ProvideSignalQuery,

		// Application server
		ProvideHTTPHandler,
		ProvideApp,
	)
	return nil, nil, nil
}

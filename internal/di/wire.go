//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"OmniTrackIQ/pkg/config"
	"OmniTrackIQ/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideRegisterer,
		ProvideMetrics,
		ProvideTracer,

		// Infrastructure clients
		ProvideLedger,
		ProvideCacheStore,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Use cases
		ProvideResultCache,
		ProvideBase,
		ProvideAnomalyUseCase,
		ProvideAttributionUseCase,
		ProvideMixUseCase,
		ProvideIncrementalityUseCase,
		ProvideLedgerEventsHandler,

		// Transport
		ProvideLimiter,
		ProvideAnalyticsHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil
}

//go:build wireinject
// +build wireinject

package di

import (
	"CandleVault/pkg/config"
	"CandleVault/pkg/server"

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

		// Repositories
		ProvideCandleStorage,
		ProvideCandlePublisher,
		ProvideQueue,
		ProvideValidationCache,
		ProvideIndex,

		// Pipeline stages
		ProvideRateLimiter,
		ProvideScreener,
		ProvideValidator,
		ProvideAnalyzer,
		ProvideSuggester,
		ProvideHistory,

		// Use cases
		ProvideCommitter,
		ProvidePipeline,
		ProvideTransfer,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

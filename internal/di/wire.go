//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"PriceCast/pkg/config"
	"PriceCast/pkg/server"
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
		ProvideBytesCache,

		// Repositories
		ProvideForecastStore,
		ProvideObservationSource,
		ProvideDocumentFile,
		ProvideSinks,

		// Use cases
		ProvideForecastEngine,
		ProvideDocumentPublisher,

		// Transport
		ProvideHTTPServer,
		ProvideRebuildConsumer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

//go:build wireinject
// +build wireinject

package di

import (
	"BreakoutScan/pkg/config"
	"BreakoutScan/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideRecorder,
		ProvideMetrics,
		ProvideLogCollector,

		// Infrastructure clients
		ProvideRedis,
		ProvideCache,
		ProvideLocker,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideScanQueue,
		ProvideLimiter,

		// Data and detectors
		ProvideMarketData,
		ProvideEngine,
		ProvideScanner,

		// Output
		ProvideRunStore,
		ProvideSinks,
		ProvideNotifiers,
		ProvideDispatcher,
		ProvideTickerSource,

		// HTTP
		ProvideScanHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}

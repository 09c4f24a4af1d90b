//go:build wireinject
// +build wireinject

package di

import (
	"datasync/internal"
	"datasync/internal/controllers"
	"datasync/internal/fetcher"
	"datasync/internal/providers"
	"datasync/internal/scheduler"
	"datasync/internal/services"
	"datasync/internal/storage"
	"datasync/internal/structures"
	wire "github.com/google/wire"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, func(), error) {

	wire.Build(
		providers.NewConfigProvider,
		provideLogger,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,
		providers.NewHttpClientProvider,

		provideCompressor,
		storage.NewSinkProvider,
		fetcher.NewPaginatedFetcher,
		services.NewCleanerService,
		services.NewPipelineService,
		scheduler.NewScheduler,
		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil, nil
}

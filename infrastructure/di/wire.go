//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/Jayli58/do-we-have-it-backend/application/services"
	"github.com/Jayli58/do-we-have-it-backend/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogLevel,
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideStoreClient,
	ProvideMetrics,
	ProvideRecorder,
	ProvideRepository,
	ProvideReconciler,
	ProvideEventPublisher,
	ProvideJWTValidator,
	ProvideAuthConfig,
	services.NewInventoryService,
	services.NewTemplateService,
	services.NewSearchService,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}

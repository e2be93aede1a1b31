// Package di assembles the application from configuration.
package di

import (
	"go.uber.org/zap"

	"github.com/Jayli58/do-we-have-it-backend/application/ports"
	"github.com/Jayli58/do-we-have-it-backend/application/services"
	"github.com/Jayli58/do-we-have-it-backend/infrastructure/config"
	"github.com/Jayli58/do-we-have-it-backend/interfaces/http/rest"
	"github.com/Jayli58/do-we-have-it-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Level      zap.AtomicLevel
	Repository ports.InventoryRepository
	Reconciler ports.SearchIndexReconciler
	Publisher  ports.EventPublisher
	Inventory  *services.InventoryService
	Templates  *services.TemplateService
	Search     *services.SearchService
	Metrics    *observability.Collector
	Router     *rest.Router
}

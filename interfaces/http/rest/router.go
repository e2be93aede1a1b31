// Package rest wires the HTTP routes of the inventory API.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Jayli58/do-we-have-it-backend/application/services"
	"github.com/Jayli58/do-we-have-it-backend/interfaces/http/rest/handlers"
	"github.com/Jayli58/do-we-have-it-backend/interfaces/http/rest/middleware"
	"github.com/Jayli58/do-we-have-it-backend/pkg/observability"
)

// Router creates and configures the HTTP router
type Router struct {
	inventory   *services.InventoryService
	templates   *services.TemplateService
	search      *services.SearchService
	authConfig  middleware.AuthConfig
	metrics     *observability.Collector
	frontendURL string
	logger      *zap.Logger
}

// NewRouter creates a new router instance. metrics may be nil.
func NewRouter(
	inventory *services.InventoryService,
	templates *services.TemplateService,
	search *services.SearchService,
	authConfig middleware.AuthConfig,
	metrics *observability.Collector,
	frontendURL string,
	logger *zap.Logger,
) *Router {
	return &Router{
		inventory:   inventory,
		templates:   templates,
		search:      search,
		authConfig:  authConfig,
		metrics:     metrics,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.metrics != nil {
		router.Use(rt.metrics.Middleware)
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.allowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", middleware.UserIDHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.metrics != nil {
		router.Handle("/metrics", rt.metrics.Handler())
	}

	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.authConfig, rt.logger))

		r.Route("/folders", func(r chi.Router) {
			folderHandler := handlers.NewFolderHandler(rt.inventory, rt.logger)
			r.Get("/", folderHandler.GetContents)
			r.Post("/", folderHandler.CreateFolder)
			r.Put("/{id}", folderHandler.UpdateFolder)
			r.Delete("/{id}", folderHandler.DeleteFolder)
		})

		r.Route("/items", func(r chi.Router) {
			itemHandler := handlers.NewItemHandler(rt.inventory, rt.search, rt.logger)
			r.Post("/", itemHandler.CreateItem)
			r.Get("/search", itemHandler.SearchItems)
			r.Get("/{id}", itemHandler.GetItem)
			r.Put("/{id}", itemHandler.UpdateItem)
			r.Delete("/{id}", itemHandler.DeleteItem)
		})

		r.Route("/templates", func(r chi.Router) {
			templateHandler := handlers.NewTemplateHandler(rt.templates, rt.logger)
			r.Get("/", templateHandler.ListTemplates)
			r.Post("/", templateHandler.CreateTemplate)
			r.Get("/{id}", templateHandler.GetTemplate)
			r.Put("/{id}", templateHandler.UpdateTemplate)
			r.Delete("/{id}", templateHandler.DeleteTemplate)
		})
	})

	return router
}

func (rt *Router) allowedOrigins() []string {
	origins := []string{"http://localhost:3000"}
	if rt.frontendURL != "" && rt.frontendURL != origins[0] {
		origins = append(origins, rt.frontendURL)
	}
	return origins
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

// Package server implements the blobstore HTTP server and its route table.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bleepstore/blobstore/blobstore"
	"github.com/bleepstore/blobstore/internal/config"
	"github.com/bleepstore/blobstore/internal/handlers"
)

// Server is the blobstore HTTP server. JSON API operations are registered
// through Huma; object bodies are served by raw handlers on the same Chi
// router.
type Server struct {
	cfg        *config.Config
	engine     *blobstore.Engine
	router     chi.Router
	api        huma.API
	containers *handlers.ContainerHandler
	objects    *handlers.ObjectHandler
	httpServer *http.Server
}

// HealthBody is the JSON body returned by the health check endpoint.
type HealthBody struct {
	Status string `json:"status" example:"ok" doc:"Health status"`
}

// HealthOutput is the Huma output struct for the health check endpoint.
type HealthOutput struct {
	Body HealthBody
}

// New creates a new Server for engine and wires up all routes on the Chi
// router with the Huma API.
func New(cfg *config.Config, engine *blobstore.Engine) (*Server, error) {
	router := chi.NewMux()

	humaConfig := huma.DefaultConfig("Blobstore API", "1.0.0")
	humaConfig.DocsPath = "/docs"
	humaConfig.OpenAPIPath = "/openapi"
	api := humachi.New(router, humaConfig)

	s := &Server{
		cfg:        cfg,
		engine:     engine,
		router:     router,
		api:        api,
		containers: handlers.NewContainerHandler(engine, cfg.Store.ListPageSize),
		objects:    handlers.NewObjectHandler(engine, cfg.Store.MaxObjectSize, cfg.Store.ReadChunkSize),
	}
	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the router wrapped in the middleware chain:
// metricsMiddleware -> commonHeaders -> requestLogger -> gzip -> router.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.router
	handler = gzhttp.GzipHandler(handler)
	handler = requestLogger(handler)
	handler = commonHeaders(handler)
	if s.cfg.Metrics.Enabled {
		handler = metricsMiddleware(handler)
	}
	return handler
}

// ListenAndServe starts the HTTP server on the configured address.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server, waiting for in-flight
// requests to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// registerRoutes configures all routes on the Chi router.
// Huma operations carry the JSON API and generate the OpenAPI document.
// Object bodies use raw handlers under /containers/{container}/objects/*.
func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the blobstore server.",
		Tags:        []string{"System"},
	}, func(ctx context.Context, input *struct{}) (*HealthOutput, error) {
		return &HealthOutput{Body: HealthBody{Status: "ok"}}, nil
	})

	// Register HEAD /health separately (Huma only does one method per registration).
	s.router.Head("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
	})

	if s.cfg.Metrics.Enabled {
		s.router.Handle("/metrics", promhttp.Handler())
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-stats",
		Method:      http.MethodGet,
		Path:        "/stats",
		Summary:     "Store statistics",
		Description: "Returns container, object and byte totals.",
		Tags:        []string{"System"},
	}, s.containers.Stats)

	s.registerContainerRoutes()
	s.registerObjectRoutes()
}

func (s *Server) registerContainerRoutes() {
	tags := []string{"Containers"}

	huma.Register(s.api, huma.Operation{
		OperationID: "list-containers",
		Method:      http.MethodGet,
		Path:        "/containers",
		Summary:     "List containers",
		Tags:        tags,
	}, s.containers.ListContainers)

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-container",
		Method:        http.MethodPut,
		Path:          "/containers/{container}",
		Summary:       "Create a container",
		Tags:          tags,
		DefaultStatus: http.StatusCreated,
	}, s.containers.CreateContainer)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-container",
		Method:      http.MethodGet,
		Path:        "/containers/{container}",
		Summary:     "Get container metadata",
		Tags:        tags,
	}, s.containers.GetContainer)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-container",
		Method:      http.MethodDelete,
		Path:        "/containers/{container}",
		Summary:     "Delete a container",
		Description: "Deletes an empty container, or any container when force is set.",
		Tags:        tags,
	}, s.containers.DeleteContainer)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-objects",
		Method:      http.MethodGet,
		Path:        "/containers/{container}/objects",
		Summary:     "List object names",
		Description: "Returns one page of the container's object names in ascending order.",
		Tags:        tags,
	}, s.containers.ListObjects)

	huma.Register(s.api, huma.Operation{
		OperationID: "clear-container",
		Method:      http.MethodDelete,
		Path:        "/containers/{container}/objects",
		Summary:     "Remove every object from a container",
		Tags:        tags,
	}, s.containers.ClearContainer)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-objects",
		Method:      http.MethodPost,
		Path:        "/containers/{container}/delete",
		Summary:     "Delete several objects",
		Tags:        tags,
	}, s.containers.DeleteObjects)
}

func (s *Server) registerObjectRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "copy-object",
		Method:      http.MethodPost,
		Path:        "/copy",
		Summary:     "Copy an object",
		Tags:        []string{"Objects"},
	}, s.objects.CopyObject)

	huma.Register(s.api, huma.Operation{
		OperationID: "move-object",
		Method:      http.MethodPost,
		Path:        "/move",
		Summary:     "Move an object",
		Tags:        []string{"Objects"},
	}, s.objects.MoveObject)

	// Object bodies are raw bytes and bypass Huma.
	const objectPath = "/containers/{container}/objects/*"
	s.router.Put(objectPath, s.objects.PutObject)
	s.router.Get(objectPath, s.objects.GetObject)
	s.router.Head(objectPath, s.objects.HeadObject)
	s.router.Delete(objectPath, s.objects.DeleteObject)
}

// Package app contains the application setup for the product service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/catalog/internal/config"
	"github.com/abgdnv/catalog/internal/service"
	"github.com/abgdnv/catalog/internal/store"
	"github.com/abgdnv/catalog/internal/transport/rest"
	"github.com/abgdnv/catalog/pkg/bootstrap"
	pkgconfig "github.com/abgdnv/catalog/pkg/config"
	"github.com/abgdnv/catalog/pkg/messaging"
	"github.com/abgdnv/catalog/pkg/nats"
	"github.com/abgdnv/catalog/pkg/server"
	"github.com/go-chi/chi/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

// CloseFunc releases a resource acquired during setup.
type CloseFunc func(ctx context.Context) error

type Dependencies struct {
	ProductService  service.ProductService
	Logger          *slog.Logger
	HideErrorDetail bool
	// MetricsHandler is mounted at MetricsPath when not nil.
	MetricsHandler http.Handler
	MetricsPath    string
}

func SetupDependencies(repo store.ProductStore, publisher messaging.Publisher, logger *slog.Logger, cfg *config.Config) *Dependencies {
	return &Dependencies{
		ProductService:  service.NewService(repo, publisher, logger),
		Logger:          logger,
		HideErrorDetail: cfg.API.HideErrorDetail,
		MetricsPath:     cfg.Telemetry.Metrics.Path,
	}
}

// NewStore opens the store selected by cfg.Driver and prepares its schema.
func NewStore(ctx context.Context, cfg pkgconfig.DatabaseConfig, logger *slog.Logger) (store.ProductStore, CloseFunc, error) {
	switch cfg.Driver {
	case pkgconfig.DriverMemory:
		logger.Warn("Using in-memory product store, data is lost on restart")
		return store.NewInMemoryStore(), func(context.Context) error { return nil }, nil

	case pkgconfig.DriverMongo:
		client, err := bootstrap.NewMongoClient(ctx, cfg.URL, cfg.Timeout)
		if err != nil {
			return nil, nil, err
		}
		mongoStore := store.NewMongoStore(client.Database(cfg.Name).Collection(cfg.Collection))
		schemaCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		if err := mongoStore.EnsureSchema(schemaCtx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		logger.Info("Connected to MongoDB", "database", cfg.Name, "collection", cfg.Collection)
		return mongoStore, client.Disconnect, nil

	case pkgconfig.DriverPostgres:
		if err := store.MigratePostgres(cfg.URL); err != nil {
			return nil, nil, err
		}
		dbPool, err := bootstrap.NewDbPool(ctx, cfg.URL, cfg.Timeout)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Connected to PostgreSQL, migrations applied")
		return store.NewPgStore(dbPool), func(context.Context) error {
			dbPool.Close()
			return nil
		}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}
}

// NewPublisher connects to NATS JetStream and returns a breaker-guarded event publisher.
// A NoopPublisher is returned when NATS is disabled.
func NewPublisher(ctx context.Context, cfg pkgconfig.NATSConfig, cb pkgconfig.CircuitBreakerConfig, logger *slog.Logger) (messaging.Publisher, CloseFunc, error) {
	if !cfg.Enabled {
		logger.Info("NATS disabled, product events are not published")
		return messaging.NoopPublisher{}, func(context.Context) error { return nil }, nil
	}

	nc, err := nats.NewClient(cfg.Url, cfg.Timeout)
	if err != nil {
		return nil, nil, err
	}
	js, err := nats.NewJetStreamContext(nc)
	if err != nil {
		return nil, nil, err
	}
	streamCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := nats.EnsureStream(streamCtx, js, cfg.Stream, messaging.ProductsSubjects); err != nil {
		nc.Close()
		return nil, nil, err
	}
	logger.Info("Connected to NATS JetStream", "stream", cfg.Stream)

	publisher := messaging.NewBreakerPublisher(nats.NewNatsPublisher(js), cb, logger)
	return publisher, func(context.Context) error { return nc.Drain() }, nil
}

// SetupHttpHandler builds the router with the product routes and, when configured, the metrics endpoint.
// Used by tests to exercise the full HTTP stack.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return server.Instrument(mux, "product-http")
}

func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	productHandler := rest.NewHandler(deps.ProductService, deps.Logger, deps.HideErrorDetail)
	productHandler.RegisterRoutes(mux)
	if deps.MetricsHandler != nil {
		mux.Method(http.MethodGet, deps.MetricsPath, deps.MetricsHandler)
	}
}

// SetupHttpServer creates and configures an HTTP server for the product service.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}

// SetupGrpcServer creates the gRPC server exposing the standard health service.
// The returned health server starts NOT_SERVING; the caller flips it once the store answers.
func SetupGrpcServer(reflectionEnabled bool) (*grpc.Server, *health.Server) {
	hs := health.NewServer()
	hs.Shutdown()
	return server.NewGRPCServer(reflectionEnabled, server.WithHealth(hs)), hs
}

// UpdateHealth sets the gRPC serving status from a store ping.
func UpdateHealth(ctx context.Context, deps *Dependencies, hs *health.Server) {
	if err := deps.ProductService.Ping(ctx); err != nil {
		deps.Logger.WarnContext(ctx, "Store not reachable, gRPC health NOT_SERVING", "error", err)
		hs.Shutdown()
		return
	}
	hs.Resume()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abgdnv/catalog/internal/app"
	"github.com/abgdnv/catalog/internal/config"
	"github.com/abgdnv/catalog/pkg/bootstrap"
	"github.com/abgdnv/catalog/pkg/config/configloader"
	"github.com/abgdnv/catalog/pkg/telemetry"
	"golang.org/x/sync/errgroup"
)

const serviceName = "product"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run loads the configuration, connects the store and the event publisher, and serves HTTP, gRPC and pprof until ctx is done.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if cfg.Telemetry.Traces.Enabled {
		tp, err := telemetry.NewTracerProvider(ctx, serviceName, cfg.Telemetry.Traces)
		if err != nil {
			return fmt.Errorf("failed to create tracer provider: %w", err)
		}
		defer shutdown(logger, "tracer provider", cfg.Shutdown.Timeout, tp.Shutdown)
	}
	var metricsHandler http.Handler
	if cfg.Telemetry.Metrics.Enabled {
		mp, handler, err := telemetry.NewMeterProvider(serviceName)
		if err != nil {
			return fmt.Errorf("failed to create meter provider: %w", err)
		}
		defer shutdown(logger, "meter provider", cfg.Shutdown.Timeout, mp.Shutdown)
		metricsHandler = handler
	}

	repo, closeStore, err := app.NewStore(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to open product store: %w", err)
	}
	defer shutdown(logger, "product store", cfg.Shutdown.Timeout, closeStore)

	publisher, closePublisher, err := app.NewPublisher(ctx, cfg.NATS, cfg.Resilience.CircuitBreaker, logger)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}
	defer shutdown(logger, "event publisher", cfg.Shutdown.Timeout, closePublisher)

	deps := app.SetupDependencies(repo, publisher, logger, cfg)
	deps.MetricsHandler = metricsHandler
	httpServer := app.SetupHttpServer(deps, cfg)
	grpcServer, healthServer := app.SetupGrpcServer(cfg.GRPC.ReflectionEnabled)
	app.UpdateHealth(ctx, deps, healthServer)

	g, gCtx := errgroup.WithContext(ctx)

	// Start the HTTP server
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	// gracefully shutdown HTTP server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Start the gRPC server
	g.Go(func() error {
		grpcAddr := ":" + cfg.GRPC.Port
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on gRPC port: %w", err)
		}
		logger.Info("gRPC server listening", slog.String("addr", grpcAddr))
		return grpcServer.Serve(lis)
	})
	// gracefully shutdown gRPC server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down gRPC server...")
		healthServer.Shutdown()
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
			logger.Info("gRPC server stopped gracefully.")
			return nil
		case <-time.After(cfg.Shutdown.Timeout):
			logger.Warn("gRPC server graceful stop timed out. Forcing stop.")
			grpcServer.Stop()
			return fmt.Errorf("grpc server graceful stop timed out")
		}
	})

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		pprofServer := &http.Server{
			Addr:              cfg.PProf.Addr,
			ReadHeaderTimeout: cfg.HTTPServer.Timeout.ReadHeader,
		}
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		// gracefully shutdown pprof server on context cancellation
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

// shutdown runs fn with a bounded context and logs the outcome.
func shutdown(logger *slog.Logger, name string, timeout time.Duration, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Error("Failed to close "+name, "error", err)
		return
	}
	logger.Info(name + " closed")
}

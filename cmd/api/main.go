package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coworkd/internal/api"
	"coworkd/internal/auth"
	"coworkd/internal/booking"
	"coworkd/internal/config"
	"coworkd/internal/database"
	"coworkd/internal/domain"
	"coworkd/internal/events"
	"coworkd/internal/logging"
	"coworkd/internal/metrics"
	"coworkd/internal/repository"
	"coworkd/internal/service"
	"coworkd/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logCloser, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "database"))
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	tokenStore := buildTokenStore(ctx, cfg, logging.Component(logger, "repository"))

	loc, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		return fmt.Errorf("load booking timezone: %w", err)
	}

	eventBus := events.NewEventBus()
	for _, eventType := range []string{
		events.EventReservationCreated,
		events.EventReservationUpdated,
		events.EventReservationDeleted,
		events.EventSpaceDeleted,
	} {
		eventBus.Subscribe(eventType, func(event *events.Event) error {
			logger.Debug().Str("event_type", event.Type).RawJSON("payload", event.Payload).Msg("event published")
			return nil
		})
	}

	exporter := worker.NewExportWorker(db, cfg.Exports.Path, worker.RetryPolicy{}, logging.Component(logger, "export"))
	go exporter.Run(ctx)

	bookings := booking.NewService(db, db, eventBus, exporter, booking.Config{
		Location: loc,
		Quota:    cfg.Booking.Quota,
	}, logging.Component(logger, "booking"))
	spaces := service.NewSpaceService(db, eventBus, exporter, logging.Component(logger, "service"))
	users := service.NewUserService(db)
	tokens := auth.NewManager(cfg.Auth.JWTSecret, cfg.TokenTTL())

	server := api.NewServer(bookings, spaces, users, db, tokens, tokenStore, exporter, cfg.Server, logging.Component(logger, "http"))
	defer server.Close()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("http server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var metricsServer *http.Server
	if cfg.Monitoring.PrometheusEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info().Int("port", cfg.Monitoring.PrometheusPort).Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("shutdown complete")
	return nil
}

// buildTokenStore prefers redis with a memory fallback; a missing or
// unreachable redis degrades to memory only.
func buildTokenStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) domain.TokenStore {
	memory := repository.NewMemoryTokenStore()

	if cfg.Redis.Address == "" {
		logger.Warn().Msg("redis not configured, token revocation will not survive restarts")
		return memory
	}

	client := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("address", cfg.Redis.Address).Msg("redis unreachable, starting on memory token store")
	}

	return repository.NewFailoverTokenStore(repository.NewRedisTokenStore(client), memory, logger)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"topstories/services/frontend/adapters"
	"topstories/services/frontend/shell"
	"topstories/services/server/config"
	"topstories/services/server/handlers"
	"topstories/services/server/kafka"
	"topstories/services/server/middleware"
)

func main() {
	configPath := flag.String("config", "configs/default.yaml", "path to the YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil)).With("service", "topstories")
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	// --- Configuration ---
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Fetch Adapter, optionally publishing to Kafka ---
	var fetcher shell.Fetcher = adapters.NewClient(adapters.Options{
		BaseURL:       cfg.NYTBaseURL,
		Section:       cfg.NYTSection,
		APIKey:        cfg.NYTAPIKey,
		Timeout:       cfg.FetchTimeout,
		RatePerSecond: cfg.NYTRatePerSecond,
		Logger:        logger,
	})
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			return fmt.Errorf("init kafka producer: %w", err)
		}
		defer func() {
			if err := producer.Close(); err != nil {
				logger.Error("failed to close kafka producer", "error", err.Error())
			}
		}()
		publishing := kafka.Publishing(fetcher, producer, logger)
		defer publishing.Wait() // runs before producer.Close
		fetcher = publishing
	}

	// --- Presentation Shell ---
	view := shell.New(fetcher, shell.NewFileSurface(cfg.DistDir), logger)
	if err := view.Mount(ctx); err != nil {
		return fmt.Errorf("mount shell: %w", err)
	}
	defer view.Unmount()

	// --- Static File Host ---
	var limiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(ctx, middleware.RateLimitOptions{
			RPS:               cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
			TrustForwardedFor: cfg.TrustProxy,
			Logger:            logger,
		})
	}
	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: handlers.NewRouter(handlers.RouterOptions{
			DistDir:     cfg.DistDir,
			RateLimiter: limiter,
			Logger:      logger,
		}),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server is now running on http://localhost:%d", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen on :%d: %w", cfg.Port, err)
		}
	}

	// --- Graceful Shutdown ---
	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("server gracefully stopped")
	return nil
}

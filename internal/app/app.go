package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ayo6706/currency-widget/internal/api"
	"github.com/ayo6706/currency-widget/internal/config"
	"github.com/ayo6706/currency-widget/internal/gateway"
	"github.com/ayo6706/currency-widget/internal/models"
	"github.com/ayo6706/currency-widget/internal/observability"
	"github.com/ayo6706/currency-widget/internal/repository"
	"github.com/ayo6706/currency-widget/internal/service"
	"github.com/ayo6706/currency-widget/internal/worker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run bootstraps the widget core, the refresh worker and the local HTTP
// adapter, blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, redisClient, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	source := newRateSource(cfg, logger)

	rates := service.NewRateCache(source).
		WithStaleTime(cfg.RatesStaleTime).
		WithFetchTimeout(cfg.FetchTimeout)
	defer rates.Close()

	widget := service.NewWidgetService(
		rates,
		service.NewHistoryService(store),
		service.NewPreferenceService(store, models.Theme(cfg.DefaultTheme)),
		cfg.DefaultSource,
	)
	if _, err := widget.Start(ctx); err != nil {
		return fmt.Errorf("start widget: %w", err)
	}
	go watchState(ctx, widget, logger)

	refreshWorker := worker.NewRefreshWorker(rates).WithInterval(cfg.RatesRefreshInterval)
	stopWorker := refreshWorker.Run(ctx)
	logger.Info("rate refresh worker started", zap.Duration("interval", cfg.RatesRefreshInterval))

	var cmd redis.Cmdable
	if redisClient != nil {
		cmd = redisClient
	}
	router := api.NewRouter(cfg, logger, widget, cmd)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Addr()))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping rate refresh worker")
	stopWorker()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

// newStore returns the configured storage backend. The redis client is
// returned too so readiness checks and shutdown can reach it.
func newStore(cfg *config.Config) (repository.Store, *redis.Client, error) {
	switch cfg.StorageBackend {
	case config.StorageRedis:
		client, err := newRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return repository.NewRedisStore(client, cfg.RedisKeyPrefix), client, nil
	case config.StorageMemory:
		return repository.NewMemoryStore(), nil, nil
	default:
		store, err := repository.NewFileStore(cfg.StorageDir)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
}

func newRateSource(cfg *config.Config, logger *zap.Logger) gateway.RateSource {
	if cfg.RateSource == config.RateSourceMock {
		logger.Warn("using static mock rates")
		return gateway.NewMockRateSource()
	}
	return gateway.NewExchangeRateAPI(cfg.APIBaseURL, cfg.APIKey, cfg.FetchTimeout, logger)
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// watchState logs rate status transitions of the widget until ctx ends.
func watchState(ctx context.Context, widget *service.WidgetService, logger *zap.Logger) {
	updates, unsubscribe := widget.Subscribe()
	defer unsubscribe()

	last := ""
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-updates:
			key := snap.Rates.Base + "/" + snap.Rates.Status
			if key == last {
				continue
			}
			last = key
			logger.Info("rate state changed",
				zap.String("base", snap.Rates.Base),
				zap.String("status", snap.Rates.Status),
				zap.Bool("can_convert", snap.CanConvert),
				zap.Uint64("version", snap.Version),
			)
		}
	}
}

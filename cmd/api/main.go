package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-dashboard-go/internal/config"
	appHTTP "github.com/cmlabs-hris/hris-dashboard-go/internal/handler/http"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/observability"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/storage"
	"github.com/cmlabs-hris/hris-dashboard-go/internal/pkg/upstream"
	exportService "github.com/cmlabs-hris/hris-dashboard-go/internal/service/export"
	lookupService "github.com/cmlabs-hris/hris-dashboard-go/internal/service/lookup"
	screenService "github.com/cmlabs-hris/hris-dashboard-go/internal/service/screen"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.App.LogLevel),
	})).With(slog.String("app", "hris-dashboard"), slog.String("env", cfg.App.Env)))

	client, err := upstream.New(upstream.Options{
		BaseURL:       cfg.Upstream.BaseURL,
		Token:         cfg.Upstream.Token,
		ClientID:      cfg.Upstream.ClientID,
		ClientSecret:  cfg.Upstream.ClientSecret,
		TokenURL:      cfg.Upstream.TokenURL,
		Scopes:        cfg.Upstream.Scopes,
		MaxReportSize: cfg.Upstream.MaxReportBytes,
	})
	if err != nil {
		return fmt.Errorf("error creating upstream client: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.Warn("Redis ping failed, lookups load from upstream until it recovers", "error", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				slog.Warn("Redis close failed", "error", err)
			}
		}()
	}

	fileStorage, err := storage.NewLocalStorage(cfg.Storage.BasePath, cfg.Storage.BaseURL)
	if err != nil {
		return fmt.Errorf("error creating storage: %w", err)
	}

	telemetry := observability.NewMetrics()
	hub := sse.NewHub()
	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.StreamTokenTTL)

	screens := screenService.NewService(screenService.Dependencies{
		Lists:      client,
		Metrics:    client.MetricsSource,
		Blobs:      client,
		Downloader: exportService.NewStorageDownloader(fileStorage, exportService.JobScopedKey),
		Hub:        hub,
		Telemetry:  telemetry,
	}, screenService.Config{
		Rows:          cfg.Screen.Rows,
		FetchTimeout:  cfg.Upstream.ListTimeout,
		PollInterval:  cfg.Poll.Interval,
		PollTimeout:   cfg.Poll.Timeout,
		ExportTimeout: cfg.Upstream.ExportTimeout,
		IdleTTL:       cfg.Screen.IdleTTL,
	})
	defer screens.Shutdown()

	lookups := lookupService.NewLookupService(client, lookupService.NewCache(redisClient, cfg.Redis.LookupTTL))

	router := appHTTP.NewRouter(
		cfg,
		JWTService,
		telemetry,
		appHTTP.NewScreenHandler(screens, JWTService),
		appHTTP.NewStreamHandler(screens, hub, JWTService),
		appHTTP.NewLookupHandler(lookups),
		appHTTP.NewDownloadHandler(fileStorage, cfg.Storage.KeepServed),
	)

	scheduler := cron.NewScheduler()
	cron.NewDashboardJobs(screens, fileStorage, cfg.Storage.ArtifactTTL).
		Register(scheduler, time.Minute, 10*time.Minute)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		scheduler.Start(ctx)
		<-ctx.Done()
		scheduler.Stop()
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down")

		// Close screens first so open SSE streams end and Shutdown can drain
		screens.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

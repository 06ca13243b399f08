// entry point of the application
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"titan/internal/config"
	"titan/internal/consts"
	"titan/internal/depmanager"
	"titan/internal/downloader"
	"titan/internal/history"
	httprouter "titan/internal/infrastructure/delivery/http"
	"titan/internal/jobspec"
	"titan/internal/observability"
	"titan/internal/proxy"
	"titan/internal/service"
	"titan/internal/storage"
	httpserver "titan/pkg/http/server"
	"titan/pkg/logger"

	"github.com/go-playground/validator/v10"
)

// writeSlack lets a finished download's response go out after a job that used its whole timeout.
const writeSlack = time.Minute

// writeTimeout bounds response writes by the job timeout. Unbounded jobs get unbounded writes.
func writeTimeout(jobTimeout time.Duration) time.Duration {
	if jobTimeout <= 0 {
		return 0
	}

	return jobTimeout + writeSlack
}

func main() {
	if err := run(); err != nil {
		slog.Error("titan stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("config new: %w", err)
	}

	log, err := logger.New(&logger.Options{
		AddSource: true,
		Level:     cfg.App.LogLevel,
	})
	if err != nil {
		slog.WarnContext(ctx, "logger level invalid; defaulting to info", slog.Any("error", err))
	}

	metrics := observability.New()

	catalog, err := jobspec.DefaultCatalog()
	if err != nil {
		return fmt.Errorf("quality catalog: %w", err)
	}

	proxyMgr, err := proxy.New(log, cfg.Proxy.Proxies, cfg.Proxy.HealthCheck, cfg.Proxy.HealthTimeout)
	if err != nil {
		return fmt.Errorf("proxy manager: %w", err)
	}

	metrics.SetProxiesConfigured(proxyMgr.Count())

	var extractor downloader.Extractor

	switch cfg.App.Downloader {
	case consts.DownloaderMock:
		extractor = downloader.NewMock(log, downloader.WithFailure(cfg.App.MockFailure))
	default:
		depMgr := depmanager.New(log, cfg.DepManager)

		log.InfoContext(ctx, "checking yt-dlp and ffmpeg. it may take some time...")

		if err := depMgr.Start(ctx); err != nil {
			return fmt.Errorf("dependencies: %w", err)
		}

		extractor = downloader.NewYTdlp(log, cfg, depMgr, proxyMgr)
	}

	dest := storage.New(log, cfg.Dir.Downloads, cfg.Dir.Retention)
	if err := dest.Ensure(); err != nil {
		return fmt.Errorf("download dir: %w", err)
	}

	go dest.RunCleanup(ctx, cfg.Dir.CleanupInterval)

	store := history.New(log, cfg.History.DBPath)
	if err := store.Initialize(ctx); err != nil {
		// the page still renders with an empty history
		log.ErrorContext(ctx, "history initialize", slog.Any("error", err))
	}

	svc := service.New(log, cfg, catalog, extractor, store, dest, metrics)

	router := httprouter.New(log, svc, validator.New(), metrics, cfg.HTTP.HandlerTimeout)

	httpSrv := httpserver.New(router, httpserver.Options{
		Addr:            cfg.HTTP.Port,
		WriteTimeout:    writeTimeout(cfg.Job.Timeout),
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})

	log.InfoContext(ctx, "titan started",
		slog.String("port", cfg.HTTP.Port),
		slog.String("downloader", cfg.App.Downloader),
		slog.String("downloads", cfg.Dir.Downloads),
		slog.String("history", store.Path()))

	select {
	case <-ctx.Done():
	case err := <-httpSrv.Notify():
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	}

	if err := httpSrv.Shutdown(); err != nil {
		log.Error("http shutdown", slog.Any("error", err))
	}

	log.Info("titan shut down gracefully")

	return nil
}

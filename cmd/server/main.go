package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/feed-unify/app/api"
	"github.com/lysyi3m/feed-unify/app/cache"
	"github.com/lysyi3m/feed-unify/app/cfg"
	"github.com/lysyi3m/feed-unify/app/feed"
	"github.com/lysyi3m/feed-unify/app/fetch"
	"github.com/lysyi3m/feed-unify/app/logger"
	"github.com/lysyi3m/feed-unify/app/parser"
	"github.com/lysyi3m/feed-unify/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	logCloser, err := logger.Setup(logger.Config{
		Debug:  appCfg.Debug,
		Format: appCfg.LogFormat,
		File:   appCfg.LogFile,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logCloser.Close()

	if err := run(appCfg); err != nil {
		slog.Error("Server failed", "error", err)
		logCloser.Close()
		os.Exit(1)
	}
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting Feed Unify server", "version", appCfg.Version)

	configCache := feed.NewConfigCache(appCfg.FeedsDir)
	if err := configCache.Run(); err != nil {
		return fmt.Errorf("failed to load feed sources: %w", err)
	}
	slog.Info("Feed sources loaded", "count", configCache.GetConfigCount(), "dir", appCfg.FeedsDir)

	store, closeStore, err := openStore(appCfg)
	if err != nil {
		return err
	}
	defer closeStore.Close()

	var pipelineOpts []parser.Option
	if appCfg.StableIDs {
		pipelineOpts = append(pipelineOpts, parser.WithStableIDs())
	}

	transport := fetch.NewHTTPTransport(&http.Client{Timeout: appCfg.Timeout()}, appCfg.UserAgent, appCfg.MaxBodySize)

	gatewayOpts := []fetch.Option{}
	if store != nil {
		gatewayOpts = append(gatewayOpts, fetch.WithCache(store))
	}
	gateway := fetch.NewGateway(transport, parser.NewDefaultPipeline(pipelineOpts...), gatewayOpts...)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(configCache, gateway, time.Duration(appCfg.SchedulerInterval)*time.Second, appCfg.WorkerCount)
	scheduler.Start()
	defer func() {
		scheduler.Stop()
		slog.Info("Background scheduler stopped")
	}()

	handler := api.NewHandler(gateway, configCache, scheduler)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2*appCfg.Timeout() + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		baseURL := appCfg.BaseUrl
		if baseURL == "" {
			baseURL = "http://localhost:" + appCfg.Port
		}
		slog.Info("Starting HTTP server", "port", appCfg.Port, "base_url", baseURL)
		slog.Info("Endpoint available", "name", "feed", "url", baseURL+"/feed?url=<feed-url>")
		slog.Info("Endpoint available", "name", "subscription", "url", baseURL+"/feeds/<name>")
		slog.Info("Endpoint available", "name", "health", "url", baseURL+"/health")
		if appCfg.APIAccessKey != "" {
			slog.Info("Endpoint available", "name", "list feeds", "url", baseURL+"/api/feeds")
			slog.Info("Endpoint available", "name", "poll feed", "url", baseURL+"/api/feeds/<name>/poll")
			slog.Info("Endpoint available", "name", "clear cache", "url", baseURL+"/api/cache")
		} else {
			slog.Info("API endpoints disabled (API_ACCESS_KEY not set)")
		}

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case serveErr = <-serverErrChan:
		slog.Error("Server error", "error", serveErr)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return serveErr
}

// openStore returns a nil store when caching is disabled.
func openStore(appCfg *cfg.Cfg) (cache.Store, io.Closer, error) {
	if !appCfg.CacheEnabled {
		slog.Info("Feed cache disabled")
		return nil, noClose, nil
	}

	switch appCfg.CacheBackend {
	case "sqlite":
		store, err := cache.NewSQLiteStore(appCfg.CacheDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open cache database: %w", err)
		}
		slog.Info("Feed cache ready", "backend", "sqlite", "path", appCfg.CacheDBPath)
		return store, store, nil
	default:
		slog.Info("Feed cache ready", "backend", "memory")
		return cache.NewMemoryStore(), noClose, nil
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var noClose = closerFunc(func() error { return nil })

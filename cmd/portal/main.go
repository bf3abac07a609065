package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portal/internal/api"
	"portal/internal/backend"
	"portal/internal/config"
	"portal/internal/logging"
	"portal/internal/metrics"
	"portal/internal/storage"
	"portal/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logCloser, err := logging.Setup(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		slog.Error("failed to configure logging", "error", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	slog.Info("starting portal", "name", cfg.Server.Name)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := api.Deps{}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
		deps.Metrics = m
		deps.Recorder = m
	}

	if cfg.Storage.Driver != storage.DriverCookie {
		shared, err := storage.Open(ctx, storage.Options{
			Driver:        cfg.Storage.Driver,
			Path:          cfg.Storage.Path,
			RedisAddr:     cfg.Storage.Redis.Addr,
			RedisPassword: cfg.Storage.Redis.Password,
			RedisDB:       cfg.Storage.Redis.DB,
			RedisPrefix:   cfg.Storage.Redis.Prefix,
			RedisTTL:      cfg.Storage.IdleTTL,
		})
		if err != nil {
			slog.Error("failed to open storage", "driver", cfg.Storage.Driver, "error", err)
			os.Exit(1)
		}
		defer shared.Close()
		deps.Shared = shared
		slog.Info("storage opened", "driver", cfg.Storage.Driver, "path", cfg.Storage.Path)

		if idle, ok := shared.(storage.IdleDeleter); ok {
			janitor := storage.NewJanitor(idle, cfg.Storage.IdleTTL, cfg.Storage.JanitorInterval)
			go janitor.Start(ctx)
		}
	} else {
		slog.Info("storing logins in signed cookies")
	}

	client, err := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	if err != nil {
		slog.Error("failed to create backend client", "error", err)
		os.Exit(1)
	}
	deps.Backend = client

	feed := ws.NewHub()
	go feed.Run()
	deps.Feed = feed

	watcher := backend.NewInfoWatcher(client, slog.Default())
	watcher.OnUpdate(api.PublishInfo(feed))
	publishState := api.PublishStreamState(feed)
	watcher.OnConnectionChange(func(connected bool) {
		if m != nil {
			m.SetStreamConnected(connected)
		}
		publishState(connected)
	})
	deps.Info = watcher
	if *cfg.Backend.Stream {
		go watcher.Run(ctx)
	} else if err := watcher.Refetch(ctx); err != nil {
		slog.Warn("initial info fetch failed", "error", err)
	}

	server, err := api.NewServer(cfg, deps)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	addr := cfg.Addr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", addr, "base_url", cfg.Server.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down")

	cancel()

	feed.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}

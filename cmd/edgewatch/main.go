package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/edgewatch/internal/agent"
	"github.com/HerbHall/edgewatch/internal/collect"
	"github.com/HerbHall/edgewatch/internal/config"
	"github.com/HerbHall/edgewatch/internal/export"
	"github.com/HerbHall/edgewatch/internal/fetch"
	"github.com/HerbHall/edgewatch/internal/server"
	"github.com/HerbHall/edgewatch/internal/store"
	"github.com/HerbHall/edgewatch/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("EdgeWatch agent starting",
		zap.String("version", version.Short()),
		zap.String("platform", cfg.Protocol+"://"+cfg.Host),
	)

	var st *store.SQLiteStore
	if cfg.DBPath != "" {
		st, err = store.New(cfg.DBPath)
		if err != nil {
			logger.Fatal("failed to open snapshot store", zap.Error(err))
		}
		defer st.Close()
	}

	fetcher := fetch.NewHTTPFetcher(cfg.FetchTimeout)
	collector := collect.New(fetcher, logger)
	exporter := export.New()
	sources := cfg.Platform().Sources()

	a := agent.New(collector, sources, exporter, st, cfg.UpdateEvery, cfg.UpdateEvery, logger)
	srv := server.New(cfg.ListenAddr, exporter, st, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.Run(ctx)
	}()
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("EdgeWatch agent ready", zap.String("addr", cfg.ListenAddr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("fatal error", zap.Error(err))
			exitCode = 1
		}
	}

	// Graceful shutdown.
	a.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("EdgeWatch agent stopped")
	os.Exit(exitCode)
}

// buildLogger constructs a production JSON logger at the configured level.
func buildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return cfg.Build()
}

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/mapgrove/mapsync/internal/adapter"
	"github.com/mapgrove/mapsync/internal/config"
	"github.com/mapgrove/mapsync/internal/engine"
	"github.com/mapgrove/mapsync/internal/logger"
	"github.com/mapgrove/mapsync/internal/service"
	"github.com/mapgrove/mapsync/internal/store"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	cfg, err := config.GetStructuredConfig()
	if err != nil {
		logger.NewLogger("mapsync").Fatal().Err(err).Msg("error getting configs")
	}

	log := newLogger(cfg.Logs)

	remote, err := adapter.NewHTTPRemoteAdapter(cfg.Adapter, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create remote adapter")
	}

	storages, err := store.NewStorages(cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create local storage")
	}
	defer storages.Close()

	events := service.NewEventBus()
	queue := service.NewOperationQueue()
	resolver := service.NewConflictResolver(storages, remote, events, log)
	locks := service.NewLockManager(storages.Locks, cfg.Workers.LockTTL, log)
	worker := service.NewSyncWorker(queue, storages, remote, resolver, events, cfg.Workers, log)
	switcher := service.NewVaultSwitcher(storages, remote, queue, locks, events, log)

	eng := engine.NewEngine(storages, remote, queue, worker, switcher, locks, events, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := eng.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("engine start error")
	}

	<-ctx.Done()
	eng.Stop()
	log.Info().Msg("shutdown complete")
}

func newLogger(cfg config.Logs) *logger.Logger {
	if cfg.File != "" {
		return logger.NewFileLogger("mapsync", cfg.File)
	}
	return logger.NewLogger("mapsync")
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}

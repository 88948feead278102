package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/example/marketplace/pkg/announce"
	"github.com/example/marketplace/pkg/config"
	"github.com/example/marketplace/pkg/repository"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := cfg.Log.BuildLogger()
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting sale announcer",
		zap.Duration("interval", cfg.Announcer.Interval),
		zap.String("output_dir", cfg.Announcer.OutputDir))

	store, err := openStore(cfg)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}

	announcer, err := announce.NewAnnouncer(store, logger.Named("announcer"), &cfg.Announcer)
	if err != nil {
		logger.Fatal("Failed to create announcer", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := announcer.Run(ctx); err != nil && err != context.Canceled {
		logger.Fatal("Announcer error", zap.Error(err))
	}

	logger.Info("Announcer stopped")
}

func openStore(cfg *config.Config) (repository.Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return repository.NewMemoryStore(), nil
	case "mysql", "":
		return repository.NewGormStore(&cfg.MySQL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

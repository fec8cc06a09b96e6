package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/aman-zulfiqar/hustler-market/internal/cache"
	"github.com/aman-zulfiqar/hustler-market/internal/catalog"
	"github.com/aman-zulfiqar/hustler-market/internal/config"
	"github.com/aman-zulfiqar/hustler-market/internal/indexer"
	"github.com/aman-zulfiqar/hustler-market/internal/refresher"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file, using system environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if len(cfg.WatchGames) == 0 {
		logger.Fatal("WATCH_GAMES is required for the refresher")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down refresher")
		cancel()
	}()

	snapshots, err := cache.NewRedisCacheFromAddr(ctx, cfg.RedisAddr, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}
	defer snapshots.Close()

	source := indexer.NewClient(indexer.ClientConfig{
		BaseURL:      cfg.IndexerURL,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		CashScale:    cfg.CashScale,
		Logger:       logger,
	})

	targets, err := buildTargets(cfg.WatchGames, cfg.WatchLocations)
	if err != nil {
		logger.WithError(err).Fatal("invalid watch list")
	}

	r, err := refresher.New(refresher.Config{
		Source:       source,
		Sink:         snapshots,
		Targets:      targets,
		PollInterval: cfg.PollInterval,
		Logger:       logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create refresher")
	}

	logger.WithField("indexer", cfg.IndexerURL).Info("refresher starting")

	if err := r.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("refresher stopped")
	}
}

// buildTargets crosses games with locations; no locations means every catalog location
func buildTargets(games, locations []string) ([]refresher.Target, error) {
	var locIDs []string
	if len(locations) == 0 {
		for _, l := range catalog.Locations {
			locIDs = append(locIDs, l.ID)
		}
	} else {
		for _, slug := range locations {
			l, err := catalog.LocationBySlug(slug)
			if err != nil {
				return nil, err
			}
			locIDs = append(locIDs, l.ID)
		}
	}

	targets := make([]refresher.Target, 0, len(games)*len(locIDs))
	for _, g := range games {
		for _, l := range locIDs {
			targets = append(targets, refresher.Target{GameID: g, Location: l})
		}
	}
	return targets, nil
}

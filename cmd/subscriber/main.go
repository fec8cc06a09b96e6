package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/aman-zulfiqar/hustler-market/internal/cache"
	"github.com/aman-zulfiqar/hustler-market/internal/config"
	"github.com/aman-zulfiqar/hustler-market/internal/constants"
	"github.com/aman-zulfiqar/hustler-market/internal/models"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// subscriber tails market updates published by the refresher
func main() {
	game := flag.String("game", "", "only follow this game")
	location := flag.String("location", "", "only follow this location (requires -game)")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down subscriber")
		cancel()
	}()

	rc, err := cache.NewRedisCacheFromAddr(ctx, cfg.RedisAddr, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}
	defer rc.Close()

	handler := func(s *models.MarketSnapshot) {
		logger.WithFields(logrus.Fields{
			"game":     s.GameID,
			"location": s.Location,
			"drug":     s.Drug,
			"price":    s.Price,
			"quantity": s.Pool.Quantity,
			"cash":     s.Pool.Cash,
		}).Info("market update")
	}

	switch {
	case *game != "" && *location != "":
		err = rc.Subscribe(ctx, cache.LocationChannel(*game, *location), handler)
	case *game != "":
		err = rc.PSubscribe(ctx, constants.PubSubChannelLocationPrefix+*game+":*", handler)
	default:
		err = rc.Subscribe(ctx, constants.PubSubChannelMarkets, handler)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("subscription failed")
	}
}

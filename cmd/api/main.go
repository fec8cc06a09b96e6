package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/aman-zulfiqar/hustler-market/internal/ai"
	"github.com/aman-zulfiqar/hustler-market/internal/archive"
	"github.com/aman-zulfiqar/hustler-market/internal/cache"
	"github.com/aman-zulfiqar/hustler-market/internal/config"
	"github.com/aman-zulfiqar/hustler-market/internal/flags"
	"github.com/aman-zulfiqar/hustler-market/internal/history"
	"github.com/aman-zulfiqar/hustler-market/internal/indexer"
	"github.com/aman-zulfiqar/hustler-market/internal/refresher"
	"github.com/aman-zulfiqar/hustler-market/internal/server"
	"github.com/aman-zulfiqar/hustler-market/internal/storage"
	"github.com/aman-zulfiqar/hustler-market/internal/trade"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main wires the snapshot cache, planner and HTTP server and serves until signalled
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// One client serves snapshots and operator flags
	rclient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   0,
	})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	snapshots, err := cache.NewRedisCache(rclient, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create snapshot cache")
	}
	defer snapshots.Close()

	flagStore, err := flags.NewStore(rclient)
	if err != nil {
		logger.WithError(err).Fatal("failed to create flags store")
	}

	source := indexer.NewClient(indexer.ClientConfig{
		BaseURL:      cfg.IndexerURL,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		CashScale:    cfg.CashScale,
		Logger:       logger,
	})
	provider := refresher.NewLayered(snapshots, source, logger)

	// Trade history in ClickHouse is optional; the API prices without it
	var tradeStore storage.TradeStore
	chStore, err := cache.NewClickHouseStore(ctx, cache.ClickHouseConfig{
		Addr:     cfg.ClickHouseAddr,
		Database: cfg.ClickHouseDatabase,
		Username: cfg.ClickHouseUsername,
		Password: cfg.ClickHousePassword,
		Logger:   logger,
	})
	if err != nil {
		logger.WithError(err).Warn("clickhouse unavailable, confirmed trades will not be persisted")
	} else {
		if err := chStore.EnsureSchema(ctx); err != nil {
			logger.WithError(err).Warn("failed to ensure trades table")
		}
		tradeStore = chStore
		defer chStore.Close()
	}

	// Closed turns outlive the process when an archive is configured
	var turns storage.HistoryArchive
	if cfg.HistoryDBDialect != "none" {
		a, err := archive.Open(ctx, archive.Config{
			Dialect: archive.Dialect(cfg.HistoryDBDialect),
			DSN:     cfg.HistoryDBDSN,
			Logger:  logger,
		})
		if err != nil {
			logger.WithError(err).Warn("history archive unavailable, turns are kept in memory only")
		} else {
			turns = a
			defer a.Close()
		}
	}

	journal := history.NewJournal()
	risk := trade.NewRiskManager(trade.RiskConfig{
		MaxOrderTotal:  decimal.NewFromFloat(cfg.MaxOrderTotal),
		DailyLimit:     decimal.NewFromFloat(cfg.DailyTradeLimit),
		MaxPriceImpact: cfg.MaxPriceImpact,
	})
	planner, err := trade.NewPlanner(trade.PlannerConfig{
		Provider: provider,
		Journal:  journal,
		Store:    tradeStore,
		Risk:     risk,
		Logger:   logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create planner")
	}

	var agent *ai.Agent
	aiBase := ai.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              cfg.AIModel,
		Logger:             logger,
	}
	if cfg.OpenRouterAPIKey != "" {
		a, err := ai.NewAgent(ctx, aiBase)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize ai agent")
		} else {
			agent = a
			defer func() {
				_ = agent.Close()
			}()
		}
	}

	h := &server.Handlers{
		Provider:     provider,
		Planner:      planner,
		Journal:      journal,
		Archive:      turns,
		Flags:        flagStore,
		AI:           agent,
		AIBaseConfig: aiBase,
		DevMode:      cfg.DevMode,
		Logger:       logger,
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:        cfg.APIAddr,
			DevMode:     cfg.DevMode,
			APIKey:      cfg.APIKey,
			AIRateLimit: cfg.AIRateLimit,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	logger.WithField("addr", cfg.APIAddr).Info("api server starting")
	if err := srv.Start(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			_ = srv.WaitClosed(context.Background())
			return
		}
		logger.WithError(err).Fatal("api server failed")
	}
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// API settings
	APIAddr string
	APIKey  string
	DevMode bool

	// Indexer settings
	IndexerURL   string
	PollInterval time.Duration
	CashScale    float64

	// Markets kept warm by the refresher
	WatchGames     []string
	WatchLocations []string

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// Turn history archive: sqlite, postgres or none
	HistoryDBDialect string
	HistoryDBDSN     string

	// HTTP client settings
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// Order risk limits, 0 disables
	MaxOrderTotal   float64
	DailyTradeLimit float64
	MaxPriceImpact  float64

	// AI
	OpenRouterAPIKey string
	AIModel          string
	AIRateLimit      float64 // requests per second per client
}

func Load() *Config {
	return &Config{
		// API
		APIAddr: getEnv("API_ADDR", ":8080"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),

		// Indexer
		IndexerURL:   getEnv("INDEXER_URL", "http://localhost:8080/graphql"),
		PollInterval: getDurationEnv("POLL_INTERVAL", 15*time.Second),
		CashScale:    getFloatEnv("CASH_SCALE", 1),

		WatchGames:     getListEnv("WATCH_GAMES"),
		WatchLocations: getListEnv("WATCH_LOCATIONS"),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "hustler"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// History archive
		HistoryDBDialect: strings.ToLower(getEnv("HISTORY_DB_DIALECT", "sqlite")),
		HistoryDBDSN:     getEnv("HISTORY_DB_DSN", ""),

		// HTTP
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 5),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", 2*time.Second),

		// Risk
		MaxOrderTotal:   getFloatEnv("MAX_ORDER_TOTAL", 0),
		DailyTradeLimit: getFloatEnv("DAILY_TRADE_LIMIT", 0),
		MaxPriceImpact:  getFloatEnv("MAX_PRICE_IMPACT", 0),

		// AI
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		AIModel:          getEnv("AI_MODEL", "openai/gpt-4.1-mini"),
		AIRateLimit:      getFloatEnv("AI_RATE_LIMIT", 0.5),
	}
}

// Validate reports the first setting that cannot work
func (c *Config) Validate() error {
	if c.IndexerURL == "" {
		return fmt.Errorf("INDEXER_URL is required")
	}
	if u, err := url.Parse(c.IndexerURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("INDEXER_URL must be an absolute URL, got %q", c.IndexerURL)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be > 0")
	}
	if c.CashScale <= 0 {
		return fmt.Errorf("CASH_SCALE must be > 0")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must be >= 0")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be > 0")
	}
	if c.AIRateLimit <= 0 {
		return fmt.Errorf("AI_RATE_LIMIT must be > 0")
	}
	switch c.HistoryDBDialect {
	case "sqlite", "postgres", "none":
	default:
		return fmt.Errorf("HISTORY_DB_DIALECT must be sqlite, postgres or none, got %q", c.HistoryDBDialect)
	}
	if c.HistoryDBDialect == "postgres" && c.HistoryDBDSN == "" {
		return fmt.Errorf("HISTORY_DB_DSN is required for the postgres archive")
	}
	if c.MaxOrderTotal < 0 || c.DailyTradeLimit < 0 || c.MaxPriceImpact < 0 {
		return fmt.Errorf("risk limits must be >= 0")
	}
	if !c.DevMode && c.APIKey == "" {
		return fmt.Errorf("API_KEY is required unless DEV_MODE is set")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// getListEnv splits a comma separated variable, dropping empty entries
func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

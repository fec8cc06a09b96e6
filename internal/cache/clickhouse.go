package cache

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/aman-zulfiqar/hustler-market/internal/constants"
	"github.com/aman-zulfiqar/hustler-market/internal/models"
	"github.com/aman-zulfiqar/hustler-market/internal/storage"
	"github.com/sirupsen/logrus"
)

// ClickHouseConfig holds connection settings for the trade store
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

// ClickHouseStore appends confirmed trades to the trades table
type ClickHouseStore struct {
	conn     driver.Conn
	database string
	logger   *logrus.Logger
}

var _ storage.TradeStore = (*ClickHouseStore)(nil)

const createTradesTable = `
CREATE TABLE IF NOT EXISTS %s.%s (
	id           String,
	tx_ref       String,
	game_id      String,
	player_id    String,
	turn         UInt32,
	location     LowCardinality(String),
	drug         LowCardinality(String),
	direction    LowCardinality(String),
	quantity     UInt64,
	total        Float64,
	spot_price   Float64,
	avg_price    Float64,
	price_impact Float64,
	timestamp    DateTime64(3, 'UTC')
) ENGINE = MergeTree
ORDER BY (game_id, player_id, timestamp, id)`

// tradeColumnsAdded upgrades tables created before per-trade pricing was stored
var tradeColumnsAdded = []string{
	"tx_ref String",
	"turn UInt32",
	"spot_price Float64",
	"avg_price Float64",
	"price_impact Float64",
}

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Database == "" {
		cfg.Database = "hustler"
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test connection
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	cfg.Logger.WithFields(logrus.Fields{
		"addr":     cfg.Addr,
		"database": cfg.Database,
	}).Info("connected to ClickHouse")

	return &ClickHouseStore{conn: conn, database: cfg.Database, logger: cfg.Logger}, nil
}

// EnsureSchema creates the trades table when it is missing
func (c *ClickHouseStore) EnsureSchema(ctx context.Context) error {
	if err := c.conn.Exec(ctx, fmt.Sprintf(createTradesTable, c.database, constants.TradesTable)); err != nil {
		return fmt.Errorf("failed to create trades table: %w", err)
	}
	for _, col := range tradeColumnsAdded {
		stmt := fmt.Sprintf("ALTER TABLE %s.%s ADD COLUMN IF NOT EXISTS %s", c.database, constants.TradesTable, col)
		if err := c.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate trades table: %w", err)
		}
	}
	return nil
}

func (c *ClickHouseStore) InsertTrade(ctx context.Context, trade *models.TradeEvent) error {
	if trade == nil {
		return fmt.Errorf("trade is nil")
	}

	query := fmt.Sprintf(`
		INSERT INTO %s.%s (
			id, tx_ref, game_id, player_id, turn, location, drug,
			direction, quantity, total, spot_price, avg_price, price_impact, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.database, constants.TradesTable)

	err := c.conn.Exec(ctx, query,
		trade.ID,
		trade.TxRef,
		trade.GameID,
		trade.PlayerID,
		uint32(max(trade.Turn, 0)),
		trade.Location,
		trade.Drug,
		trade.Direction.String(),
		trade.Quantity,
		trade.Total,
		trade.SpotPrice,
		trade.AvgPrice,
		trade.PriceImpact,
		trade.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}

	return nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}

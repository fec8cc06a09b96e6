package storage

import (
	"context"
	"errors"
	"io"

	"github.com/aman-zulfiqar/hustler-market/internal/history"
	"github.com/aman-zulfiqar/hustler-market/internal/models"
)

// ErrNotFound is returned when a provider has no record for the requested key
var ErrNotFound = errors.New("not found")

// StateProvider is the read-only view of chain state the pricing layer consumes.
// Implementations return copies; callers may keep them as immutable snapshots.
type StateProvider interface {
	// Market returns the pool for one drug at one location
	Market(ctx context.Context, gameID, location, drug string) (*models.MarketSnapshot, error)

	// Markets returns every drug market at a location
	Markets(ctx context.Context, gameID, location string) ([]*models.MarketSnapshot, error)

	// Player returns the player's cash, inventory and status
	Player(ctx context.Context, gameID, playerID string) (*models.Player, error)
}

// SnapshotCache stores provider snapshots and fans out market updates
type SnapshotCache interface {
	StateProvider

	// PutMarket stores a market snapshot and publishes it
	PutMarket(ctx context.Context, snap *models.MarketSnapshot) error

	// PutPlayer stores a player snapshot
	PutPlayer(ctx context.Context, player *models.Player) error

	// Ping checks if the cache is reachable
	Ping(ctx context.Context) error

	io.Closer
}

// TradeStore defines persistent storage for confirmed trades
type TradeStore interface {
	// InsertTrade inserts a confirmed trade
	InsertTrade(ctx context.Context, trade *models.TradeEvent) error

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	io.Closer
}

// HistoryArchive keeps closed turns beyond the in-memory journal
type HistoryArchive interface {
	// SaveDay appends a closed turn and returns its turn number
	SaveDay(ctx context.Context, gameID, playerID string, day history.Day) (int, error)

	// Days returns archived turns oldest first
	Days(ctx context.Context, gameID, playerID string) ([]history.Day, error)

	// Clear removes the player's archived turns
	Clear(ctx context.Context, gameID, playerID string) error

	io.Closer
}

// MarketHandler processes market updates
type MarketHandler func(*models.MarketSnapshot)

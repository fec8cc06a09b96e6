package models

import (
	"time"

	"github.com/aman-zulfiqar/hustler-market/internal/market"
)

// MarketSnapshot is a read-only copy of one drug market at one location,
// as last reported by the chain indexer.
type MarketSnapshot struct {
	GameID    string            `json:"game_id"`
	Location  string            `json:"location"`
	Drug      string            `json:"drug"`
	Pool      market.MarketPool `json:"pool"`
	Price     float64           `json:"price"` // spot price at fetch time
	FetchedAt time.Time         `json:"fetched_at"`
}

// NewMarketSnapshot stamps a pool with its spot price and fetch time
func NewMarketSnapshot(gameID, location, drug string, pool market.MarketPool, fetchedAt time.Time) *MarketSnapshot {
	return &MarketSnapshot{
		GameID:    gameID,
		Location:  location,
		Drug:      drug,
		Pool:      pool,
		Price:     pool.SpotPrice(),
		FetchedAt: fetchedAt.UTC(),
	}
}

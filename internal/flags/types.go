package flags

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("flag not found")

// Well-known switches read by the API
const (
	// TradingEnabled gates order preparation for every game
	TradingEnabled = "trading.enabled"
	// AIEnabled gates the natural language endpoint
	AIEnabled = "ai.enabled"
)

type Flag struct {
	Key       string    `json:"key"`
	Value     bool      `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GameTradingKey is the per-game trading switch, checked after TradingEnabled
func GameTradingKey(gameID string) string {
	return "trading.game." + gameID
}

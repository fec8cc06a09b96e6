package constants

import "time"

// Redis keys
const (
	RedisKeyMarketPrefix = "market:"
	RedisKeyMarketIndex  = "markets:index:"
	RedisKeyPlayerPrefix = "player:"
)

// Redis Pub/Sub channels
const (
	PubSubChannelMarkets        = "markets:updates"
	PubSubChannelLocationPrefix = "markets:"
)

// Snapshot lifetimes
const (
	MarketSnapshotTTL = 10 * time.Minute
	PlayerSnapshotTTL = 2 * time.Minute
)

// Limits
const (
	DefaultTransport = 100 // bag capacity of a fresh player
	MaxIndexerPage   = 100
)

// Price impact thresholds used to colour previews
const (
	SevereImpact   = 0.20
	ModerateImpact = 0.05
)

// ClickHouse
const (
	TradesTable = "trades"
)

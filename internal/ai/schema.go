package ai

import "fmt"

// tradesSchemaDescription describes the ClickHouse trades table for NL→SQL prompting.
// Keep it in sync with createTradesTable in internal/cache.
func tradesSchemaDescription(database, table string) string {
	return fmt.Sprintf(`
Database: %s
Table: %s

Columns:
  - id           String        -- Order id (UUID)
  - tx_ref       String        -- Transaction reference the client submitted
  - game_id      String        -- Game the trade belongs to
  - player_id    String        -- Player that traded
  - turn         UInt32        -- 1-based turn of the player's journal, 0 if unknown
  - location     String        -- Location id: queens, bronx, brooklyn, jersey, central, coney
  - drug         String        -- Drug id: acid, weed, ludes, speed, heroin, cocaine
  - direction    String        -- "buy" or "sell"
  - quantity     UInt64        -- Units traded
  - total        Float64       -- Cash paid for buys (rounded up to cents), received for sells (rounded down)
  - spot_price   Float64       -- Market price of one unit before the trade
  - avg_price    Float64       -- Average price per unit the trade executed at
  - price_impact Float64       -- abs(avg_price - spot_price) / spot_price, e.g. 0.05 = 5%%
  - timestamp    DateTime64(3) -- Confirmation time (UTC)

Notes:
  - Net cash flow of a player is sumIf(total, direction = 'sell') - sumIf(total, direction = 'buy').
  - Net units per drug: toInt64(sumIf(quantity, direction = 'buy')) - toInt64(sumIf(quantity, direction = 'sell')).
  - Price history of a market: GROUP BY turn, location, drug over avg_price and spot_price.
  - Time filters should use timestamp, e.g. timestamp >= now() - INTERVAL 24 HOUR.
`, database, table)
}

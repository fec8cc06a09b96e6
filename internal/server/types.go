package server

import (
	"github.com/aman-zulfiqar/hustler-market/internal/catalog"
	"github.com/aman-zulfiqar/hustler-market/internal/history"
	"github.com/aman-zulfiqar/hustler-market/internal/market"
	"github.com/aman-zulfiqar/hustler-market/internal/models"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK bool `json:"ok"` // Service health status
}

type CatalogResponse struct {
	Drugs     []catalog.Drug     `json:"drugs"`
	Locations []catalog.Location `json:"locations"`
}

// SlippageRequest prices a trade against a caller-supplied pool.
// Delta, when set, replaces Quantity and Direction: positive buys, negative sells.
type SlippageRequest struct {
	Pool      market.MarketPool     `json:"pool"`
	Quantity  uint64                `json:"quantity"`
	Direction market.TradeDirection `json:"direction"`
	Delta     *int64                `json:"delta,omitempty"`
}

type MaxQuantityRequest struct {
	Pool market.MarketPool `json:"pool"`
	Cash float64           `json:"cash"`
}

type MaxQuantityResponse struct {
	Quantity uint64 `json:"quantity"`
}

type MarketsResponse struct {
	Items []*models.MarketSnapshot `json:"items"`
}

// OrderRequest is the body of POST /games/:game/orders
type OrderRequest struct {
	PlayerID  string                `json:"player_id"`
	Location  string                `json:"location"`
	Drug      string                `json:"drug"`
	Direction market.TradeDirection `json:"direction"`
	Quantity  uint64                `json:"quantity"`
}

// TradeConfirmRequest is the body of POST /games/:game/trades
type TradeConfirmRequest struct {
	OrderRequest
	TxRef string `json:"tx_ref"`
}

type HistoryResponse struct {
	Days       []history.Day       `json:"days"`
	Pending    []history.Item      `json:"pending"`
	Encounters []history.Encounter `json:"encounters"`
}

type ArchiveResponse struct {
	Days []history.Day `json:"days"`
}

type HistoryTradeRequest struct {
	Drug      string                `json:"drug"`
	Direction market.TradeDirection `json:"direction"`
	Quantity  uint64                `json:"quantity"`
}

type EncounterRequest struct {
	Status  models.PlayerStatus `json:"status"`
	Outcome models.Outcome      `json:"outcome"`
}

type EndTurnRequest struct {
	Location string `json:"location_id"`
}

// FlagUpsertRequest represents a request to create or update a switch
type FlagUpsertRequest struct {
	Key   string `json:"key"`   // Flag key (must match regex pattern)
	Value bool   `json:"value"` // Flag value (true/false)
}

// AIAskRequest represents a natural language query request
type AIAskRequest struct {
	Question string `json:"question"`  // Natural language question about trades
	GameID   string `json:"game_id"`   // Optional: restrict the query to one game
	PlayerID string `json:"player_id"` // Optional: and to one player of that game
	Model    string `json:"model"`     // Optional AI model override
}

// AIReportRequest selects a built-in report: netting, prices or leaders
type AIReportRequest struct {
	Report   string `json:"report"`
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
}

// AIAskResponse represents the response from an AI query
type AIAskResponse struct {
	SQL    string `json:"sql"`     // Generated SQL query
	Answer string `json:"answer"`  // Natural language answer
	TookMs int64  `json:"took_ms"` // Execution time in milliseconds
}

package trade

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aman-zulfiqar/hustler-market/internal/market"
	"github.com/shopspring/decimal"
)

var (
	ErrZeroQuantity    = errors.New("quantity must be > 0")
	ErrExceedsLimit    = errors.New("quantity exceeds trade limit")
	ErrUnknownDrug     = errors.New("unknown drug")
	ErrUnknownLocation = errors.New("unknown location")
	ErrInvalidRequest  = errors.New("invalid trade request")
	ErrRiskRejected    = errors.New("order rejected by risk limits")
)

// Request is a player's intention to trade one drug at one location
type Request struct {
	GameID    string                `json:"game_id"`
	PlayerID  string                `json:"player_id"`
	Location  string                `json:"location"`
	Drug      string                `json:"drug"`
	Direction market.TradeDirection `json:"direction"`
	Quantity  uint64                `json:"quantity"`
}

// Limits are the market-screen bounds for one player at one market
type Limits struct {
	SpotPrice float64 `json:"spot_price"`
	MaxBuy    uint64  `json:"max_buy"`  // min(affordable, bag space)
	MaxSell   uint64  `json:"max_sell"` // units held
	CanBuy    bool    `json:"can_buy"`
	CanSell   bool    `json:"can_sell"`
}

// Max returns the bound that applies to direction
func (l Limits) Max(direction market.TradeDirection) uint64 {
	if direction == market.Sell {
		return l.MaxSell
	}
	return l.MaxBuy
}

type ImpactLevel string

const (
	ImpactLow      ImpactLevel = "low"
	ImpactModerate ImpactLevel = "moderate"
	ImpactSevere   ImpactLevel = "severe"
)

// Preview is a recomputed quote for a clamped request
type Preview struct {
	Request   Request               `json:"request"`
	Requested uint64                `json:"requested"` // quantity before clamping
	Clamped   bool                  `json:"clamped"`
	Slippage  market.SlippageResult `json:"slippage"`
	// Total is the cash moved, rounded against the player: buys up, sells down
	Total  decimal.Decimal `json:"total"`
	Limits Limits          `json:"limits"`
	Impact ImpactLevel     `json:"impact"`
}

// Order is a validated trade ready for submission
type Order struct {
	ID            string          `json:"id"`
	Request       Request         `json:"request"`
	SpotPrice     float64         `json:"spot_price"`
	ExpectedPrice float64         `json:"expected_price"`
	Total         decimal.Decimal `json:"total"`
	PriceImpact   float64         `json:"price_impact"`
	Impact        ImpactLevel     `json:"impact"`
	PreparedAt    time.Time       `json:"prepared_at"`
}

// Submitter sends an order to the chain and returns its transaction reference.
// Signing lives outside this module.
type Submitter interface {
	Submit(ctx context.Context, order *Order) (string, error)
}

// ExternalTx acknowledges an order the client already signed and sent,
// returning the client's transaction reference.
type ExternalTx string

func (t ExternalTx) Submit(_ context.Context, _ *Order) (string, error) {
	ref := strings.TrimSpace(string(t))
	if ref == "" {
		return "", fmt.Errorf("%w: transaction reference is required", ErrInvalidRequest)
	}
	return ref, nil
}

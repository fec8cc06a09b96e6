package market

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidArgument is returned for pools or inputs the curve cannot price
var ErrInvalidArgument = errors.New("invalid argument")

// TradeDirection selects which side of the pool the player trades against
type TradeDirection int

const (
	Buy TradeDirection = iota
	Sell
)

func (d TradeDirection) String() string {
	switch d {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return fmt.Sprintf("TradeDirection(%d)", int(d))
	}
}

// ParseTradeDirection accepts "buy" or "sell" in any case
func ParseTradeDirection(s string) (TradeDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	}
	return 0, fmt.Errorf("%w: unknown trade direction %q", ErrInvalidArgument, s)
}

func (d TradeDirection) valid() bool {
	return d == Buy || d == Sell
}

func (d TradeDirection) MarshalText() ([]byte, error) {
	if !d.valid() {
		return nil, fmt.Errorf("%w: unknown trade direction %d", ErrInvalidArgument, int(d))
	}
	return []byte(d.String()), nil
}

func (d *TradeDirection) UnmarshalText(b []byte) error {
	v, err := ParseTradeDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// MarketPool is the liquidity pool backing one drug at one location.
// Values are snapshots; the on-chain market owns the authoritative reserves.
type MarketPool struct {
	Quantity float64 `json:"quantity"` // commodity reserve
	Cash     float64 `json:"cash"`     // cash reserve
}

// Validate rejects reserves the constant-product curve cannot price
func (p MarketPool) Validate() error {
	if !finite(p.Quantity) || !finite(p.Cash) {
		return fmt.Errorf("%w: pool reserves must be finite", ErrInvalidArgument)
	}
	if p.Quantity <= 0 || p.Cash <= 0 {
		return fmt.Errorf("%w: pool reserves must be > 0 (quantity=%g cash=%g)",
			ErrInvalidArgument, p.Quantity, p.Cash)
	}
	if !finite(p.Cash / p.Quantity) {
		return fmt.Errorf("%w: spot price overflows", ErrInvalidArgument)
	}
	return nil
}

// SpotPrice is the price of one unit before any size effect
func (p MarketPool) SpotPrice() float64 {
	if p.Quantity <= 0 {
		return 0
	}
	return p.Cash / p.Quantity
}

// Invariant returns k = quantity * cash
func (p MarketPool) Invariant() float64 {
	return p.Quantity * p.Cash
}

// Simulate returns the reserves after a hypothetical trade of quantity units.
// The receiver is not modified.
func (p MarketPool) Simulate(quantity uint64, direction TradeDirection) (MarketPool, error) {
	res, err := CalculateSlippage(p, quantity, direction)
	if err != nil {
		return MarketPool{}, err
	}
	return res.After, nil
}

// SlippageResult describes a previewed trade. NewPrice is the average price
// paid (or received) per unit, so NewPrice*quantity is the trade total.
type SlippageResult struct {
	Direction   TradeDirection `json:"direction"`
	Quantity    uint64         `json:"quantity"`
	SpotPrice   float64        `json:"spot_price"`
	NewPrice    float64        `json:"new_price"`
	PriceImpact float64        `json:"price_impact"`
	Total       float64        `json:"total"`
	After       MarketPool     `json:"after"`
	Exhausted   bool           `json:"exhausted,omitempty"` // buy would drain the commodity reserve
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

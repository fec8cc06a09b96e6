package models

import (
	"time"

	"github.com/aman-zulfiqar/hustler-market/internal/market"
)

// Action is the player's answer to an adverse event
type Action string

const (
	ActionPay   Action = "pay"
	ActionRun   Action = "run"
	ActionFight Action = "fight"
)

// Outcome is the consequence the chain resolves for an Action
type Outcome string

const (
	OutcomeDied        Outcome = "died"
	OutcomePaid        Outcome = "paid"
	OutcomeEscaped     Outcome = "escaped"
	OutcomeVictorious  Outcome = "victorious"
	OutcomeCaptured    Outcome = "captured"
	OutcomeUnsupported Outcome = "unsupported"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeDied, OutcomePaid, OutcomeEscaped, OutcomeVictorious, OutcomeCaptured, OutcomeUnsupported:
		return true
	}
	return false
}

// TradeEvent is a confirmed Bought or Sold record
type TradeEvent struct {
	ID          string                `json:"id"`
	TxRef       string                `json:"tx_ref"`
	GameID      string                `json:"game_id"`
	PlayerID    string                `json:"player_id"`
	Turn        int                   `json:"turn"` // 1-based turn the trade was netted into, 0 if unknown
	Location    string                `json:"location"`
	Drug        string                `json:"drug"`
	Direction   market.TradeDirection `json:"direction"`
	Quantity    uint64                `json:"quantity"`
	Total       float64               `json:"total"` // cost for buys, payout for sells
	SpotPrice   float64               `json:"spot_price"`
	AvgPrice    float64               `json:"avg_price"`
	PriceImpact float64               `json:"price_impact"`
	Timestamp   time.Time             `json:"timestamp"`
}

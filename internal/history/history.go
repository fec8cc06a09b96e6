// Package history keeps the per-turn trade ledger and day recaps for a player.
package history

import (
	"fmt"
	"slices"
	"sync"

	"github.com/aman-zulfiqar/hustler-market/internal/market"
	"github.com/aman-zulfiqar/hustler-market/internal/models"
)

type Trade struct {
	Direction market.TradeDirection `json:"direction"`
	Quantity  uint64                `json:"quantity"`
}

type Encounter struct {
	Status  models.PlayerStatus `json:"status"`
	Outcome models.Outcome      `json:"outcome"`
}

type ItemKind string

const (
	KindTrade     ItemKind = "trade"
	KindEncounter ItemKind = "encounter"
)

// Item is one line of a day recap. Exactly one of Trade or Encounter is set.
type Item struct {
	Kind      ItemKind   `json:"type"`
	Drug      string     `json:"drug,omitempty"`
	Trade     *Trade     `json:"trade,omitempty"`
	Encounter *Encounter `json:"encounter,omitempty"`
}

type Day struct {
	Location string `json:"location_id"`
	Items    []Item `json:"items"`
}

// Log accumulates a player's trades and encounters for the current turn.
// Safe for concurrent use.
type Log struct {
	mu         sync.Mutex
	order      []string // drugs in first-seen order
	trades     map[string]Trade
	encounters []Encounter
	last       *Encounter
	days       []Day
}

func NewLog() *Log {
	return &Log{trades: make(map[string]Trade)}
}

// AddTrade nets t into the turn's running position for drug
func (l *Log) AddTrade(drug string, t Trade) error {
	if t.Direction != market.Buy && t.Direction != market.Sell {
		return fmt.Errorf("%w: unknown trade direction %d", market.ErrInvalidArgument, int(t.Direction))
	}
	if t.Quantity == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	existing, ok := l.trades[drug]
	if !ok {
		l.trades[drug] = t
		l.order = append(l.order, drug)
		return nil
	}

	switch {
	case existing.Direction == t.Direction:
		existing.Quantity += t.Quantity
	case t.Quantity > existing.Quantity:
		existing = Trade{Direction: t.Direction, Quantity: t.Quantity - existing.Quantity}
	case t.Quantity == existing.Quantity:
		delete(l.trades, drug)
		l.order = slices.DeleteFunc(l.order, func(d string) bool { return d == drug })
		return nil
	default:
		existing.Quantity -= t.Quantity
	}
	l.trades[drug] = existing
	return nil
}

func (l *Log) AddEncounter(status models.PlayerStatus, outcome models.Outcome) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", market.ErrInvalidArgument, status)
	}
	if !outcome.Valid() {
		return fmt.Errorf("%w: unknown outcome %q", market.ErrInvalidArgument, outcome)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e := Encounter{Status: status, Outcome: outcome}
	l.encounters = append(l.encounters, e)
	l.last = &e
	return nil
}

// EndTurn closes the current turn at location and returns its recap:
// netted trades in first-seen order, then the last encounter.
func (l *Log) EndTurn(location string) Day {
	l.mu.Lock()
	defer l.mu.Unlock()

	day := Day{Location: location, Items: make([]Item, 0, len(l.order)+1)}
	for _, drug := range l.order {
		t := l.trades[drug]
		day.Items = append(day.Items, Item{Kind: KindTrade, Drug: drug, Trade: &t})
	}
	if l.last != nil {
		e := *l.last
		day.Items = append(day.Items, Item{Kind: KindEncounter, Encounter: &e})
	}

	l.days = append(l.days, day)
	l.order = nil
	l.trades = make(map[string]Trade)
	l.last = nil
	return day
}

// Pending returns the turn's netted trades so far, in first-seen order
func (l *Log) Pending() []Item {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Item, 0, len(l.order))
	for _, drug := range l.order {
		t := l.trades[drug]
		out = append(out, Item{Kind: KindTrade, Drug: drug, Trade: &t})
	}
	return out
}

// Turn is the 1-based number of the open turn
func (l *Log) Turn() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.days) + 1
}

func (l *Log) History() []Day {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.days)
}

func (l *Log) Encounters() []Encounter {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.encounters)
}

func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.order = nil
	l.trades = make(map[string]Trade)
	l.encounters = nil
	l.last = nil
	l.days = nil
}

package trade

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// RiskConfig bounds what one player may trade. A zero value disables that limit.
type RiskConfig struct {
	MaxOrderTotal  decimal.Decimal // cash value of a single order
	DailyLimit     decimal.Decimal // cash volume per player over Window
	MaxPriceImpact float64         // fraction of spot, e.g. 0.25
	Window         time.Duration   // defaults to 24h
}

// RiskCheck is the outcome of checking one order
type RiskCheck struct {
	Allowed        bool            `json:"allowed"`
	Reason         string          `json:"reason,omitempty"`
	DailyUsed      decimal.Decimal `json:"daily_used"`
	DailyRemaining decimal.Decimal `json:"daily_remaining"`
}

// RiskManager enforces RiskConfig and tracks rolling volume per player
type RiskManager struct {
	cfg RiskConfig
	now func() time.Time

	mu    sync.Mutex
	usage map[string][]usageRecord
}

type usageRecord struct {
	at    time.Time
	total decimal.Decimal
}

func NewRiskManager(cfg RiskConfig) *RiskManager {
	if cfg.Window <= 0 {
		cfg.Window = 24 * time.Hour
	}
	return &RiskManager{
		cfg:   cfg,
		now:   time.Now,
		usage: make(map[string][]usageRecord),
	}
}

// Check validates an order against every configured limit
func (rm *RiskManager) Check(o *Order) RiskCheck {
	used := rm.Usage(o.Request.GameID, o.Request.PlayerID)
	res := RiskCheck{Allowed: true, DailyUsed: used}
	if rm.cfg.DailyLimit.IsPositive() {
		res.DailyRemaining = decimal.Max(rm.cfg.DailyLimit.Sub(used), decimal.Zero)
	}

	switch {
	case rm.cfg.MaxOrderTotal.IsPositive() && o.Total.GreaterThan(rm.cfg.MaxOrderTotal):
		res.Allowed = false
		res.Reason = fmt.Sprintf("order total %s exceeds max %s per order",
			o.Total.StringFixed(2), rm.cfg.MaxOrderTotal.StringFixed(2))
	case rm.cfg.DailyLimit.IsPositive() && used.Add(o.Total).GreaterThan(rm.cfg.DailyLimit):
		res.Allowed = false
		res.Reason = fmt.Sprintf("daily limit exceeded: used %s + %s > %s",
			used.StringFixed(2), o.Total.StringFixed(2), rm.cfg.DailyLimit.StringFixed(2))
	case rm.cfg.MaxPriceImpact > 0 && o.PriceImpact > rm.cfg.MaxPriceImpact:
		res.Allowed = false
		res.Reason = fmt.Sprintf("price impact %.2f%% exceeds max %.2f%%",
			o.PriceImpact*100, rm.cfg.MaxPriceImpact*100)
	}
	return res
}

// Record adds a submitted order to its player's rolling volume
func (rm *RiskManager) Record(o *Order) {
	key := usageKey(o.Request.GameID, o.Request.PlayerID)

	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.usage[key] = append(rm.prune(key), usageRecord{at: rm.now(), total: o.Total})
}

// Usage is the player's traded volume inside the window
func (rm *RiskManager) Usage(gameID, playerID string) decimal.Decimal {
	key := usageKey(gameID, playerID)

	rm.mu.Lock()
	defer rm.mu.Unlock()
	recs := rm.prune(key)
	if len(recs) == 0 {
		delete(rm.usage, key)
	} else {
		rm.usage[key] = recs
	}

	total := decimal.Zero
	for _, r := range recs {
		total = total.Add(r.total)
	}
	return total
}

// prune drops records older than the window. Caller holds mu.
func (rm *RiskManager) prune(key string) []usageRecord {
	cutoff := rm.now().Add(-rm.cfg.Window)
	recs := rm.usage[key]
	kept := recs[:0]
	for _, r := range recs {
		if r.at.After(cutoff) {
			kept = append(kept, r)
		}
	}
	return kept
}

func usageKey(gameID, playerID string) string {
	return gameID + "/" + playerID
}

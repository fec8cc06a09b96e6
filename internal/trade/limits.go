package trade

import (
	"math"
	"sort"

	"github.com/aman-zulfiqar/hustler-market/internal/constants"
	"github.com/aman-zulfiqar/hustler-market/internal/market"
	"github.com/aman-zulfiqar/hustler-market/internal/models"
	"github.com/shopspring/decimal"
)

// BuyLimit is the largest buy the player can afford and carry
func BuyLimit(pool market.MarketPool, player *models.Player) (uint64, error) {
	if player == nil {
		return 0, nil
	}
	n, err := affordable(pool, player.Cash)
	if err != nil {
		return 0, err
	}
	return min(n, player.BagSpace()), nil
}

// affordable is the largest buy whose cent-rounded charge fits in cash.
// Cash is floored to cents first; sub-cent balances cannot be spent.
func affordable(pool market.MarketPool, cash float64) (uint64, error) {
	if !(cash > 0) {
		cash = 0
	}
	if math.IsInf(cash, 1) {
		return market.CalculateMaxQuantity(pool, cash)
	}

	budget := decimal.NewFromFloat(cash).RoundFloor(2)
	q, err := market.CalculateMaxQuantity(pool, budget.InexactFloat64())
	if err != nil || q == 0 {
		return q, err
	}

	var searchErr error
	over := func(n uint64) bool {
		res, err := market.CalculateSlippage(pool, n, market.Buy)
		if err != nil {
			searchErr = err
			return true
		}
		return RoundTotal(res.Total, market.Buy).GreaterThan(budget)
	}
	if !over(q) {
		return q, nil
	}
	// first i in [0, q) whose quantity i+1 is over budget; every quantity <= i fits
	i := sort.Search(int(q), func(i int) bool { return over(uint64(i) + 1) })
	if searchErr != nil {
		return 0, searchErr
	}
	return uint64(i), nil
}

// SellLimit is how many units of drug the player can sell
func SellLimit(player *models.Player, drug string) uint64 {
	return player.Held(drug)
}

// Clamp bounds a requested quantity to [0, limit]
func Clamp(quantity, limit uint64) uint64 {
	return min(quantity, limit)
}

// ClampSigned bounds a slider position: positive buys up to buyLimit,
// negative sells down to -sellLimit.
func ClampSigned(delta int64, buyLimit, sellLimit uint64) int64 {
	if delta >= 0 {
		return int64(min(uint64(delta), buyLimit))
	}
	// -(delta+1)+1 avoids overflow at math.MinInt64
	mag := uint64(-(delta + 1)) + 1
	mag = min(mag, sellLimit)
	if mag > math.MaxInt64 {
		return math.MinInt64
	}
	return -int64(mag)
}

func CanBuy(pool market.MarketPool, player *models.Player) bool {
	if player == nil {
		return false
	}
	return player.Cash > pool.SpotPrice()
}

func CanSell(player *models.Player, drug string) bool {
	return player.Held(drug) > 0
}

// ClassifyImpact buckets a fractional price impact for display
func ClassifyImpact(impact float64) ImpactLevel {
	switch {
	case impact > constants.SevereImpact:
		return ImpactSevere
	case impact > constants.ModerateImpact:
		return ImpactModerate
	default:
		return ImpactLow
	}
}

// ComputeLimits gathers every bound for one player at one market
func ComputeLimits(pool market.MarketPool, player *models.Player, drug string) (Limits, error) {
	buy, err := BuyLimit(pool, player)
	if err != nil {
		return Limits{}, err
	}
	return Limits{
		SpotPrice: pool.SpotPrice(),
		MaxBuy:    buy,
		MaxSell:   SellLimit(player, drug),
		CanBuy:    CanBuy(pool, player),
		CanSell:   CanSell(player, drug),
	}, nil
}

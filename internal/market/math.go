package market

import (
	"fmt"
	"math"
	"sort"
)

// maxTradeQuantity keeps quantities inside the range float64 represents exactly
const maxTradeQuantity = 1 << 53

// CalculateSlippage prices a trade of quantity units against a constant-product pool.
// k = quantity * cash is held fixed:
//
//	buy  q: reserves -> (Q-q, k/(Q-q)), average price C/(Q-q)
//	sell q: reserves -> (Q+q, k/(Q+q)), average price C/(Q+q)
//
// A buy that would drain the pool is priced as if min(1, Q) units remained and
// is flagged Exhausted. Range checks belong to the caller (see CalculateMaxQuantity).
func CalculateSlippage(pool MarketPool, quantity uint64, direction TradeDirection) (SlippageResult, error) {
	if err := pool.Validate(); err != nil {
		return SlippageResult{}, err
	}
	if !direction.valid() {
		return SlippageResult{}, fmt.Errorf("%w: unknown trade direction %d", ErrInvalidArgument, int(direction))
	}

	spot := pool.SpotPrice()
	res := SlippageResult{
		Direction: direction,
		Quantity:  quantity,
		SpotPrice: spot,
		NewPrice:  spot,
		After:     pool,
	}
	if quantity == 0 {
		return res, nil
	}

	q := float64(quantity)
	var remaining float64
	switch direction {
	case Buy:
		remaining = pool.Quantity - q
		if remaining <= 0 {
			remaining = math.Min(1, pool.Quantity)
			res.Exhausted = true
		}
	case Sell:
		remaining = pool.Quantity + q
	}

	res.NewPrice = averagePrice(pool, remaining)
	res.Total = res.NewPrice * q
	res.PriceImpact = math.Abs(res.NewPrice-spot) / spot
	// C*Q/remaining keeps k without forming the product
	res.After = MarketPool{Quantity: remaining, Cash: pool.Cash * (pool.Quantity / remaining)}

	if !finite(res.NewPrice) || !finite(res.Total) || !finite(res.PriceImpact) ||
		!finite(res.After.Cash) || !finite(res.After.Quantity) {
		return SlippageResult{}, fmt.Errorf("%w: trade of %d overflows pool arithmetic", ErrInvalidArgument, quantity)
	}
	return res, nil
}

// CalculateSignedSlippage maps a signed slider value onto the engine:
// delta > 0 buys, delta < 0 sells |delta|.
func CalculateSignedSlippage(pool MarketPool, delta int64) (SlippageResult, error) {
	if delta >= 0 {
		return CalculateSlippage(pool, uint64(delta), Buy)
	}
	// -(delta+1)+1 avoids overflow at math.MinInt64
	return CalculateSlippage(pool, uint64(-(delta+1))+1, Sell)
}

// CalculateMaxQuantity returns the largest whole quantity whose buy cost on the
// pool's curve fits in cashAvailable. The result is always below the pool's supply.
func CalculateMaxQuantity(pool MarketPool, cashAvailable float64) (uint64, error) {
	if err := pool.Validate(); err != nil {
		return 0, err
	}
	if !finite(cashAvailable) || cashAvailable < 0 {
		return 0, fmt.Errorf("%w: cash available must be a finite value >= 0 (got %g)", ErrInvalidArgument, cashAvailable)
	}
	if cashAvailable == 0 {
		return 0, nil
	}

	limit := supplyLimit(pool.Quantity)
	if limit == 0 {
		return 0, nil
	}

	affordable := func(q uint64) bool {
		return buyCost(pool, q) <= cashAvailable
	}

	// Inverse of cost(q) = C*q/(Q-q) is Q*B/(C+B); use it to bracket the search.
	est := math.Floor(pool.Quantity * (cashAvailable / (pool.Cash + cashAvailable)))
	hi := limit
	if est+2 < float64(limit) {
		hi = uint64(est) + 2
	}
	if affordable(hi) {
		// estimate was low, fall back to the full range
		if hi == limit {
			return limit, nil
		}
		hi = limit
	}

	// cost is non-decreasing in q, so the affordable set is a prefix of [0, hi]
	n := sort.Search(int(hi)+1, func(i int) bool {
		return !affordable(uint64(i))
	})
	return uint64(n) - 1, nil
}

// buyCost is the total CalculateSlippage reports for a buy of q < supply
func buyCost(pool MarketPool, q uint64) float64 {
	if q == 0 {
		return 0
	}
	return averagePrice(pool, pool.Quantity-float64(q)) * float64(q)
}

func averagePrice(pool MarketPool, remaining float64) float64 {
	return pool.Cash / remaining
}

// supplyLimit is the largest whole quantity strictly below the commodity reserve
func supplyLimit(reserve float64) uint64 {
	if reserve > maxTradeQuantity {
		return maxTradeQuantity
	}
	c := math.Ceil(reserve)
	if c < 1 {
		return 0
	}
	return uint64(c) - 1
}

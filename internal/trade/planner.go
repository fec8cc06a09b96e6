package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/hustler-market/internal/catalog"
	"github.com/aman-zulfiqar/hustler-market/internal/history"
	"github.com/aman-zulfiqar/hustler-market/internal/market"
	"github.com/aman-zulfiqar/hustler-market/internal/models"
	"github.com/aman-zulfiqar/hustler-market/internal/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Planner turns trade requests into previews and orders against a state snapshot
type Planner struct {
	provider storage.StateProvider
	journal  *history.Journal
	store    storage.TradeStore
	risk     *RiskManager
	logger   *logrus.Logger
	now      func() time.Time
}

// PlannerConfig holds the planner's collaborators. Journal, Store and Risk are optional.
type PlannerConfig struct {
	Provider storage.StateProvider
	Journal  *history.Journal
	Store    storage.TradeStore
	Risk     *RiskManager
	Logger   *logrus.Logger
}

func NewPlanner(cfg PlannerConfig) (*Planner, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("planner needs a state provider")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Planner{
		provider: cfg.Provider,
		journal:  cfg.Journal,
		store:    cfg.Store,
		risk:     cfg.Risk,
		logger:   cfg.Logger,
		now:      time.Now,
	}, nil
}

// Limits loads the market and player and returns the player's bounds there
func (p *Planner) Limits(ctx context.Context, req Request) (*Limits, error) {
	req, err := normalize(req)
	if err != nil {
		return nil, err
	}
	snap, player, err := p.load(ctx, req)
	if err != nil {
		return nil, err
	}
	limits, err := ComputeLimits(snap.Pool, player, req.Drug)
	if err != nil {
		return nil, err
	}
	return &limits, nil
}

// Preview clamps the request to the player's limits and prices it.
// Nothing is reserved; every call recomputes from the current snapshot.
func (p *Planner) Preview(ctx context.Context, req Request) (*Preview, error) {
	req, err := normalize(req)
	if err != nil {
		return nil, err
	}
	snap, player, err := p.load(ctx, req)
	if err != nil {
		return nil, err
	}
	return preview(snap.Pool, player, req)
}

func preview(pool market.MarketPool, player *models.Player, req Request) (*Preview, error) {
	limits, err := ComputeLimits(pool, player, req.Drug)
	if err != nil {
		return nil, err
	}

	requested := req.Quantity
	req.Quantity = Clamp(requested, limits.Max(req.Direction))

	res, err := market.CalculateSlippage(pool, req.Quantity, req.Direction)
	if err != nil {
		return nil, err
	}

	return &Preview{
		Request:   req,
		Requested: requested,
		Clamped:   req.Quantity != requested,
		Slippage:  res,
		Total:     RoundTotal(res.Total, req.Direction),
		Limits:    limits,
		Impact:    ClassifyImpact(res.PriceImpact),
	}, nil
}

// RoundTotal rounds a trade total to cents against the player
func RoundTotal(total float64, direction market.TradeDirection) decimal.Decimal {
	d := decimal.NewFromFloat(total)
	if direction == market.Sell {
		return d.RoundFloor(2)
	}
	return d.RoundCeil(2)
}

// Prepare validates a request without clamping and returns a submittable order
func (p *Planner) Prepare(ctx context.Context, req Request) (*Order, error) {
	req, err := normalize(req)
	if err != nil {
		return nil, err
	}
	if req.Quantity == 0 {
		return nil, ErrZeroQuantity
	}

	snap, player, err := p.load(ctx, req)
	if err != nil {
		return nil, err
	}
	if player.Status != "" && player.Status != models.StatusNormal {
		return nil, fmt.Errorf("%w: player is %s", ErrInvalidRequest, player.Status)
	}
	if player.Location != "" && player.Location != req.Location {
		return nil, fmt.Errorf("%w: player is at %s, not %s", ErrInvalidRequest, player.Location, req.Location)
	}

	pv, err := preview(snap.Pool, player, req)
	if err != nil {
		return nil, err
	}
	if pv.Clamped {
		return nil, fmt.Errorf("%w: %s %d %s, limit is %d",
			ErrExceedsLimit, req.Direction, req.Quantity, req.Drug, pv.Request.Quantity)
	}

	order := &Order{
		ID:            uuid.NewString(),
		Request:       pv.Request,
		SpotPrice:     pv.Slippage.SpotPrice,
		ExpectedPrice: pv.Slippage.NewPrice,
		Total:         pv.Total,
		PriceImpact:   pv.Slippage.PriceImpact,
		Impact:        pv.Impact,
		PreparedAt:    p.now().UTC(),
	}
	if p.risk != nil {
		if check := p.risk.Check(order); !check.Allowed {
			return nil, fmt.Errorf("%w: %s", ErrRiskRejected, check.Reason)
		}
	}
	return order, nil
}

// Execute prepares the order, hands it to sub and records the confirmed trade:
// risk usage, the open turn in the journal, then the trade store.
func (p *Planner) Execute(ctx context.Context, req Request, sub Submitter) (*models.TradeEvent, error) {
	if sub == nil {
		return nil, fmt.Errorf("%w: no submitter", ErrInvalidRequest)
	}

	order, err := p.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	txRef, err := sub.Submit(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("submit order %s: %w", order.ID, err)
	}
	if p.risk != nil {
		p.risk.Record(order)
	}

	r := order.Request
	event := &models.TradeEvent{
		ID:          order.ID,
		TxRef:       txRef,
		GameID:      r.GameID,
		PlayerID:    r.PlayerID,
		Location:    r.Location,
		Drug:        r.Drug,
		Direction:   r.Direction,
		Quantity:    r.Quantity,
		Total:       order.Total.InexactFloat64(),
		SpotPrice:   order.SpotPrice,
		AvgPrice:    order.ExpectedPrice,
		PriceImpact: order.PriceImpact,
		Timestamp:   p.now().UTC(),
	}

	p.logger.WithFields(logrus.Fields{
		"order":     order.ID,
		"tx":        txRef,
		"drug":      r.Drug,
		"direction": r.Direction.String(),
		"quantity":  r.Quantity,
		"total":     order.Total.StringFixed(2),
	}).Info("trade submitted")

	if p.journal != nil {
		l := p.journal.Log(r.GameID, r.PlayerID)
		event.Turn = l.Turn()
		if err := l.AddTrade(r.Drug, history.Trade{
			Direction: r.Direction,
			Quantity:  r.Quantity,
		}); err != nil {
			p.logger.WithError(err).Warn("failed to journal trade")
		}
	}
	if p.store != nil {
		if err := p.store.InsertTrade(ctx, event); err != nil {
			p.logger.WithError(err).WithField("order", order.ID).Warn("failed to persist trade")
		}
	}

	return event, nil
}

func (p *Planner) load(ctx context.Context, req Request) (*models.MarketSnapshot, *models.Player, error) {
	snap, err := p.provider.Market(ctx, req.GameID, req.Location, req.Drug)
	if err != nil {
		return nil, nil, fmt.Errorf("load market: %w", err)
	}
	player, err := p.provider.Player(ctx, req.GameID, req.PlayerID)
	if err != nil {
		return nil, nil, fmt.Errorf("load player: %w", err)
	}
	return snap, player, nil
}

// normalize checks the request shape and resolves catalog slugs to ids
func normalize(req Request) (Request, error) {
	if req.GameID == "" || req.PlayerID == "" {
		return req, fmt.Errorf("%w: game and player are required", ErrInvalidRequest)
	}
	if req.Direction != market.Buy && req.Direction != market.Sell {
		return req, fmt.Errorf("%w: unknown direction %d", ErrInvalidRequest, int(req.Direction))
	}

	loc, err := catalog.LocationBySlug(req.Location)
	if err != nil {
		return req, fmt.Errorf("%w: %q", ErrUnknownLocation, req.Location)
	}
	drug, err := catalog.DrugBySlug(req.Drug)
	if err != nil {
		return req, fmt.Errorf("%w: %q", ErrUnknownDrug, req.Drug)
	}

	req.Location = loc.ID
	req.Drug = drug.ID
	return req, nil
}

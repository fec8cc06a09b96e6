package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/hustler-market/internal/catalog"
	"github.com/aman-zulfiqar/hustler-market/internal/market"
	"github.com/aman-zulfiqar/hustler-market/internal/trade"
	"github.com/labstack/echo/v4"
)

// marketRequest builds a trade request from the market path and ?player=
func marketRequest(c echo.Context) trade.Request {
	return trade.Request{
		GameID:   strings.TrimSpace(c.Param("game")),
		PlayerID: strings.TrimSpace(c.QueryParam("player")),
		Location: c.Param("location"),
		Drug:     c.Param("drug"),
	}
}

// Markets returns every drug market at a location with its spot price
func (h *Handlers) Markets(c echo.Context) error {
	gameID := strings.TrimSpace(c.Param("game"))
	loc, err := catalog.LocationBySlug(c.Param("location"))
	if err != nil {
		return h.err(c, http.StatusNotFound, "unknown location", map[string]any{"location": c.Param("location")})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Provider.Markets(ctx, gameID, loc.ID)
	if err != nil {
		return h.fail(c, err, "failed to get markets")
	}
	return c.JSON(http.StatusOK, MarketsResponse{Items: items})
}

// Limits returns the player's buy/sell bounds and market-screen gates
func (h *Handlers) Limits(c echo.Context) error {
	req := marketRequest(c)
	if req.PlayerID == "" {
		return h.err(c, http.StatusBadRequest, "invalid player", map[string]any{"player": "required"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	limits, err := h.Planner.Limits(ctx, req)
	if err != nil {
		return h.fail(c, err, "failed to compute limits")
	}
	return c.JSON(http.StatusOK, limits)
}

// Quote clamps ?quantity= to the player's limits and prices it
func (h *Handlers) Quote(c echo.Context) error {
	req := marketRequest(c)
	if req.PlayerID == "" {
		return h.err(c, http.StatusBadRequest, "invalid player", map[string]any{"player": "required"})
	}

	req.Direction = market.Buy
	if v := c.QueryParam("direction"); v != "" {
		d, err := market.ParseTradeDirection(v)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid direction", map[string]any{"direction": "must be buy or sell"})
		}
		req.Direction = d
	}

	amountStr := strings.TrimSpace(c.QueryParam("quantity"))
	if amountStr == "" {
		return h.err(c, http.StatusBadRequest, "invalid quantity", map[string]any{"quantity": "required"})
	}
	q, err := strconv.ParseUint(amountStr, 10, 64)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid quantity", map[string]any{"quantity": "must be uint64"})
	}
	req.Quantity = q

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pv, err := h.Planner.Preview(ctx, req)
	if err != nil {
		return h.fail(c, err, "failed to preview trade")
	}
	return c.JSON(http.StatusOK, pv)
}

func (b OrderRequest) tradeRequest(gameID string) trade.Request {
	return trade.Request{
		GameID:    gameID,
		PlayerID:  strings.TrimSpace(b.PlayerID),
		Location:  b.Location,
		Drug:      b.Drug,
		Direction: b.Direction,
		Quantity:  b.Quantity,
	}
}

func (h *Handlers) tradingOpen(ctx context.Context, gameID string) bool {
	return h.enabled(ctx, func(ctx context.Context) (bool, error) {
		return h.Flags.TradingOpen(ctx, gameID)
	})
}

// CreateOrder validates an unclamped request and returns a submittable order
func (h *Handlers) CreateOrder(c echo.Context) error {
	var body OrderRequest
	if err := c.Bind(&body); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	gameID := strings.TrimSpace(c.Param("game"))

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if !h.tradingOpen(ctx, gameID) {
		return h.err(c, http.StatusServiceUnavailable, "trading is paused", map[string]any{"game": gameID})
	}

	order, err := h.Planner.Prepare(ctx, body.tradeRequest(gameID))
	if err != nil {
		return h.fail(c, err, "order rejected")
	}
	return c.JSON(http.StatusCreated, order)
}

// ConfirmTrade records a trade the client signed and sent. The request is
// validated like an order, then counted against the player's risk limits,
// netted into the open turn and persisted.
func (h *Handlers) ConfirmTrade(c echo.Context) error {
	var body TradeConfirmRequest
	if err := c.Bind(&body); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if strings.TrimSpace(body.TxRef) == "" {
		return h.err(c, http.StatusBadRequest, "invalid tx_ref", map[string]any{"tx_ref": "required"})
	}
	gameID := strings.TrimSpace(c.Param("game"))

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if !h.tradingOpen(ctx, gameID) {
		return h.err(c, http.StatusServiceUnavailable, "trading is paused", map[string]any{"game": gameID})
	}

	event, err := h.Planner.Execute(ctx, body.tradeRequest(gameID), trade.ExternalTx(body.TxRef))
	if err != nil {
		return h.fail(c, err, "trade rejected")
	}
	return c.JSON(http.StatusCreated, event)
}

package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aman-zulfiqar/hustler-market/internal/ai"
	"github.com/aman-zulfiqar/hustler-market/internal/catalog"
	"github.com/aman-zulfiqar/hustler-market/internal/flags"
	"github.com/aman-zulfiqar/hustler-market/internal/history"
	"github.com/aman-zulfiqar/hustler-market/internal/market"
	"github.com/aman-zulfiqar/hustler-market/internal/storage"
	"github.com/aman-zulfiqar/hustler-market/internal/trade"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Provider     storage.StateProvider  // Cached view of chain state
	Planner      *trade.Planner         // Previews and orders, built on Provider
	Journal      *history.Journal       // Per-player turn history
	Archive      storage.HistoryArchive // Closed turns in SQL (optional)
	Flags        *flags.Store           // Redis-backed operator switches (optional)
	AI           *ai.Agent              // AI agent for natural language queries (optional)
	AIBaseConfig ai.AgentConfig         // Base configuration for AI agents
	DevMode      bool                   // Enable detailed error responses in development
	Logger       *logrus.Logger         // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// fail maps a domain error to its status and logs upstream failures
func (h *Handlers) fail(c echo.Context, err error, msg string) error {
	code := statusFor(err)
	if code >= http.StatusInternalServerError && h.Logger != nil {
		h.Logger.WithError(err).WithField("path", c.Path()).Warn(msg)
	}
	return h.err(c, code, msg, map[string]any{"err": err.Error()})
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// Catalog lists the drugs and locations every game uses
func (h *Handlers) Catalog(c echo.Context) error {
	return c.JSON(http.StatusOK, CatalogResponse{Drugs: catalog.Drugs, Locations: catalog.Locations})
}

// Slippage prices a trade against the pool in the request body
func (h *Handlers) Slippage(c echo.Context) error {
	var req SlippageRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	var (
		res market.SlippageResult
		err error
	)
	if req.Delta != nil {
		res, err = market.CalculateSignedSlippage(req.Pool, *req.Delta)
	} else {
		res, err = market.CalculateSlippage(req.Pool, req.Quantity, req.Direction)
	}
	if err != nil {
		return h.fail(c, err, "invalid slippage request")
	}
	return c.JSON(http.StatusOK, res)
}

// MaxQuantity returns the largest buy that cash affords on the pool in the body
func (h *Handlers) MaxQuantity(c echo.Context) error {
	var req MaxQuantityRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	q, err := market.CalculateMaxQuantity(req.Pool, req.Cash)
	if err != nil {
		return h.fail(c, err, "invalid max quantity request")
	}
	return c.JSON(http.StatusOK, MaxQuantityResponse{Quantity: q})
}

// FlagsUpsert creates or updates a switch with the given key and value
func (h *Handlers) FlagsUpsert(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusBadRequest, "flags are not configured", nil)
	}
	var req FlagUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := flags.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, req.Key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to upsert flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsGet retrieves a switch by its key
// Returns 404 if flag doesn't exist
func (h *Handlers) FlagsGet(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusBadRequest, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	if err != nil {
		if errors.Is(err, flags.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "flag not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsList returns all switches
func (h *Handlers) FlagsList(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusBadRequest, "flags are not configured", nil)
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list flags", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsDelete removes a switch, restoring its default
// Returns 204 No Content on successful deletion
func (h *Handlers) FlagsDelete(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusBadRequest, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete flag", nil)
	}
	return c.NoContent(http.StatusNoContent)
}

// enabled reads an operator switch; a missing store or a read failure leaves it on
func (h *Handlers) enabled(ctx context.Context, check func(context.Context) (bool, error)) bool {
	if h.Flags == nil {
		return true
	}
	on, err := check(ctx)
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Warn("flag read failed, assuming enabled")
		}
		return true
	}
	return on
}

// AIAsk answers natural language questions about recorded trades
// Supports optional model override for one-off requests
func (h *Handlers) AIAsk(c echo.Context) error {
	if h.AI == nil {
		return h.err(c, http.StatusBadRequest, "ai is not configured", nil)
	}

	var req AIAskRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return h.err(c, http.StatusBadRequest, "question is required", map[string]any{"question": "required"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 45*time.Second)
	defer cancel()

	if !h.enabled(ctx, func(ctx context.Context) (bool, error) {
		return h.Flags.Enabled(ctx, flags.AIEnabled, true)
	}) {
		return h.err(c, http.StatusServiceUnavailable, "ai is disabled", nil)
	}

	start := time.Now()

	agent, release, err := h.aiAgent(ctx, req.Model)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to create ai agent", nil)
	}
	defer release()

	res, err := agent.Ask(ctx, req.Question, ai.Scope{
		GameID:   strings.TrimSpace(req.GameID),
		PlayerID: strings.TrimSpace(req.PlayerID),
	})
	if err != nil {
		return h.aiFail(c, err, "ai ask failed")
	}

	return c.JSON(http.StatusOK, AIAskResponse{SQL: res.SQL, Answer: res.Answer, TookMs: time.Since(start).Milliseconds()})
}

// AIReport runs a built-in game report (netting, prices, leaders) and summarises it
func (h *Handlers) AIReport(c echo.Context) error {
	if h.AI == nil {
		return h.err(c, http.StatusBadRequest, "ai is not configured", nil)
	}

	var req AIReportRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 45*time.Second)
	defer cancel()

	if !h.enabled(ctx, func(ctx context.Context) (bool, error) {
		return h.Flags.Enabled(ctx, flags.AIEnabled, true)
	}) {
		return h.err(c, http.StatusServiceUnavailable, "ai is disabled", nil)
	}

	start := time.Now()
	kind := ai.ReportKind(strings.ToLower(strings.TrimSpace(req.Report)))
	res, err := h.AI.Report(ctx, kind, ai.Scope{
		GameID:   strings.TrimSpace(req.GameID),
		PlayerID: strings.TrimSpace(req.PlayerID),
	})
	if err != nil {
		return h.aiFail(c, err, "ai report failed")
	}

	return c.JSON(http.StatusOK, AIAskResponse{SQL: res.SQL, Answer: res.Answer, TookMs: time.Since(start).Milliseconds()})
}

// aiAgent returns the default agent, or a temporary one for a model override.
// release closes the temporary agent.
func (h *Handlers) aiAgent(ctx context.Context, model string) (*ai.Agent, func(), error) {
	m := strings.TrimSpace(model)
	if m == "" {
		return h.AI, func() {}, nil
	}
	cfg := h.AIBaseConfig
	cfg.Model = m
	a, err := ai.NewAgent(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return a, func() { _ = a.Close() }, nil
}

func (h *Handlers) aiFail(c echo.Context, err error, msg string) error {
	code := http.StatusBadGateway
	if errors.Is(err, ai.ErrInvalidRequest) {
		code = http.StatusBadRequest
	}
	return h.err(c, code, msg, map[string]any{"err": err.Error()})
}

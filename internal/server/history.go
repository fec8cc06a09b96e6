package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/aman-zulfiqar/hustler-market/internal/catalog"
	"github.com/aman-zulfiqar/hustler-market/internal/history"
	"github.com/labstack/echo/v4"
)

func playerIDs(c echo.Context) (string, string) {
	return strings.TrimSpace(c.Param("game")), strings.TrimSpace(c.Param("player"))
}

func (h *Handlers) playerLog(c echo.Context) (*history.Log, bool) {
	gameID, playerID := playerIDs(c)
	if gameID == "" || playerID == "" {
		return nil, false
	}
	return h.Journal.Log(gameID, playerID), true
}

func historyResponse(l *history.Log) HistoryResponse {
	return HistoryResponse{
		Days:       l.History(),
		Pending:    l.Pending(),
		Encounters: l.Encounters(),
	}
}

// History returns past days, the open turn's netted trades and all encounters
func (h *Handlers) History(c echo.Context) error {
	l, ok := h.playerLog(c)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid player", nil)
	}
	return c.JSON(http.StatusOK, historyResponse(l))
}

// ResetHistory clears the player's history
func (h *Handlers) ResetHistory(c echo.Context) error {
	l, ok := h.playerLog(c)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid player", nil)
	}
	l.Reset()

	if h.Archive != nil {
		ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		gameID, playerID := playerIDs(c)
		if err := h.Archive.Clear(ctx, gameID, playerID); err != nil {
			return h.fail(c, err, "failed to clear archived history")
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// AddHistoryTrade nets a confirmed trade into the open turn
func (h *Handlers) AddHistoryTrade(c echo.Context) error {
	l, ok := h.playerLog(c)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid player", nil)
	}
	var req HistoryTradeRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	drug, err := catalog.DrugBySlug(req.Drug)
	if err != nil {
		return h.err(c, http.StatusNotFound, "unknown drug", map[string]any{"drug": req.Drug})
	}

	if err := l.AddTrade(drug.ID, history.Trade{Direction: req.Direction, Quantity: req.Quantity}); err != nil {
		return h.fail(c, err, "invalid trade")
	}
	return c.JSON(http.StatusOK, historyResponse(l))
}

// AddEncounter records the outcome of an adverse event
func (h *Handlers) AddEncounter(c echo.Context) error {
	l, ok := h.playerLog(c)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid player", nil)
	}
	var req EncounterRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	if err := l.AddEncounter(req.Status, req.Outcome); err != nil {
		return h.fail(c, err, "invalid encounter")
	}
	return c.JSON(http.StatusOK, historyResponse(l))
}

// EndTurn closes the open turn and returns its recap
func (h *Handlers) EndTurn(c echo.Context) error {
	l, ok := h.playerLog(c)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid player", nil)
	}
	var req EndTurnRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	loc, err := catalog.LocationBySlug(req.Location)
	if err != nil {
		return h.err(c, http.StatusNotFound, "unknown location", map[string]any{"location_id": req.Location})
	}

	day := l.EndTurn(loc.ID)
	if h.Archive != nil {
		ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		gameID, playerID := playerIDs(c)
		if _, err := h.Archive.SaveDay(ctx, gameID, playerID, day); err != nil && h.Logger != nil {
			h.Logger.WithError(err).WithField("player", playerID).Warn("failed to archive turn")
		}
	}
	return c.JSON(http.StatusOK, day)
}

// ArchivedHistory returns every persisted turn, including those from before a restart
func (h *Handlers) ArchivedHistory(c echo.Context) error {
	if h.Archive == nil {
		return h.err(c, http.StatusBadRequest, "history archive is not configured", nil)
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	gameID, playerID := playerIDs(c)
	days, err := h.Archive.Days(ctx, gameID, playerID)
	if err != nil {
		return h.fail(c, err, "failed to read archived history")
	}
	return c.JSON(http.StatusOK, ArchiveResponse{Days: days})
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aman-zulfiqar/hustler-market/internal/history"
	"github.com/aman-zulfiqar/hustler-market/internal/market"
	"github.com/aman-zulfiqar/hustler-market/internal/models"
	"github.com/aman-zulfiqar/hustler-market/internal/storage"
	"github.com/aman-zulfiqar/hustler-market/internal/trade"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-api-key"

var testPool = market.MarketPool{Quantity: 1000, Cash: 10000}

// stubProvider serves one weed market and one player
type stubProvider struct {
	down bool
}

func (s *stubProvider) Market(ctx context.Context, gameID, location, drug string) (*models.MarketSnapshot, error) {
	snaps, err := s.Markets(ctx, gameID, location)
	if err != nil {
		return nil, err
	}
	if drug != "weed" {
		return nil, storage.ErrNotFound
	}
	return snaps[0], nil
}

func (s *stubProvider) Markets(_ context.Context, gameID, location string) ([]*models.MarketSnapshot, error) {
	if s.down {
		return nil, errors.New("indexer unreachable")
	}
	return []*models.MarketSnapshot{models.NewMarketSnapshot(gameID, location, "weed", testPool, time.Now())}, nil
}

func (s *stubProvider) Player(_ context.Context, gameID, playerID string) (*models.Player, error) {
	if playerID != "p1" {
		return nil, storage.ErrNotFound
	}
	return &models.Player{
		GameID:    gameID,
		PlayerID:  playerID,
		Cash:      500,
		Status:    models.StatusNormal,
		Location:  "queens",
		Drugs:     map[string]uint64{"weed": 5},
		Transport: 100,
	}, nil
}

func newTestServer(t *testing.T, provider storage.StateProvider) *Server {
	return newPlannerServer(t, trade.PlannerConfig{Provider: provider})
}

// newPlannerServer shares one journal between the planner and the history routes
func newPlannerServer(t *testing.T, cfg trade.PlannerConfig) *Server {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg.Logger = logger
	if cfg.Journal == nil {
		cfg.Journal = history.NewJournal()
	}
	planner, err := trade.NewPlanner(cfg)
	require.NoError(t, err)

	srv, err := NewServer(ServerDeps{
		Handlers: &Handlers{
			Provider: cfg.Provider,
			Planner:  planner,
			Journal:  cfg.Journal,
			DevMode:  true,
			Logger:   logger,
		},
		Config: ServerConfig{APIKey: testAPIKey, DevMode: true},
	})
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNewServer_RequiresDeps(t *testing.T) {
	_, err := NewServer(ServerDeps{Handlers: &Handlers{}})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})

	rec := do(t, srv, http.MethodGet, "/v1/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[HealthResponse](t, rec).OK)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestAuthentication(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set("X-API-Key", "invalid-key")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestNotFoundRoute(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})

	rec := do(t, srv, http.MethodGet, "/v1/nonexistent", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "not found", resp.Error)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCatalog(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})

	rec := do(t, srv, http.MethodGet, "/v1/catalog", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[CatalogResponse](t, rec)
	assert.Len(t, resp.Drugs, 6)
	assert.Len(t, resp.Locations, 6)
}

func TestSlippage(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})

	rec := do(t, srv, http.MethodPost, "/v1/slippage", SlippageRequest{Pool: testPool, Quantity: 100, Direction: market.Buy})
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[market.SlippageResult](t, rec)
	assert.InDelta(t, 11.1111, res.NewPrice, 1e-4)
	assert.Equal(t, 10.0, res.SpotPrice)

	delta := int64(-100)
	rec = do(t, srv, http.MethodPost, "/v1/slippage", SlippageRequest{Pool: testPool, Delta: &delta})
	require.Equal(t, http.StatusOK, rec.Code)
	res = decode[market.SlippageResult](t, rec)
	assert.Equal(t, market.Sell, res.Direction)
	assert.InDelta(t, 9.0909, res.NewPrice, 1e-4)

	rec = do(t, srv, http.MethodPost, "/v1/slippage", SlippageRequest{Quantity: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/v1/slippage", `{"pool":{"quantity":10,"cash":10},"quantity":1,"direction":"hold"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/v1/slippage", `{"quantity":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMaxQuantity(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})

	rec := do(t, srv, http.MethodPost, "/v1/max-quantity", MaxQuantityRequest{Pool: testPool, Cash: 500})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(47), decode[MaxQuantityResponse](t, rec).Quantity)

	rec = do(t, srv, http.MethodPost, "/v1/max-quantity", MaxQuantityRequest{Pool: testPool, Cash: -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkets(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})

	rec := do(t, srv, http.MethodGet, "/v1/games/g1/locations/queens/markets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[MarketsResponse](t, rec)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 10.0, resp.Items[0].Price)

	rec = do(t, srv, http.MethodGet, "/v1/games/g1/locations/mars/markets", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	down := newTestServer(t, &stubProvider{down: true})
	rec = do(t, down, http.MethodGet, "/v1/games/g1/locations/queens/markets", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "indexer unreachable")
}

func TestLimits(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})

	rec := do(t, srv, http.MethodGet, "/v1/games/g1/locations/queens/markets/weed/limits?player=p1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	limits := decode[trade.Limits](t, rec)
	assert.Equal(t, uint64(47), limits.MaxBuy)
	assert.Equal(t, uint64(5), limits.MaxSell)
	assert.True(t, limits.CanBuy)
	assert.True(t, limits.CanSell)

	rec = do(t, srv, http.MethodGet, "/v1/games/g1/locations/queens/markets/weed/limits", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/v1/games/g1/locations/queens/markets/weed/limits?player=ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/v1/games/g1/locations/queens/markets/meth/limits?player=p1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuote(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})

	rec := do(t, srv, http.MethodGet, "/v1/games/g1/locations/queens/markets/weed/quote?player=p1&quantity=100", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pv := decode[trade.Preview](t, rec)
	assert.True(t, pv.Clamped)
	assert.Equal(t, uint64(47), pv.Request.Quantity)
	assert.Equal(t, trade.ImpactLow, pv.Impact)

	rec = do(t, srv, http.MethodGet, "/v1/games/g1/locations/queens/markets/weed/quote?player=p1&quantity=3&direction=SELL", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pv = decode[trade.Preview](t, rec)
	assert.Equal(t, market.Sell, pv.Request.Direction)
	assert.False(t, pv.Clamped)

	for _, q := range []string{"", "quantity=-1", "quantity=abc", "quantity=1&direction=hold"} {
		rec = do(t, srv, http.MethodGet, "/v1/games/g1/locations/queens/markets/weed/quote?player=p1&"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestCreateOrder(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})
	path := "/v1/games/g1/orders"

	rec := do(t, srv, http.MethodPost, path, OrderRequest{PlayerID: "p1", Location: "queens", Drug: "weed", Direction: market.Buy, Quantity: 10})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[trade.Order](t, rec)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "101.02", order.Total.StringFixed(2))

	tests := []struct {
		name string
		req  OrderRequest
		code int
	}{
		{"over limit", OrderRequest{PlayerID: "p1", Location: "queens", Drug: "weed", Quantity: 48}, http.StatusUnprocessableEntity},
		{"zero", OrderRequest{PlayerID: "p1", Location: "queens", Drug: "weed"}, http.StatusUnprocessableEntity},
		{"oversell", OrderRequest{PlayerID: "p1", Location: "queens", Drug: "weed", Direction: market.Sell, Quantity: 6}, http.StatusUnprocessableEntity},
		{"unknown drug", OrderRequest{PlayerID: "p1", Location: "queens", Drug: "meth", Quantity: 1}, http.StatusNotFound},
		{"unknown player", OrderRequest{PlayerID: "p9", Location: "queens", Drug: "weed", Quantity: 1}, http.StatusNotFound},
		{"no player", OrderRequest{Location: "queens", Drug: "weed", Quantity: 1}, http.StatusBadRequest},
		{"wrong location", OrderRequest{PlayerID: "p1", Location: "bronx", Drug: "weed", Quantity: 1}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, path, tt.req)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestHistoryFlow(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})
	base := "/v1/games/g1/players/p1/history"

	rec := do(t, srv, http.MethodPost, base+"/trades", HistoryTradeRequest{Drug: "Weed", Direction: market.Buy, Quantity: 5})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, srv, http.MethodPost, base+"/trades", HistoryTradeRequest{Drug: "weed", Direction: market.Sell, Quantity: 2})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HistoryResponse](t, rec)
	require.Len(t, resp.Pending, 1)
	assert.Equal(t, uint64(3), resp.Pending[0].Trade.Quantity)

	rec = do(t, srv, http.MethodPost, base+"/encounters", EncounterRequest{Status: models.StatusBeingMugged, Outcome: models.OutcomeEscaped})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodPost, base+"/encounters", EncounterRequest{Status: "dancing", Outcome: models.OutcomeEscaped})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, base+"/turns", EndTurnRequest{Location: "queens"})
	require.Equal(t, http.StatusOK, rec.Code)
	day := decode[history.Day](t, rec)
	assert.Equal(t, "queens", day.Location)
	require.Len(t, day.Items, 2)
	assert.Equal(t, history.KindTrade, day.Items[0].Kind)
	assert.Equal(t, history.KindEncounter, day.Items[1].Kind)

	rec = do(t, srv, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[HistoryResponse](t, rec)
	assert.Len(t, resp.Days, 1)
	assert.Empty(t, resp.Pending)

	rec = do(t, srv, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodGet, base, nil)
	resp = decode[HistoryResponse](t, rec)
	assert.Empty(t, resp.Days)

	// catalog misses are 404 here too, like the market routes
	rec = do(t, srv, http.MethodPost, base+"/trades", HistoryTradeRequest{Drug: "meth", Quantity: 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, srv, http.MethodPost, base+"/turns", EndTurnRequest{Location: "mars"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, srv, http.MethodGet, "/v1/games/g1/locations/queens/markets/meth/limits?player=p1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAIAsk_NotConfigured(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})

	rec := do(t, srv, http.MethodPost, "/v1/ai/ask", AIAskRequest{Question: "who sold the most weed?"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ai is not configured")
}

func TestAIReport_NotConfigured(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})

	rec := do(t, srv, http.MethodPost, "/v1/ai/reports", AIReportRequest{Report: "netting", GameID: "g1", PlayerID: "p1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ai is not configured")
}

func TestFlags_NotConfigured(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})

	rec := do(t, srv, http.MethodGet, "/v1/flags", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(market.ErrInvalidArgument))
	assert.Equal(t, http.StatusNotFound, statusFor(storage.ErrNotFound))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(trade.ErrExceedsLimit))
	assert.Equal(t, http.StatusBadGateway, statusFor(errors.New("boom")))
}

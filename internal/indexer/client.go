package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aman-zulfiqar/hustler-market/internal/constants"
	"github.com/aman-zulfiqar/hustler-market/internal/market"
	"github.com/aman-zulfiqar/hustler-market/internal/models"
	"github.com/aman-zulfiqar/hustler-market/internal/storage"
	"github.com/sirupsen/logrus"
)

// Client is a GraphQL client for the chain state indexer with retry and timeout support.
// It implements storage.StateProvider.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	maxRetries   int
	retryBackoff time.Duration
	cashScale    float64
	logger       *logrus.Logger
	now          func() time.Time
}

// ClientConfig holds configuration for the indexer client
type ClientConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	// CashScale divides raw on-chain cash amounts (pool and player) into display units
	CashScale float64
	Logger    *logrus.Logger
}

var _ storage.StateProvider = (*Client)(nil)

// permanentError marks failures that retrying cannot fix
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// NewClient creates a new indexer client
func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.CashScale <= 0 {
		cfg.CashScale = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		cashScale:    cfg.CashScale,
		logger:       cfg.Logger,
		now:          time.Now,
	}
}

// Query runs a GraphQL query and decodes its data field into result
func (c *Client) Query(ctx context.Context, query string, variables map[string]any, result any) error {
	data, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"backoff": backoff,
			}).Debug("retrying indexer query")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2 // exponential backoff
		}

		body, err := c.doRequest(ctx, data)
		if err != nil {
			var perm *permanentError
			if errors.As(err, &perm) || ctx.Err() != nil {
				return err
			}
			lastErr = err
			continue
		}

		var resp graphQLResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
		if len(resp.Errors) > 0 {
			return resp.Errors
		}
		if result == nil || len(resp.Data) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Data, result); err != nil {
			return fmt.Errorf("failed to decode data: %w", err)
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) doRequest(ctx context.Context, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(data))
	if err != nil {
		return nil, &permanentError{fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Handle rate limiting
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited (429)")
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &permanentError{fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}

// Markets fetches every drug market at a location
func (c *Client) Markets(ctx context.Context, gameID, location string) ([]*models.MarketSnapshot, error) {
	var data marketsData
	vars := map[string]any{
		"gameId":     gameID,
		"locationId": location,
		"first":      constants.MaxIndexerPage,
	}
	if err := c.Query(ctx, marketsQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("fetch markets %s/%s: %w", gameID, location, err)
	}

	fetchedAt := c.now()
	out := make([]*models.MarketSnapshot, 0, len(data.MarketComponents.Edges))
	for _, edge := range data.MarketComponents.Edges {
		n := edge.Node
		pool := market.MarketPool{
			Quantity: float64(n.Quantity),
			Cash:     float64(n.Cash) / c.cashScale,
		}
		if err := pool.Validate(); err != nil {
			c.logger.WithFields(logrus.Fields{
				"game":     gameID,
				"location": location,
				"drug":     n.DrugID,
			}).WithError(err).Warn("skipping unpriceable market")
			continue
		}
		out = append(out, models.NewMarketSnapshot(gameID, location, n.DrugID, pool, fetchedAt))
	}
	return out, nil
}

// Market fetches one drug market
func (c *Client) Market(ctx context.Context, gameID, location, drug string) (*models.MarketSnapshot, error) {
	snaps, err := c.Markets(ctx, gameID, location)
	if err != nil {
		return nil, err
	}
	for _, s := range snaps {
		if s.Drug == drug {
			return s, nil
		}
	}
	return nil, fmt.Errorf("market %s/%s/%s: %w", gameID, location, drug, storage.ErrNotFound)
}

// Player fetches a player's state and inventory
func (c *Client) Player(ctx context.Context, gameID, playerID string) (*models.Player, error) {
	var data playerData
	vars := map[string]any{
		"gameId":   gameID,
		"playerId": playerID,
		"first":    constants.MaxIndexerPage,
	}
	if err := c.Query(ctx, playerQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("fetch player %s/%s: %w", gameID, playerID, err)
	}
	if len(data.PlayerComponents.Edges) == 0 {
		return nil, fmt.Errorf("player %s/%s: %w", gameID, playerID, storage.ErrNotFound)
	}

	n := data.PlayerComponents.Edges[0].Node
	p := &models.Player{
		GameID:    gameID,
		PlayerID:  playerID,
		Name:      n.Name,
		Cash:      float64(n.Cash) / c.cashScale,
		Health:    int(n.Health),
		Turn:      int(n.Turn),
		Status:    parseStatus(n.Status),
		Location:  n.LocationID,
		Drugs:     make(map[string]uint64, len(data.DrugComponents.Edges)),
		Transport: n.BagLimit.Units(),
	}
	if p.Transport == 0 {
		p.Transport = constants.DefaultTransport
	}
	for _, edge := range data.DrugComponents.Edges {
		if q := edge.Node.Quantity.Units(); q > 0 {
			p.Drugs[edge.Node.DrugID] = q
		}
	}
	return p, nil
}

// parseStatus accepts both PascalCase enum names and the snake_case form
func parseStatus(s string) models.PlayerStatus {
	switch strings.ToLower(strings.ReplaceAll(s, "_", "")) {
	case "beingmugged":
		return models.StatusBeingMugged
	case "beingarrested":
		return models.StatusBeingArrested
	default:
		return models.StatusNormal
	}
}

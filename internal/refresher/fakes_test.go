package refresher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aman-zulfiqar/hustler-market/internal/market"
	"github.com/aman-zulfiqar/hustler-market/internal/models"
	"github.com/aman-zulfiqar/hustler-market/internal/storage"
	"github.com/sirupsen/logrus"
)

var errBackend = errors.New("backend down")

// memStore is an in-memory SnapshotCache that counts reads
type memStore struct {
	mu      sync.Mutex
	markets map[string][]*models.MarketSnapshot
	players map[string]*models.Player
	fail    bool
	reads   int
	puts    int
}

var _ storage.SnapshotCache = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		markets: make(map[string][]*models.MarketSnapshot),
		players: make(map[string]*models.Player),
	}
}

func (m *memStore) seed(gameID, location, drug string, q, cash float64) {
	snap := models.NewMarketSnapshot(gameID, location, drug, market.MarketPool{Quantity: q, Cash: cash}, time.Now())
	key := gameID + "/" + location
	m.markets[key] = append(m.markets[key], snap)
}

func (m *memStore) Market(ctx context.Context, gameID, location, drug string) (*models.MarketSnapshot, error) {
	snaps, err := m.Markets(ctx, gameID, location)
	if err != nil {
		return nil, err
	}
	for _, s := range snaps {
		if s.Drug == drug {
			return s, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memStore) Markets(_ context.Context, gameID, location string) ([]*models.MarketSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.fail {
		return nil, errBackend
	}
	snaps, ok := m.markets[gameID+"/"+location]
	if !ok {
		return nil, fmt.Errorf("markets: %w", storage.ErrNotFound)
	}
	return snaps, nil
}

func (m *memStore) Player(_ context.Context, gameID, playerID string) (*models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.fail {
		return nil, errBackend
	}
	p, ok := m.players[gameID+"/"+playerID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return p, nil
}

func (m *memStore) PutMarket(_ context.Context, snap *models.MarketSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errBackend
	}
	m.puts++
	key := snap.GameID + "/" + snap.Location
	for i, s := range m.markets[key] {
		if s.Drug == snap.Drug {
			m.markets[key][i] = snap
			return nil
		}
	}
	m.markets[key] = append(m.markets[key], snap)
	return nil
}

func (m *memStore) PutPlayer(_ context.Context, p *models.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errBackend
	}
	m.puts++
	m.players[p.GameID+"/"+p.PlayerID] = p
	return nil
}

func (m *memStore) Ping(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

func (m *memStore) counts() (reads, puts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads, m.puts
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

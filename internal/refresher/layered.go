package refresher

import (
	"context"
	"errors"
	"fmt"

	"github.com/aman-zulfiqar/hustler-market/internal/models"
	"github.com/aman-zulfiqar/hustler-market/internal/storage"
	"github.com/sirupsen/logrus"
)

// Layered reads through the snapshot cache to the indexer.
// Cache outages degrade to direct indexer reads.
type Layered struct {
	cache  storage.SnapshotCache
	source storage.StateProvider
	logger *logrus.Logger
}

var _ storage.StateProvider = (*Layered)(nil)

func NewLayered(cache storage.SnapshotCache, source storage.StateProvider, logger *logrus.Logger) *Layered {
	if logger == nil {
		logger = logrus.New()
	}
	return &Layered{cache: cache, source: source, logger: logger}
}

func (l *Layered) Market(ctx context.Context, gameID, location, drug string) (*models.MarketSnapshot, error) {
	snap, err := l.cache.Market(ctx, gameID, location, drug)
	if err == nil {
		return snap, nil
	}
	l.miss(err, "market")

	// fill the whole location; one indexer query returns every drug anyway
	snaps, err := l.fetchMarkets(ctx, gameID, location)
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

func (l *Layered) Markets(ctx context.Context, gameID, location string) ([]*models.MarketSnapshot, error) {
	snaps, err := l.cache.Markets(ctx, gameID, location)
	if err == nil {
		return snaps, nil
	}
	l.miss(err, "markets")
	return l.fetchMarkets(ctx, gameID, location)
}

func (l *Layered) Player(ctx context.Context, gameID, playerID string) (*models.Player, error) {
	p, err := l.cache.Player(ctx, gameID, playerID)
	if err == nil {
		return p, nil
	}
	l.miss(err, "player")

	p, err = l.source.Player(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}
	if err := l.cache.PutPlayer(ctx, p); err != nil {
		l.logger.WithError(err).Warn("failed to cache player")
	}
	return p, nil
}

func (l *Layered) fetchMarkets(ctx context.Context, gameID, location string) ([]*models.MarketSnapshot, error) {
	snaps, err := l.source.Markets(ctx, gameID, location)
	if err != nil {
		return nil, err
	}
	for _, s := range snaps {
		if err := l.cache.PutMarket(ctx, s); err != nil {
			l.logger.WithError(err).WithField("drug", s.Drug).Warn("failed to cache market")
			break
		}
	}
	return snaps, nil
}

func (l *Layered) miss(err error, what string) {
	if errors.Is(err, storage.ErrNotFound) {
		l.logger.WithField("kind", what).Debug("cache miss")
		return
	}
	l.logger.WithError(err).WithField("kind", what).Warn("cache read failed, falling back to indexer")
}

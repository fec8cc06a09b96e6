package refresher

import (
	"context"
	"testing"

	"github.com/aman-zulfiqar/hustler-market/internal/models"
	"github.com/aman-zulfiqar/hustler-market/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayered_MarketReadThrough(t *testing.T) {
	cache := newMemStore()
	source := newMemStore()
	source.seed("g1", "queens", "weed", 400, 2000)
	source.seed("g1", "queens", "acid", 100, 50000)

	l := NewLayered(cache, source, quietLogger())
	ctx := context.Background()

	snap, err := l.Market(ctx, "g1", "queens", "acid")
	require.NoError(t, err)
	assert.Equal(t, 500.0, snap.Price)

	// the miss filled the whole location
	_, puts := cache.counts()
	assert.Equal(t, 2, puts)

	sourceReads, _ := source.counts()
	_, err = l.Market(ctx, "g1", "queens", "weed")
	require.NoError(t, err)
	after, _ := source.counts()
	assert.Equal(t, sourceReads, after, "second read is served from cache")

	_, err = l.Market(ctx, "g1", "queens", "heroin")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLayered_CacheDown(t *testing.T) {
	cache := newMemStore()
	cache.fail = true
	source := newMemStore()
	source.seed("g1", "queens", "weed", 400, 2000)

	l := NewLayered(cache, source, quietLogger())
	snaps, err := l.Markets(context.Background(), "g1", "queens")
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestLayered_Player(t *testing.T) {
	cache := newMemStore()
	source := newMemStore()
	source.players["g1/p1"] = &models.Player{GameID: "g1", PlayerID: "p1", Cash: 900}

	l := NewLayered(cache, source, quietLogger())
	p, err := l.Player(context.Background(), "g1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 900.0, p.Cash)

	cached, err := cache.Player(context.Background(), "g1", "p1")
	require.NoError(t, err)
	assert.Equal(t, p, cached)

	_, err = l.Player(context.Background(), "g1", "ghost")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

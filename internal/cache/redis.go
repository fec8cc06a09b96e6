package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/aman-zulfiqar/hustler-market/internal/constants"
	"github.com/aman-zulfiqar/hustler-market/internal/models"
	"github.com/aman-zulfiqar/hustler-market/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisCache keeps the latest market and player snapshots in Redis and
// fans market updates out over pub/sub.
type RedisCache struct {
	client *redis.Client
	logger *logrus.Logger
}

var _ storage.SnapshotCache = (*RedisCache)(nil)

func NewRedisCache(client *redis.Client, logger *logrus.Logger) (*RedisCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{client: client, logger: logger}, nil
}

// NewRedisCacheFromAddr dials addr and verifies the connection
func NewRedisCacheFromAddr(ctx context.Context, addr string, logger *logrus.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 0})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisCache(client, logger)
}

func (r *RedisCache) PutMarket(ctx context.Context, snap *models.MarketSnapshot) error {
	if snap == nil {
		return fmt.Errorf("market snapshot is nil")
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal market: %w", err)
	}

	index := indexKey(snap.GameID, snap.Location)
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, marketKey(snap.GameID, snap.Location, snap.Drug), b, constants.MarketSnapshotTTL)
	pipe.SAdd(ctx, index, snap.Drug)
	pipe.Expire(ctx, index, constants.MarketSnapshotTTL)
	for _, channel := range Channels(snap.GameID, snap.Location) {
		pipe.Publish(ctx, channel, b)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put market: %w", err)
	}
	return nil
}

func (r *RedisCache) Market(ctx context.Context, gameID, location, drug string) (*models.MarketSnapshot, error) {
	val, err := r.client.Get(ctx, marketKey(gameID, location, drug)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("market %s/%s/%s: %w", gameID, location, drug, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get market: %w", err)
	}

	var snap models.MarketSnapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal market: %w", err)
	}
	return &snap, nil
}

func (r *RedisCache) Markets(ctx context.Context, gameID, location string) ([]*models.MarketSnapshot, error) {
	drugs, err := r.client.SMembers(ctx, indexKey(gameID, location)).Result()
	if err != nil {
		return nil, fmt.Errorf("list markets index: %w", err)
	}
	if len(drugs) == 0 {
		return nil, fmt.Errorf("markets %s/%s: %w", gameID, location, storage.ErrNotFound)
	}

	keys := make([]string, 0, len(drugs))
	for _, d := range drugs {
		keys = append(keys, marketKey(gameID, location, d))
	}

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget markets: %w", err)
	}

	out := make([]*models.MarketSnapshot, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue // expired since the index was read
		}
		var snap models.MarketSnapshot
		if err := json.Unmarshal([]byte(s), &snap); err != nil {
			r.logger.WithError(err).Warn("dropping corrupt market snapshot")
			continue
		}
		out = append(out, &snap)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("markets %s/%s: %w", gameID, location, storage.ErrNotFound)
	}

	slices.SortFunc(out, func(a, b *models.MarketSnapshot) int {
		return strings.Compare(a.Drug, b.Drug)
	})
	return out, nil
}

func (r *RedisCache) PutPlayer(ctx context.Context, player *models.Player) error {
	if player == nil {
		return fmt.Errorf("player is nil")
	}
	b, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("marshal player: %w", err)
	}
	if err := r.client.Set(ctx, playerKey(player.GameID, player.PlayerID), b, constants.PlayerSnapshotTTL).Err(); err != nil {
		return fmt.Errorf("put player: %w", err)
	}
	return nil
}

func (r *RedisCache) Player(ctx context.Context, gameID, playerID string) (*models.Player, error) {
	val, err := r.client.Get(ctx, playerKey(gameID, playerID)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("player %s/%s: %w", gameID, playerID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}

	var p models.Player
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil, fmt.Errorf("unmarshal player: %w", err)
	}
	return &p, nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Subscribe delivers market updates published on channel until ctx is done
func (r *RedisCache) Subscribe(ctx context.Context, channel string, handler storage.MarketHandler) error {
	pubsub := r.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	r.logger.WithField("channel", channel).Info("subscribed")
	return r.consume(ctx, pubsub, handler)
}

// PSubscribe is Subscribe for a channel pattern such as "markets:g1:*"
func (r *RedisCache) PSubscribe(ctx context.Context, pattern string, handler storage.MarketHandler) error {
	pubsub := r.client.PSubscribe(ctx, pattern)
	defer pubsub.Close()

	r.logger.WithField("pattern", pattern).Info("subscribed")
	return r.consume(ctx, pubsub, handler)
}

func (r *RedisCache) consume(ctx context.Context, pubsub *redis.PubSub, handler storage.MarketHandler) error {
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var snap models.MarketSnapshot
			if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
				r.logger.WithError(err).WithField("channel", msg.Channel).Warn("error unmarshaling market update")
				continue
			}
			handler(&snap)
		}
	}
}

// Channels lists every channel a market update for (game, location) is published on
func Channels(gameID, location string) []string {
	return []string{
		constants.PubSubChannelMarkets,
		LocationChannel(gameID, location),
	}
}

// LocationChannel is the per-location update channel
func LocationChannel(gameID, location string) string {
	return constants.PubSubChannelLocationPrefix + gameID + ":" + location
}

func marketKey(gameID, location, drug string) string {
	return constants.RedisKeyMarketPrefix + gameID + ":" + location + ":" + drug
}

func indexKey(gameID, location string) string {
	return constants.RedisKeyMarketIndex + gameID + ":" + location
}

func playerKey(gameID, playerID string) string {
	return constants.RedisKeyPlayerPrefix + gameID + ":" + playerID
}

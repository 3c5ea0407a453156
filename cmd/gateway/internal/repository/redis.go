package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/shubham-shewale/price-tracker/pkg/models"
)

const (
	latestKey       = "feed:latest"
	snapshotChannel = "feed.snapshots"
)

// Compile-time check to ensure RedisStore implements SnapshotStore
var _ SnapshotStore = (*RedisStore)(nil)

type RedisStore struct {
	client *redis.Client
	pubsub *redis.PubSub
	mu     sync.Mutex
}

// NewRedisStore subscribes to the snapshot channel and waits for Redis to
// confirm, so nothing published after it returns is missed.
func NewRedisStore(ctx context.Context, client *redis.Client) (*RedisStore, error) {
	ps := client.Subscribe(ctx, snapshotChannel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", snapshotChannel, err)
	}
	return &RedisStore{
		client: client,
		pubsub: ps,
	}, nil
}

func (r *RedisStore) SaveSnapshot(ctx context.Context, payload string) error {
	return r.client.Set(ctx, latestKey, payload, 0).Err()
}

// Latest returns the last saved snapshot, or "" if none was ever relayed.
func (r *RedisStore) Latest(ctx context.Context) (string, error) {
	val, err := r.client.Get(ctx, latestKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

func (r *RedisStore) Publish(ctx context.Context, payload string) error {
	return r.client.Publish(ctx, snapshotChannel, payload).Err()
}

// RunPubSub is a blocking loop that hands every published snapshot to onMessage
// until ctx is done or the store is closed.
func (r *RedisStore) RunPubSub(ctx context.Context, onMessage func(payload string)) {
	r.mu.Lock()
	ch := r.pubsub.Channel()
	r.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			onMessage(msg.Payload)
		}
	}
}

// GetQuotes fetches the latest per-symbol quote for a list of symbols (MGET).
// Symbols without a quote are skipped.
func (r *RedisStore) GetQuotes(ctx context.Context, symbols []string) ([]string, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	keys := make([]string, len(symbols))
	for i, sym := range symbols {
		keys[i] = models.QuoteKey(sym)
	}

	results, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var quotes []string
	for _, val := range results {
		if payload, ok := val.(string); ok && payload != "" {
			quotes = append(quotes, payload)
		}
	}
	return quotes, nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.pubsub.Close(); err != nil {
		return err
	}
	return r.client.Close()
}

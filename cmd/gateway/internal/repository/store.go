package repository

import (
	"context"
)

// SnapshotStore is the shared state behind every gateway instance: the last
// relayed snapshot, the fan-out channel and the processor's per-symbol quotes.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, payload string) error
	Latest(ctx context.Context) (string, error)
	Publish(ctx context.Context, payload string) error
	RunPubSub(ctx context.Context, onMessage func(payload string))
	GetQuotes(ctx context.Context, symbols []string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

package hub

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/price-tracker/cmd/gateway/internal/repository"
)

const storeTimeout = 5 * time.Second

type ClientInterface interface {
	ID() string
	SendBytes(b []byte)
	Close()
}

// Hub relays snapshot frames. A frame from any client is stored as the latest
// snapshot and published through the store; every published frame is
// broadcast to all local clients, including the sender.
type Hub struct {
	clients map[ClientInterface]bool

	store  repository.SnapshotStore
	logger *zap.Logger
	mu     sync.RWMutex
}

func NewHub(store repository.SnapshotStore, logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[ClientInterface]bool),
		store:   store,
		logger:  logger.Named("hub"),
	}
}

// Run feeds published snapshots to Broadcast until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	h.store.RunPubSub(ctx, h.Broadcast)
}

// Register adds a client and queues the latest snapshot for it, so a newly
// connected consumer has prices before the next tick.
func (h *Hub) Register(client ClientInterface) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	latest, err := h.store.Latest(ctx)
	cancel()
	if err != nil {
		h.logger.Warn("Failed to load latest snapshot", zap.String("client", client.ID()), zap.Error(err))
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	if latest != "" {
		client.SendBytes([]byte(latest))
	}
	h.logger.Debug("Client registered", zap.String("client", client.ID()), zap.Int("clients", len(h.clients)))
}

// Relay stores and publishes a snapshot received from a client.
func (h *Hub) Relay(client ClientInterface, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	msg := string(payload)
	if err := h.store.SaveSnapshot(ctx, msg); err != nil {
		h.logger.Error("Failed to save snapshot", zap.String("client", client.ID()), zap.Error(err))
	}
	if err := h.store.Publish(ctx, msg); err != nil {
		h.logger.Error("Failed to publish snapshot", zap.String("client", client.ID()), zap.Error(err))
	}
}

func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	client.Close()
	h.logger.Debug("Client unregistered", zap.String("client", client.ID()), zap.Int("clients", len(h.clients)))
}

func (h *Hub) Broadcast(payload string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	msgBytes := []byte(payload)
	for client := range h.clients {
		client.SendBytes(msgBytes)
	}
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every client.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}

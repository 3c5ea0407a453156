// Package feed is the consumer-side view of an upstream price source. It
// mirrors the upstream connection status and re-publishes raw messages so any
// number of consumers share one upstream subscription.
package feed

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/shubham-shewale/price-tracker/pkg/models"
	"github.com/shubham-shewale/price-tracker/pkg/stream"
	"github.com/shubham-shewale/price-tracker/pkg/transport"
)

// Upstream is anything that can be started and yields status and raw text:
// the in-process broadcast service or a bare transport session.
type Upstream interface {
	Start(ctx context.Context) error
	Stop() error
	Status() *stream.State[models.ConnectionStatus]
	Messages(buf int) (<-chan string, stream.CancelFunc)
}

// Repository forwards upstream messages only while upstream is CONNECTED.
type Repository struct {
	upstream Upstream
	logger   *zap.Logger
	buf      int

	status *stream.State[models.ConnectionStatus]
	raw    *stream.Broadcaster[string]

	mu      sync.Mutex
	forward stream.CancelFunc

	stopWatch stream.CancelFunc
	watchDone chan struct{}
}

// NewRepository starts watching upstream status immediately. Call Close to
// release it.
func NewRepository(upstream Upstream, logger *zap.Logger) *Repository {
	r := &Repository{
		upstream:  upstream,
		logger:    logger.Named("feed"),
		buf:       transport.DefaultInboundBuffer,
		status:    stream.NewState(models.Disconnected),
		raw:       stream.NewBroadcaster[string](),
		watchDone: make(chan struct{}),
	}

	statuses, cancel := upstream.Status().Subscribe(8)
	r.stopWatch = cancel
	go r.watch(statuses)
	return r
}

func (r *Repository) Status() *stream.State[models.ConnectionStatus] { return r.status }

// Raw subscribes to upstream text, delivered verbatim.
func (r *Repository) Raw(buf int) (<-chan string, stream.CancelFunc) {
	if buf <= 0 {
		buf = r.buf
	}
	return r.raw.Subscribe(buf)
}

func (r *Repository) Start(ctx context.Context) error { return r.upstream.Start(ctx) }

func (r *Repository) Stop() error { return r.upstream.Stop() }

// Close stops watching upstream and closes every Raw subscription. It does
// not stop upstream.
func (r *Repository) Close() {
	r.stopWatch()
	<-r.watchDone
	r.unsubscribe()
	r.raw.Close()
	r.status.Close()
}

func (r *Repository) watch(statuses <-chan models.ConnectionStatus) {
	defer close(r.watchDone)

	for st := range statuses {
		switch st {
		case models.Connected:
			r.subscribe()
		case models.Disconnected:
			r.unsubscribe()
		}
		r.status.Set(st)
	}
}

func (r *Repository) subscribe() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.forward != nil {
		return
	}

	msgs, cancel := r.upstream.Messages(r.buf)
	r.forward = cancel
	go func() {
		for m := range msgs {
			if dropped := r.raw.Publish(m); dropped > 0 {
				r.logger.Debug("Slow consumers dropped messages", zap.Int("dropped", dropped))
			}
		}
	}()
	r.logger.Debug("Upstream subscription opened")
}

func (r *Repository) unsubscribe() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.forward == nil {
		return
	}
	r.forward()
	r.forward = nil
	r.logger.Debug("Upstream subscription closed")
}

// SessionUpstream adapts a transport session to Upstream.
type SessionUpstream struct {
	*transport.Session
}

func (s SessionUpstream) Start(ctx context.Context) error { return s.Connect(ctx) }
func (s SessionUpstream) Stop() error                     { return s.Disconnect() }

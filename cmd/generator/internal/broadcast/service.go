// Package broadcast ties the price generator to the transport session: every
// generated snapshot is sent upstream and, when configured, journaled.
package broadcast

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/shubham-shewale/price-tracker/pkg/models"
	"github.com/shubham-shewale/price-tracker/pkg/stream"
)

type Transport interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Send(ctx context.Context, text string) error
	Status() *stream.State[models.ConnectionStatus]
	Messages(buf int) (<-chan string, stream.CancelFunc)
}

type Generator interface {
	Start()
	Stop()
	Output() <-chan []byte
}

// Recorder receives every snapshot that was sent. Optional.
type Recorder interface {
	Record(ctx context.Context, snapshot []byte) error
}

type Service struct {
	logger    *zap.Logger
	transport Transport
	generator Generator
	recorder  Recorder

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewService(logger *zap.Logger, t Transport, g Generator, r Recorder) *Service {
	return &Service{
		logger:    logger.Named("broadcast"),
		transport: t,
		generator: g,
		recorder:  r,
	}
}

func (s *Service) Status() *stream.State[models.ConnectionStatus] { return s.transport.Status() }

func (s *Service) Messages(buf int) (<-chan string, stream.CancelFunc) {
	return s.transport.Messages(buf)
}

// Running reports whether the service is forwarding over a live session.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil && s.transport.Status().Get() != models.Disconnected
}

// Start connects the transport, starts the generator and begins forwarding.
// On failure everything started so far is torn down again. A run whose
// session dropped on its own is reset and started afresh.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		if s.transport.Status().Get() != models.Disconnected {
			s.logger.Info("Already broadcasting")
			return nil
		}
		s.logger.Info("Session dropped, restarting broadcast")
		s.halt()
	}

	if err := s.transport.Connect(ctx); err != nil {
		s.rollback()
		return fmt.Errorf("broadcast start: %w", err)
	}
	s.generator.Start()

	fctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.forward(fctx, s.done)

	s.logger.Info("Broadcast started")
	return nil
}

// Stop halts forwarding, then the generator, then the transport.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}

	s.halt()
	if err := s.transport.Disconnect(); err != nil {
		s.logger.Warn("Disconnect failed", zap.Error(err))
	}

	s.logger.Info("Broadcast stopped")
	return nil
}

// halt stops forwarding and the generator, leaving the transport alone.
func (s *Service) halt() {
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil

	s.generator.Stop()
	s.drain()
}

func (s *Service) rollback() {
	s.generator.Stop()
	s.drain()
	if err := s.transport.Disconnect(); err != nil {
		s.logger.Warn("Rollback disconnect failed", zap.Error(err))
	}
}

// drain discards a snapshot left over from the previous run.
func (s *Service) drain() {
	select {
	case <-s.generator.Output():
	default:
	}
}

func (s *Service) forward(ctx context.Context, done chan struct{}) {
	defer close(done)

	out := s.generator.Output()
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-out:
			if err := s.transport.Send(ctx, string(payload)); err != nil {
				s.logger.Warn("Snapshot send failed", zap.Error(err))
				continue
			}
			if s.recorder == nil {
				continue
			}
			if err := s.recorder.Record(ctx, payload); err != nil {
				s.logger.Warn("Snapshot journal failed", zap.Error(err))
			}
		}
	}
}

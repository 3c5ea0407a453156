// Package transport manages a single secure WebSocket session: connect,
// disconnect, ordered outbound text and fan-out of inbound text.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shubham-shewale/price-tracker/pkg/config"
	"github.com/shubham-shewale/price-tracker/pkg/models"
	"github.com/shubham-shewale/price-tracker/pkg/stream"
)

var (
	ErrInsecureURL     = errors.New("transport: url scheme must be wss")
	ErrMessageTooLarge = errors.New("transport: message too large")
	ErrNotConnected    = errors.New("transport: not connected")

	errPeerClosed = errors.New("transport: closed by peer")
)

const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultSocketTimeout  = 60 * time.Second
	DefaultRequestTimeout = 60 * time.Second
	DefaultMaxMessageSize = 1_000_000
	DefaultInboundBuffer  = 100

	outboundQueue = 16
)

type Options struct {
	URL            string
	ConnectTimeout time.Duration
	SocketTimeout  time.Duration // read deadline per frame
	RequestTimeout time.Duration // write deadline per frame
	MaxMessageSize int
	InboundBuffer  int
	TLSConfig      *tls.Config
}

// OptionsFromConfig maps the transport config section onto Options.
func OptionsFromConfig(rawURL string, cfg config.TransportConfig) Options {
	return Options{
		URL:            rawURL,
		ConnectTimeout: cfg.ConnectTimeout,
		SocketTimeout:  cfg.SocketTimeout,
		RequestTimeout: cfg.RequestTimeout,
		MaxMessageSize: cfg.MaxMessageSize,
		InboundBuffer:  cfg.InboundBuffer,
	}
}

func (o *Options) withDefaults() {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.SocketTimeout <= 0 {
		o.SocketTimeout = DefaultSocketTimeout
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = DefaultMaxMessageSize
	}
	if o.InboundBuffer <= 0 {
		o.InboundBuffer = DefaultInboundBuffer
	}
}

// Session is a reconnectable client WebSocket. At most one connection is open
// at a time; Connect and Disconnect are serialized.
type Session struct {
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	conn     net.Conn
	id       string
	gen      uint64
	cancel   context.CancelFunc
	group    *errgroup.Group
	outbound chan string
	done     <-chan struct{}

	writeMu sync.Mutex

	status  *stream.State[models.ConnectionStatus]
	inbound *stream.Broadcaster[string]
}

func NewSession(opts Options, logger *zap.Logger) *Session {
	opts.withDefaults()
	return &Session{
		opts:    opts,
		logger:  logger.Named("transport"),
		status:  stream.NewState(models.Disconnected),
		inbound: stream.NewBroadcaster[string](),
	}
}

// Status is the observable connection state.
func (s *Session) Status() *stream.State[models.ConnectionStatus] { return s.status }

// Messages subscribes to inbound text. buf <= 0 uses the configured inbound
// buffer.
func (s *Session) Messages(buf int) (<-chan string, stream.CancelFunc) {
	if buf <= 0 {
		buf = s.opts.InboundBuffer
	}
	return s.inbound.Subscribe(buf)
}

// ID returns the id of the open session, or "" when disconnected.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Connect opens the session. It is a no-op when already connected.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.logger.Info("Already connected", zap.String("session", s.id))
		return nil
	}

	u, err := url.Parse(s.opts.URL)
	if err != nil || u.Scheme != "wss" {
		return fmt.Errorf("%w: %q", ErrInsecureURL, s.opts.URL)
	}

	s.status.Set(models.Connecting)

	dialCtx, cancelDial := context.WithTimeout(ctx, s.opts.ConnectTimeout)
	defer cancelDial()

	dialer := ws.Dialer{Timeout: s.opts.ConnectTimeout, TLSConfig: s.opts.TLSConfig}
	conn, br, _, err := dialer.Dial(dialCtx, s.opts.URL)
	if err != nil {
		s.status.Set(models.Disconnected)
		s.logger.Error("Connect failed", zap.String("url", s.opts.URL), zap.Error(err))
		return fmt.Errorf("transport: dial %s: %w", s.opts.URL, err)
	}

	// Frames the server sent with the handshake response sit in br.
	var r io.Reader = conn
	if br != nil {
		r = br
	}

	s.gen++
	gen := s.gen
	s.id = uuid.NewString()
	s.conn = conn

	loopCtx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(loopCtx)
	out := make(chan string, outboundQueue)

	s.cancel = cancel
	s.group = g
	s.outbound = out
	s.done = gctx.Done()

	logger := s.logger.With(zap.String("session", s.id))

	g.Go(func() error {
		<-gctx.Done()
		conn.Close()
		return nil
	})
	g.Go(func() error { return s.writeLoop(gctx, conn, out) })
	g.Go(func() error { return s.readLoop(conn, r, logger) })

	go func() {
		err := g.Wait()
		s.teardown(gen, err, logger)
	}()

	s.status.Set(models.Connected)
	logger.Info("Connected", zap.String("url", s.opts.URL))
	return nil
}

// teardown clears a session that ended on its own. Sessions already closed by
// Disconnect or replaced by a newer Connect are left alone.
func (s *Session) teardown(gen uint64, err error, logger *zap.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || s.conn == nil {
		return
	}
	s.cancel()
	s.clear()
	s.status.Set(models.Disconnected)

	if errors.Is(err, errPeerClosed) {
		logger.Info("Session closed by peer")
	} else {
		logger.Warn("Session ended", zap.Error(err))
	}
}

func (s *Session) clear() {
	s.conn = nil
	s.id = ""
	s.cancel = nil
	s.group = nil
	s.outbound = nil
	s.done = nil
}

// Disconnect closes the session with a normal-closure frame. The session is
// DISCONNECTED afterwards whatever the outcome of the close.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer s.status.Set(models.Disconnected)

	if s.conn == nil {
		s.logger.Debug("Disconnect with no open session")
		return nil
	}

	logger := s.logger.With(zap.String("session", s.id))
	conn, g := s.conn, s.group

	body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "")
	if err := s.write(conn, ws.OpClose, body); err != nil {
		logger.Warn("Close frame failed", zap.Error(err))
	}

	s.cancel()
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		logger.Warn("Socket close failed", zap.Error(err))
	}
	s.clear()

	// Loops never take s.mu, so waiting here cannot deadlock.
	g.Wait()
	logger.Info("Disconnected")
	return nil
}

// Send queues text for the outbound loop. Frames are written in Send order.
func (s *Session) Send(ctx context.Context, text string) error {
	if len(text) > s.opts.MaxMessageSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrMessageTooLarge, len(text), s.opts.MaxMessageSize)
	}

	s.mu.Lock()
	out, done := s.outbound, s.done
	s.mu.Unlock()

	if out == nil {
		s.logger.Warn("Send with no open session", zap.Int("bytes", len(text)))
		return ErrNotConnected
	}

	select {
	case out <- text:
		return nil
	case <-done:
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) write(conn net.Conn, op ws.OpCode, payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(s.opts.RequestTimeout))
	return wsutil.WriteClientMessage(conn, op, payload)
}

func (s *Session) writeLoop(ctx context.Context, conn net.Conn, out <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case text := <-out:
			if err := s.write(conn, ws.OpText, []byte(text)); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}

// readLoop reads frames until the peer closes or the connection fails.
// Fragmented messages are reassembled; text over MaxMessageSize is discarded.
func (s *Session) readLoop(conn net.Conn, r io.Reader, logger *zap.Logger) error {
	var (
		msg       []byte
		op        ws.OpCode
		oversized bool
	)

	for {
		conn.SetReadDeadline(time.Now().Add(s.opts.SocketTimeout))

		header, err := ws.ReadHeader(r)
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}

		if header.OpCode.IsControl() {
			payload := make([]byte, header.Length)
			if _, err := io.ReadFull(r, payload); err != nil {
				return fmt.Errorf("read control: %w", err)
			}
			if header.Masked {
				ws.Cipher(payload, header.Mask, 0)
			}

			switch header.OpCode {
			case ws.OpPing:
				if err := s.write(conn, ws.OpPong, payload); err != nil {
					return fmt.Errorf("pong: %w", err)
				}
			case ws.OpPong:
				logger.Debug("Pong received")
			case ws.OpClose:
				return errPeerClosed
			}
			continue
		}

		if header.OpCode != ws.OpContinuation {
			op = header.OpCode
			msg = msg[:0]
			oversized = false
		}

		if oversized || int64(len(msg))+header.Length > int64(s.opts.MaxMessageSize) {
			if _, err := io.CopyN(io.Discard, r, header.Length); err != nil {
				return fmt.Errorf("discard: %w", err)
			}
			msg = msg[:0]
			oversized = !header.Fin
			if header.Fin {
				logger.Error("Dropped oversized message", zap.Int("limit", s.opts.MaxMessageSize))
			}
			continue
		}

		payload := make([]byte, header.Length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return fmt.Errorf("read payload: %w", err)
		}
		if header.Masked {
			ws.Cipher(payload, header.Mask, 0)
		}
		msg = append(msg, payload...)

		if !header.Fin {
			continue
		}

		if op == ws.OpText {
			if dropped := s.inbound.Publish(string(msg)); dropped > 0 {
				logger.Debug("Slow subscribers dropped messages", zap.Int("dropped", dropped))
			}
		} else {
			logger.Debug("Ignoring binary message", zap.Int("bytes", len(msg)))
		}
		msg = msg[:0]
	}
}

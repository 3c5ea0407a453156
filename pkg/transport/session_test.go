package transport_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shubham-shewale/price-tracker/pkg/models"
	"github.com/shubham-shewale/price-tracker/pkg/testutils"
	"github.com/shubham-shewale/price-tracker/pkg/transport"
)

func newSession(t *testing.T, srv *testutils.RelayServer, tweak func(*transport.Options)) *transport.Session {
	t.Helper()
	opts := transport.Options{
		URL:            srv.URL("raw"),
		ConnectTimeout: 2 * time.Second,
		TLSConfig:      srv.TLSConfig(),
	}
	if tweak != nil {
		tweak(&opts)
	}
	s := transport.NewSession(opts, zap.NewNop())
	t.Cleanup(func() { s.Disconnect() })
	return s
}

func next(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return ""
	}
}

func TestConnect_RejectsInsecureURL(t *testing.T) {
	for _, u := range []string{"ws://example.com/raw", "https://example.com", "::bad"} {
		s := transport.NewSession(transport.Options{URL: u}, zap.NewNop())
		err := s.Connect(context.Background())
		if !errors.Is(err, transport.ErrInsecureURL) {
			t.Errorf("%s: expected ErrInsecureURL, got %v", u, err)
		}
		if got := s.Status().Get(); got != models.Disconnected {
			t.Errorf("%s: expected DISCONNECTED, got %s", u, got)
		}
	}
}

func TestSendAndEcho(t *testing.T) {
	srv := testutils.NewRelayServer(t)
	s := newSession(t, srv, nil)

	msgs, cancel := s.Messages(0)
	defer cancel()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if s.ID() == "" {
		t.Error("Expected a session id once connected")
	}

	for _, text := range []string{"one", "two", "three"} {
		if err := s.Send(context.Background(), text); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	for _, want := range []string{"one", "two", "three"} {
		if got := next(t, msgs); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}
}

func TestConnect_Idempotent(t *testing.T) {
	srv := testutils.NewRelayServer(t)
	s := newSession(t, srv, nil)

	statuses, cancel := s.Status().Subscribe(16)
	defer cancel()

	for i := 0; i < 3; i++ {
		if err := s.Connect(context.Background()); err != nil {
			t.Fatalf("Connect #%d: %v", i, err)
		}
	}

	connecting := 0
	for done := false; !done; {
		select {
		case st := <-statuses:
			if st == models.Connecting {
				connecting++
			}
		default:
			done = true
		}
	}
	if connecting != 1 {
		t.Errorf("Expected exactly one CONNECTING transition, got %d", connecting)
	}
	if srv.Accepted() != 1 {
		t.Errorf("Expected one handshake, got %d", srv.Accepted())
	}
}

func TestSend_Errors(t *testing.T) {
	srv := testutils.NewRelayServer(t)
	s := newSession(t, srv, func(o *transport.Options) { o.MaxMessageSize = 8 })

	if err := s.Send(context.Background(), "hi"); !errors.Is(err, transport.ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
	if err := s.Send(context.Background(), "way too long"); !errors.Is(err, transport.ErrMessageTooLarge) {
		t.Errorf("Expected ErrMessageTooLarge, got %v", err)
	}
}

func TestInbound_OversizedDropped(t *testing.T) {
	srv := testutils.NewRelayServer(t)
	core, logs := observer.New(zap.ErrorLevel)
	s := transport.NewSession(transport.Options{
		URL:            srv.URL("raw"),
		ConnectTimeout: 2 * time.Second,
		MaxMessageSize: 16,
		TLSConfig:      srv.TLSConfig(),
	}, zap.New(core))
	t.Cleanup(func() { s.Disconnect() })

	msgs, cancel := s.Messages(0)
	defer cancel()
	if err := s.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	testutils.Eventually(t, time.Second, func() bool { return srv.Connections() == 1 }, "server registered client")

	srv.Broadcast(strings.Repeat("x", 17))
	srv.Broadcast("ok")

	if got := next(t, msgs); got != "ok" {
		t.Errorf("Expected oversized message skipped, got %q", got)
	}
	if n := logs.FilterMessage("Dropped oversized message").Len(); n != 1 {
		t.Errorf("Expected the drop logged once at error level, got %d", n)
	}
	if s.Status().Get() != models.Connected {
		t.Error("oversized message should not end the session")
	}
}

func TestInbound_Fragmented(t *testing.T) {
	srv := testutils.NewRelayServer(t)
	s := newSession(t, srv, nil)

	msgs, cancel := s.Messages(0)
	defer cancel()
	if err := s.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	testutils.Eventually(t, time.Second, func() bool { return srv.Connections() == 1 }, "server registered client")

	srv.SendRaw(ws.NewFrame(ws.OpText, false, []byte(`[{"id":`)))
	srv.SendRaw(ws.NewFrame(ws.OpContinuation, true, []byte(`"A"}]`)))

	if got := next(t, msgs); got != `[{"id":"A"}]` {
		t.Errorf("Expected reassembled message, got %q", got)
	}
}

func TestPingAnsweredWithPong(t *testing.T) {
	srv := testutils.NewRelayServer(t)
	s := newSession(t, srv, nil)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	testutils.Eventually(t, time.Second, func() bool { return srv.Connections() == 1 }, "server registered client")

	srv.Ping()
	testutils.Eventually(t, 2*time.Second, func() bool { return srv.Pongs() == 1 }, "pong received")
}

func TestPeerDrop_EndsDisconnected(t *testing.T) {
	srv := testutils.NewRelayServer(t)
	s := newSession(t, srv, nil)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	testutils.Eventually(t, time.Second, func() bool { return srv.Connections() == 1 }, "server registered client")

	srv.DropAll()

	testutils.Eventually(t, 2*time.Second, func() bool {
		return s.Status().Get() == models.Disconnected
	}, "status DISCONNECTED after drop")
	if s.ID() != "" {
		t.Error("Expected session cleared after drop")
	}
	if err := s.Send(context.Background(), "late"); !errors.Is(err, transport.ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected after drop, got %v", err)
	}

	// A fresh Connect opens a new session.
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if srv.Accepted() != 2 {
		t.Errorf("Expected second handshake, got %d", srv.Accepted())
	}
}

func TestDisconnect(t *testing.T) {
	srv := testutils.NewRelayServer(t)
	s := newSession(t, srv, nil)

	if err := s.Disconnect(); err != nil {
		t.Errorf("Disconnect with no session: %v", err)
	}

	if err := s.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	testutils.Eventually(t, time.Second, func() bool { return srv.Connections() == 1 }, "server registered client")

	if err := s.Disconnect(); err != nil {
		t.Errorf("Disconnect: %v", err)
	}
	if s.Status().Get() != models.Disconnected {
		t.Errorf("Expected DISCONNECTED, got %s", s.Status().Get())
	}
	testutils.Eventually(t, 2*time.Second, func() bool { return srv.Connections() == 0 }, "server saw close")
}

func TestConnect_HandshakeFailure(t *testing.T) {
	srv := testutils.NewRelayServer(t)
	srv.Reject(true)
	s := newSession(t, srv, nil)

	statuses, cancel := s.Status().Subscribe(8)
	defer cancel()

	if err := s.Connect(context.Background()); err == nil {
		t.Fatal("Expected handshake error")
	}

	var seen []models.ConnectionStatus
	for done := false; !done; {
		select {
		case st := <-statuses:
			seen = append(seen, st)
		default:
			done = true
		}
	}
	want := []models.ConnectionStatus{models.Disconnected, models.Connecting, models.Disconnected}
	if len(seen) != len(want) {
		t.Fatalf("Expected %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, seen)
		}
	}
}

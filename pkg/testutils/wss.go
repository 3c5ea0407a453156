// Package testutils provides a TLS WebSocket relay server for tests that need
// a real wss endpoint.
package testutils

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// RelayServer accepts WebSocket connections over TLS and relays every text
// message it receives to all connected clients, including the sender.
type RelayServer struct {
	srv *httptest.Server

	mu       sync.Mutex
	conns    map[net.Conn]bool
	received []string
	accepted int
	pongs    int
	reject   bool
}

// NewRelayServer starts a relay server that is closed when the test ends.
func NewRelayServer(t *testing.T) *RelayServer {
	t.Helper()
	r := &RelayServer{conns: make(map[net.Conn]bool)}
	r.srv = httptest.NewTLSServer(http.HandlerFunc(r.handle))
	t.Cleanup(r.Close)
	return r
}

func (r *RelayServer) handle(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	reject := r.reject
	r.mu.Unlock()
	if reject {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(req, w)
	if err != nil {
		return
	}

	r.mu.Lock()
	r.conns[conn] = true
	r.accepted++
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.conns, conn)
		r.mu.Unlock()
		conn.Close()
	}()

	for {
		msgs, err := wsutil.ReadClientMessage(conn, nil)
		if err != nil {
			return
		}
		for _, m := range msgs {
			switch m.OpCode {
			case ws.OpText:
				r.mu.Lock()
				r.received = append(r.received, string(m.Payload))
				r.mu.Unlock()
				r.Broadcast(string(m.Payload))
			case ws.OpPing:
				r.mu.Lock()
				wsutil.WriteServerMessage(conn, ws.OpPong, m.Payload)
				r.mu.Unlock()
			case ws.OpPong:
				r.mu.Lock()
				r.pongs++
				r.mu.Unlock()
			case ws.OpClose:
				return
			}
		}
	}
}

// URL returns the wss URL for path.
func (r *RelayServer) URL(path string) string {
	return "wss://" + strings.TrimPrefix(r.srv.URL, "https://") + "/" + strings.TrimLeft(path, "/")
}

// TLSConfig trusts the server's self-signed certificate.
func (r *RelayServer) TLSConfig() *tls.Config {
	pool := x509.NewCertPool()
	pool.AddCert(r.srv.Certificate())
	return &tls.Config{RootCAs: pool}
}

// Broadcast writes text to every connected client.
func (r *RelayServer) Broadcast(text string) {
	r.writeAll(ws.OpText, []byte(text))
}

// Ping sends a ping frame to every connected client.
func (r *RelayServer) Ping() {
	r.writeAll(ws.OpPing, []byte("hb"))
}

// SendRaw writes a pre-built frame to every connected client.
func (r *RelayServer) SendRaw(f ws.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.conns {
		c.SetWriteDeadline(time.Now().Add(time.Second))
		ws.WriteFrame(c, f)
	}
}

func (r *RelayServer) writeAll(op ws.OpCode, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.conns {
		c.SetWriteDeadline(time.Now().Add(time.Second))
		wsutil.WriteServerMessage(c, op, payload)
	}
}

// DropAll closes every client connection without a close frame.
func (r *RelayServer) DropAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.conns {
		c.Close()
	}
}

// Reject makes subsequent handshakes fail with 503.
func (r *RelayServer) Reject(v bool) {
	r.mu.Lock()
	r.reject = v
	r.mu.Unlock()
}

// Received returns the text messages received so far.
func (r *RelayServer) Received() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.received...)
}

func (r *RelayServer) Accepted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accepted
}

func (r *RelayServer) Connections() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Pongs counts pong frames received from clients.
func (r *RelayServer) Pongs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pongs
}

func (r *RelayServer) Close() {
	r.DropAll()
	r.srv.Close()
}

// Eventually polls cond until it holds or the timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s: %s", timeout, msg)
}

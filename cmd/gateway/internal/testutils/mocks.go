package testutils

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// MockClient simulates a connected websocket client
type MockClient struct {
	IDVal    string
	RawBytes []string // Stores raw frames in delivery order
	Closed   bool
	Mu       sync.Mutex
}

func NewMockClient(id string) *MockClient {
	return &MockClient{IDVal: id}
}

func (m *MockClient) ID() string { return m.IDVal }

func (m *MockClient) Close() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
}

func (m *MockClient) SendBytes(b []byte) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RawBytes = append(m.RawBytes, string(b))
}

func (m *MockClient) Frames() []string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return append([]string(nil), m.RawBytes...)
}

func (m *MockClient) IsClosed() bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Closed
}

var ErrStoreDown = errors.New("store down")

// MockSnapshotStore simulates Redis. Publish delivers synchronously to the
// callback registered by RunPubSub.
type MockSnapshotStore struct {
	LatestVal string
	Quotes    map[string]string
	Saved     []string
	Published []string
	Fail      bool

	onMessage func(payload string)
	Mu        sync.Mutex
}

func NewMockStore() *MockSnapshotStore {
	return &MockSnapshotStore{Quotes: make(map[string]string)}
}

func (m *MockSnapshotStore) SaveSnapshot(ctx context.Context, payload string) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Fail {
		return ErrStoreDown
	}
	m.Saved = append(m.Saved, payload)
	m.LatestVal = payload
	return nil
}

func (m *MockSnapshotStore) Latest(ctx context.Context) (string, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Fail {
		return "", ErrStoreDown
	}
	return m.LatestVal, nil
}

func (m *MockSnapshotStore) Publish(ctx context.Context, payload string) error {
	m.Mu.Lock()
	if m.Fail {
		m.Mu.Unlock()
		return ErrStoreDown
	}
	m.Published = append(m.Published, payload)
	cb := m.onMessage
	m.Mu.Unlock()

	if cb != nil {
		cb(payload)
	}
	return nil
}

// RunPubSub registers onMessage and blocks until ctx is done.
func (m *MockSnapshotStore) RunPubSub(ctx context.Context, onMessage func(payload string)) {
	m.Mu.Lock()
	m.onMessage = onMessage
	m.Mu.Unlock()
	<-ctx.Done()
}

// Listening reports whether RunPubSub has registered its callback.
func (m *MockSnapshotStore) Listening() bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.onMessage != nil
}

func (m *MockSnapshotStore) GetQuotes(ctx context.Context, symbols []string) ([]string, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Fail {
		return nil, ErrStoreDown
	}
	var out []string
	for _, s := range symbols {
		if q, ok := m.Quotes[s]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *MockSnapshotStore) Ping(ctx context.Context) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Fail {
		return ErrStoreDown
	}
	return nil
}

func (m *MockSnapshotStore) Close() error { return nil }

func (m *MockSnapshotStore) SetFail(v bool) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Fail = v
}

func AssertTrue(t *testing.T, condition bool, msg string) {
	t.Helper()
	if !condition {
		t.Errorf("Assertion failed: %s", msg)
	}
}

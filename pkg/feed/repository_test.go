package feed_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/price-tracker/pkg/feed"
	"github.com/shubham-shewale/price-tracker/pkg/models"
	"github.com/shubham-shewale/price-tracker/pkg/stream"
	"github.com/shubham-shewale/price-tracker/pkg/testutils"
	"github.com/shubham-shewale/price-tracker/pkg/transport"
)

type fakeUpstream struct {
	status *stream.State[models.ConnectionStatus]
	msgs   *stream.Broadcaster[string]
	starts int
	stops  int
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		status: stream.NewState(models.Disconnected),
		msgs:   stream.NewBroadcaster[string](),
	}
}

func (f *fakeUpstream) Start(ctx context.Context) error { f.starts++; return nil }
func (f *fakeUpstream) Stop() error                     { f.stops++; return nil }
func (f *fakeUpstream) Status() *stream.State[models.ConnectionStatus] {
	return f.status
}
func (f *fakeUpstream) Messages(buf int) (<-chan string, stream.CancelFunc) {
	return f.msgs.Subscribe(buf)
}

func waitStatus(t *testing.T, r *feed.Repository, want models.ConnectionStatus) {
	t.Helper()
	testutils.Eventually(t, time.Second, func() bool { return r.Status().Get() == want }, "repository status "+want.String())
}

func TestRepository_ForwardsOnlyWhileConnected(t *testing.T) {
	up := newFakeUpstream()
	repo := feed.NewRepository(up, zap.NewNop())
	defer repo.Close()

	raw, cancel := repo.Raw(0)
	defer cancel()

	up.msgs.Publish("before")
	if up.msgs.Subscribers() != 0 {
		t.Fatal("no upstream subscription expected while disconnected")
	}

	up.status.Set(models.Connected)
	waitStatus(t, repo, models.Connected)

	up.msgs.Publish("during")
	select {
	case m := <-raw:
		if m != "during" {
			t.Errorf("Expected verbatim forward, got %q", m)
		}
	case <-time.After(time.Second):
		t.Fatal("message not forwarded")
	}

	up.status.Set(models.Disconnected)
	waitStatus(t, repo, models.Disconnected)
	if up.msgs.Subscribers() != 0 {
		t.Error("Expected upstream subscription cancelled on DISCONNECTED")
	}
}

func TestRepository_SingleUpstreamSubscription(t *testing.T) {
	up := newFakeUpstream()
	repo := feed.NewRepository(up, zap.NewNop())
	defer repo.Close()

	a, cancelA := repo.Raw(4)
	defer cancelA()
	b, cancelB := repo.Raw(4)
	defer cancelB()

	up.status.Set(models.Connected)
	waitStatus(t, repo, models.Connected)
	up.status.Set(models.Connecting)
	waitStatus(t, repo, models.Connecting)
	up.status.Set(models.Connected)
	waitStatus(t, repo, models.Connected)

	if n := up.msgs.Subscribers(); n != 1 {
		t.Fatalf("Expected one shared upstream subscription, got %d", n)
	}

	up.msgs.Publish("x")
	for _, ch := range []<-chan string{a, b} {
		select {
		case m := <-ch:
			if m != "x" {
				t.Errorf("got %q", m)
			}
		case <-time.After(time.Second):
			t.Fatal("consumer missed message")
		}
	}
}

func TestRepository_DelegatesLifecycle(t *testing.T) {
	up := newFakeUpstream()
	repo := feed.NewRepository(up, zap.NewNop())
	defer repo.Close()

	repo.Start(context.Background())
	repo.Stop()
	if up.starts != 1 || up.stops != 1 {
		t.Errorf("Expected delegation, got starts=%d stops=%d", up.starts, up.stops)
	}
}

func TestRepository_OverSession(t *testing.T) {
	relay := testutils.NewRelayServer(t)
	session := transport.NewSession(transport.Options{URL: relay.URL("raw"), TLSConfig: relay.TLSConfig()}, zap.NewNop())
	repo := feed.NewRepository(feed.SessionUpstream{Session: session}, zap.NewNop())
	defer repo.Close()

	raw, cancel := repo.Raw(0)
	defer cancel()

	if err := repo.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer repo.Stop()
	waitStatus(t, repo, models.Connected)

	relay.Broadcast(`[{"id":"AAPL","name":"Apple","description":"","price":175.50}]`)
	select {
	case m := <-raw:
		if _, err := models.DecodeSnapshot([]byte(m)); err != nil {
			t.Errorf("forwarded message corrupted: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay message not forwarded")
	}

	relay.DropAll()
	waitStatus(t, repo, models.Disconnected)
}

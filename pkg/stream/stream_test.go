package stream_test

import (
	"sync"
	"testing"

	"github.com/shubham-shewale/price-tracker/pkg/stream"
)

func drain[T any](ch <-chan T) []T {
	var out []T
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, v)
		default:
			return out
		}
	}
}

func TestOffer_DropsOldest(t *testing.T) {
	ch := make(chan int, 1)

	if d := stream.Offer(ch, 1); d != 0 {
		t.Errorf("Expected no drops, got %d", d)
	}
	if d := stream.Offer(ch, 2); d != 1 {
		t.Errorf("Expected 1 drop, got %d", d)
	}

	got := drain(ch)
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("Expected only the latest value [2], got %v", got)
	}
}

func TestOffer_KeepsNewestWindow(t *testing.T) {
	ch := make(chan int, 100)
	for i := 0; i < 150; i++ {
		stream.Offer(ch, i)
	}

	got := drain(ch)
	if len(got) != 100 || got[0] != 50 || got[99] != 149 {
		t.Errorf("Expected values 50..149 in order, got first=%d last=%d len=%d", got[0], got[len(got)-1], len(got))
	}
}

func TestBroadcaster_FanOutAndCancel(t *testing.T) {
	b := stream.NewBroadcaster[string]()
	a, cancelA := b.Subscribe(4)
	c, cancelC := b.Subscribe(4)
	defer cancelC()

	b.Publish("x")
	cancelA()
	cancelA() // idempotent
	b.Publish("y")

	if got := drain(a); len(got) != 1 || got[0] != "x" {
		t.Errorf("cancelled subscriber: got %v", got)
	}
	if got := drain(c); len(got) != 2 || got[1] != "y" {
		t.Errorf("live subscriber: got %v", got)
	}
	if b.Subscribers() != 1 {
		t.Errorf("Expected 1 subscriber, got %d", b.Subscribers())
	}
}

func TestBroadcaster_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := stream.NewBroadcaster[int]()
	slow, cancel := b.Subscribe(2)
	defer cancel()

	dropped := 0
	for i := 0; i < 10; i++ {
		dropped += b.Publish(i)
	}

	if dropped != 8 {
		t.Errorf("Expected 8 drops, got %d", dropped)
	}
	if got := drain(slow); len(got) != 2 || got[0] != 8 || got[1] != 9 {
		t.Errorf("Expected [8 9], got %v", got)
	}
}

func TestBroadcaster_Close(t *testing.T) {
	b := stream.NewBroadcaster[int]()
	ch, _ := b.Subscribe(1)
	b.Close()

	if _, ok := <-ch; ok {
		t.Error("Expected channel closed after Close")
	}

	late, _ := b.Subscribe(1)
	if _, ok := <-late; ok {
		t.Error("Expected subscription to closed broadcaster to be closed")
	}
	b.Publish(1) // must not panic
}

func TestState_SeedsAndConflates(t *testing.T) {
	s := stream.NewState("DISCONNECTED")
	ch, cancel := s.Subscribe(8)
	defer cancel()

	s.Set("CONNECTING")
	s.Set("CONNECTING")
	s.Set("CONNECTED")

	got := drain(ch)
	want := []string{"DISCONNECTED", "CONNECTING", "CONNECTED"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestState_CustomEquality(t *testing.T) {
	s := stream.NewStateFunc([]int{1}, nil)
	ch, cancel := s.Subscribe(4)
	defer cancel()

	s.Set([]int{1})
	s.Update(func(v []int) []int { return append(append([]int{}, v...), 2) })

	if got := drain(ch); len(got) != 3 {
		t.Errorf("nil equality should emit every Set, got %v", got)
	}
	if v := s.Get(); len(v) != 2 {
		t.Errorf("Expected [1 2], got %v", v)
	}
}

func TestState_ConcurrentSetters(t *testing.T) {
	// Run with `go test -race ./...`
	s := stream.NewState(0)
	ch, cancel := s.Subscribe(1)
	defer cancel()

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			s.Set(v)
		}(i)
	}
	wg.Wait()

	got := drain(ch)
	if len(got) != 1 || got[0] != s.Get() {
		t.Errorf("Expected the latest value to survive, got %v (current %d)", got, s.Get())
	}
}

package generator_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shubham-shewale/price-tracker/cmd/generator/internal/generator"
	"github.com/shubham-shewale/price-tracker/cmd/generator/internal/testutils"
	"github.com/shubham-shewale/price-tracker/pkg/catalog"
	"github.com/shubham-shewale/price-tracker/pkg/models"
)

func next(t *testing.T, g *generator.PriceGenerator) []models.Symbol {
	t.Helper()
	select {
	case payload := <-g.Output():
		symbols, err := models.DecodeSnapshot(payload)
		if err != nil {
			t.Fatalf("Generated invalid snapshot: %v", err)
		}
		return symbols
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestNextPrice(t *testing.T) {
	cases := []struct {
		name   string
		price  string
		values []float64
		want   string
	}{
		{"no change", "175.50", []float64{0.2}, "175.50"},
		{"max increase", "100.00", []float64{0.5, 0.0}, "105.00"},
		{"max decrease", "100.00", []float64{0.9, 0.0}, "95.00"},
		{"rounds half up", "1.00", []float64{0.5, 0.5}, "1.03"},
		{"rounds half up on decrease", "1.00", []float64{0.8, 0.5}, "0.98"},
		{"floor", "0.01", []float64{0.99, 0.0}, "0.01"},
	}
	for _, tc := range cases {
		rnd := &testutils.MockRand{Values: tc.values}
		got := generator.NextPrice(decimal.RequireFromString(tc.price), rnd)
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestNextPrice_NeverBelowFloor(t *testing.T) {
	rnd := generator.NewRealRand(42)
	price := decimal.RequireFromString("0.05")
	for i := 0; i < 2000; i++ {
		price = generator.NextPrice(price, rnd)
		if price.LessThan(models.MinPrice) {
			t.Fatalf("price fell below floor: %s", price)
		}
		if price.Exponent() < -models.PriceScale {
			t.Fatalf("price has more than two decimals: %s", price)
		}
	}
}

func TestGenerator_FirstTickImmediate(t *testing.T) {
	clock := testutils.NewMockClock(time.Unix(0, 0))
	rnd := &testutils.MockRand{Values: []float64{0.1}} // never changes
	g := generator.NewPriceGenerator(zap.NewNop(), catalog.Default(), rnd, clock, 0)

	g.Start()
	defer g.Stop()

	first := next(t, g)
	if len(first) != catalog.Default().Len() {
		t.Fatalf("Expected full snapshot, got %d symbols", len(first))
	}
	if first[0].ID != "AAPL" || first[0].Price.StringFixed(2) != "175.50" {
		t.Errorf("unexpected first entry %+v", first[0])
	}

	clock.Advance(generator.DefaultInterval)
	second := next(t, g)
	if len(second) != len(first) {
		t.Errorf("Expected a second full snapshot")
	}
}

func TestGenerator_UpdatesWorkingSet(t *testing.T) {
	clock := testutils.NewMockClock(time.Unix(0, 0))
	rnd := &testutils.MockRand{Values: []float64{0.5, 0.0}} // +5% every tick
	cat, _ := catalog.New([]models.Symbol{{ID: "X", Price: decimal.RequireFromString("100.00")}})
	g := generator.NewPriceGenerator(zap.NewNop(), cat, rnd, clock, time.Second)

	g.Start()
	defer g.Stop()

	if got := next(t, g)[0].Price.StringFixed(2); got != "105.00" {
		t.Errorf("tick 1: got %s", got)
	}
	clock.Advance(time.Second)
	if got := next(t, g)[0].Price.StringFixed(2); got != "110.25" {
		t.Errorf("tick 2: got %s", got)
	}
	if got := g.Snapshot()[0].Price.StringFixed(2); got != "110.25" {
		t.Errorf("working set: got %s", got)
	}
}

func TestGenerator_StartIdempotentAndStop(t *testing.T) {
	clock := testutils.NewMockClock(time.Unix(0, 0))
	core, logs := observer.New(zap.InfoLevel)
	g := generator.NewPriceGenerator(zap.New(core), catalog.Default(), &testutils.MockRand{}, clock, 0)

	g.Start()
	g.Start()
	if !g.Running() {
		t.Fatal("Expected running")
	}
	if n := logs.FilterMessage("Already generating").Len(); n != 1 {
		t.Errorf("Expected one 'Already generating' log, got %d", n)
	}
	next(t, g)

	g.Stop()
	g.Stop()
	if g.Running() {
		t.Error("Expected stopped")
	}

	select {
	case <-g.Output():
		t.Error("No snapshot may be published after Stop returns")
	case <-time.After(50 * time.Millisecond):
	}

	// Restart picks up from the last working set.
	g.Start()
	defer g.Stop()
	next(t, g)
}

func TestGenerator_OutputKeepsLatestOnly(t *testing.T) {
	clock := testutils.NewMockClock(time.Unix(0, 0))
	rnd := &testutils.MockRand{Values: []float64{0.5, 0.0}}
	cat, _ := catalog.New([]models.Symbol{{ID: "X", Price: decimal.RequireFromString("100.00")}})
	g := generator.NewPriceGenerator(zap.NewNop(), cat, rnd, clock, time.Second)

	g.Start()
	defer g.Stop()

	// Nobody reads the first two snapshots.
	clock.Advance(time.Second)
	clock.Advance(time.Second)

	var got []models.Symbol
	for i := 0; i < 20; i++ { // the third tick may still be in flight
		got = next(t, g)
		if got[0].Price.StringFixed(2) == "115.76" {
			break
		}
	}
	if got[0].Price.StringFixed(2) != "115.76" {
		t.Errorf("Expected the newest snapshot 115.76, got %s", got[0].Price)
	}
}

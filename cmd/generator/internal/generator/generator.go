package generator

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shubham-shewale/price-tracker/pkg/catalog"
	"github.com/shubham-shewale/price-tracker/pkg/models"
	"github.com/shubham-shewale/price-tracker/pkg/stream"
)

const (
	DefaultInterval = 2 * time.Second

	probNoChange = 0.34
	probIncrease = 0.33
	maxVariation = 0.05
)

var one = decimal.NewFromInt(1)

// PriceGenerator produces a full snapshot of every symbol once per interval.
// The first snapshot is produced as soon as the generator starts.
type PriceGenerator struct {
	logger   *zap.Logger
	rand     Rand
	clock    Clock
	interval time.Duration

	mu      sync.Mutex
	symbols []models.Symbol
	cancel  context.CancelFunc
	done    chan struct{}

	out chan []byte
}

func NewPriceGenerator(
	logger *zap.Logger,
	cat *catalog.Catalog,
	rnd Rand,
	clock Clock,
	interval time.Duration,
) *PriceGenerator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &PriceGenerator{
		logger:   logger.Named("generator"),
		rand:     rnd,
		clock:    clock,
		interval: interval,
		symbols:  cat.Symbols(),
		out:      make(chan []byte, 1),
	}
}

// Output yields encoded snapshots. Only the most recent unread snapshot is
// kept.
func (g *PriceGenerator) Output() <-chan []byte { return g.out }

// Start launches the tick loop. Calling Start while running is a no-op.
func (g *PriceGenerator) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cancel != nil {
		g.logger.Info("Already generating")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	g.done = make(chan struct{})

	go g.run(ctx, g.done)
	g.logger.Info("Generator Started", zap.Int("symbols", len(g.symbols)), zap.Duration("interval", g.interval))
}

// Stop cancels the tick loop and waits for it to exit.
func (g *PriceGenerator) Stop() {
	g.mu.Lock()
	cancel, done := g.cancel, g.done
	g.cancel, g.done = nil, nil
	g.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	g.logger.Info("Generator Stopped")
}

func (g *PriceGenerator) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancel != nil
}

// Snapshot returns the current working set.
func (g *PriceGenerator) Snapshot() []models.Symbol {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]models.Symbol, len(g.symbols))
	copy(out, g.symbols)
	return out
}

func (g *PriceGenerator) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		next := Tick(g.Snapshot(), g.rand)
		payload, err := models.EncodeSnapshot(next)

		// A cancelled loop publishes nothing, not even a finished tick.
		if ctx.Err() != nil {
			return
		}

		g.mu.Lock()
		g.symbols = next
		g.mu.Unlock()

		if err != nil {
			g.logger.Error("Snapshot encode failed", zap.Error(err))
		} else if dropped := stream.Offer(g.out, payload); dropped > 0 {
			g.logger.Debug("Replaced unread snapshot")
		}

		select {
		case <-ctx.Done():
			return
		case <-g.clock.After(g.interval):
		}
	}
}

// Tick returns a new set with every price moved by one random step.
func Tick(symbols []models.Symbol, rnd Rand) []models.Symbol {
	next := make([]models.Symbol, len(symbols))
	for i, s := range symbols {
		next[i] = s.WithPrice(NextPrice(s.Price, rnd))
	}
	return next
}

// NextPrice applies one step: unchanged with probability 0.34, otherwise up or
// down by at most 5%, rounded half-up to cents and never below MinPrice.
func NextPrice(price decimal.Decimal, rnd Rand) decimal.Decimal {
	r := rnd.Float64()
	if r < probNoChange {
		return price
	}

	step := maxVariation * (1 - rnd.Float64()) // (0, 0.05]
	if r >= probNoChange+probIncrease {
		step = -step
	}

	next := price.Mul(one.Add(decimal.NewFromFloat(step))).Round(models.PriceScale)
	if next.LessThan(models.MinPrice) {
		return models.MinPrice
	}
	return next
}

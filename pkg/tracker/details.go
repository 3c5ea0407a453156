package tracker

import (
	"context"

	"go.uber.org/zap"

	"github.com/shubham-shewale/price-tracker/pkg/models"
	"github.com/shubham-shewale/price-tracker/pkg/reconcile"
	"github.com/shubham-shewale/price-tracker/pkg/stream"
)

// DetailsState is what the symbol detail screen renders. IsLoading holds
// until a snapshot containing the symbol arrives.
type DetailsState struct {
	Symbol    *models.StockSymbol
	IsLoading bool
	Error     string
}

type DetailsController struct {
	symbolID string
	logger   *zap.Logger

	state  *stream.State[DetailsState]
	events chan Event

	cancel  context.CancelFunc
	done    chan struct{}
	release stream.CancelFunc
}

// NewDetailsController follows symbolID on source. An empty id is a
// programming error and returns ErrSymbolRequired.
func NewDetailsController(source Source, symbolID string, logger *zap.Logger) (*DetailsController, error) {
	if symbolID == "" {
		return nil, ErrSymbolRequired
	}

	ctx, cancel := context.WithCancel(context.Background())
	raw, release := source.Raw(0)

	c := &DetailsController{
		symbolID: symbolID,
		logger:   logger.Named("details-controller").With(zap.String("symbol", symbolID)),
		state:    stream.NewStateFunc(DetailsState{IsLoading: true}, nil),
		events:   make(chan Event, eventBuffer),
		cancel:   cancel,
		done:     make(chan struct{}),
		release:  release,
	}

	views := reconcile.Detail(ctx, raw, symbolID, c.logger)
	go c.loop(views)
	return c, nil
}

func (c *DetailsController) SymbolID() string { return c.symbolID }

func (c *DetailsController) State() *stream.State[DetailsState] { return c.state }

func (c *DetailsController) Events() <-chan Event { return c.events }

func (c *DetailsController) Handle(intent Intent) {
	switch intent.(type) {
	case Back:
		if !emit(c.events, NavigateBack{}) {
			c.logger.Warn("Dropped navigation event")
		}
	default:
		c.logger.Warn("Unknown intent", zap.Any("intent", intent))
	}
}

func (c *DetailsController) Close() {
	c.cancel()
	<-c.done
	c.release()
	c.state.Close()
}

func (c *DetailsController) loop(views <-chan reconcile.DetailView) {
	defer close(c.done)

	for v := range views {
		next := DetailsState{Symbol: v.Symbol, IsLoading: v.Symbol == nil}
		if v.Err != nil {
			next.Error = MsgParsingFailed
		}
		c.state.Set(next)
	}
}

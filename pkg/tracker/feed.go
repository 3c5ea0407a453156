package tracker

import (
	"context"

	"go.uber.org/zap"

	"github.com/shubham-shewale/price-tracker/pkg/models"
	"github.com/shubham-shewale/price-tracker/pkg/reconcile"
	"github.com/shubham-shewale/price-tracker/pkg/stream"
)

// FeedState is everything the feed list renders.
type FeedState struct {
	ConnectionStatus models.ConnectionStatus
	IsFeedRunning    bool // should run and connected
	Stocks           []models.StockSymbol
	Error            string
}

// FeedController combines connection status, the run flag, the last error and
// the reconciled stock list into one FeedState stream.
//
// All of its state is owned by a single loop goroutine. Starting and stopping
// the source happens on a second goroutine so a slow handshake never holds up
// state updates.
type FeedController struct {
	source Source
	saved  SavedState
	logger *zap.Logger

	state   *stream.State[FeedState]
	events  chan Event
	intents chan Intent

	desired   chan bool  // latest run request for the runner
	startErrs chan error // runner -> loop

	cancel  context.CancelFunc
	done    chan struct{}
	release []stream.CancelFunc
}

func NewFeedController(source Source, saved SavedState, logger *zap.Logger) *FeedController {
	ctx, cancel := context.WithCancel(context.Background())

	c := &FeedController{
		source:    source,
		saved:     saved,
		logger:    logger.Named("feed-controller"),
		state:     stream.NewStateFunc(FeedState{}, nil),
		events:    make(chan Event, eventBuffer),
		intents:   make(chan Intent, 16),
		desired:   make(chan bool, 1),
		startErrs: make(chan error, 1),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	statuses, cancelStatus := source.Status().Subscribe(8)
	raw, cancelRaw := source.Raw(0)
	c.release = []stream.CancelFunc{cancelStatus, cancelRaw}

	views := reconcile.Feed(ctx, raw, c.logger)

	runnerDone := make(chan struct{})
	go c.runner(ctx, runnerDone)
	go func() {
		c.loop(ctx, statuses, views)
		<-runnerDone
		close(c.done)
	}()
	return c
}

func (c *FeedController) State() *stream.State[FeedState] { return c.state }

func (c *FeedController) Events() <-chan Event { return c.events }

// Handle queues an intent. Intents after Close are ignored.
func (c *FeedController) Handle(intent Intent) {
	select {
	case c.intents <- intent:
	case <-c.done:
	}
}

// Close stops the controller's goroutines. The source is left as it is.
func (c *FeedController) Close() {
	c.cancel()
	<-c.done
	for _, release := range c.release {
		release()
	}
	c.state.Close()
}

type feedLoop struct {
	status     models.ConnectionStatus
	prevStatus models.ConnectionStatus
	shouldRun  bool
	errMsg     string
	stocks     []models.StockSymbol
}

func (c *FeedController) loop(ctx context.Context, statuses <-chan models.ConnectionStatus, views <-chan reconcile.FeedView) {
	s := feedLoop{shouldRun: c.saved.ShouldRun()}
	c.publish(s)
	c.sync(&s)

	for {
		select {
		case <-ctx.Done():
			return

		case st, ok := <-statuses:
			if !ok {
				statuses = nil
				continue
			}
			s.prevStatus, s.status = s.status, st
			c.monitor(&s)

		case v, ok := <-views:
			if !ok {
				views = nil
				continue
			}
			s.stocks = v.Stocks
			if v.Err != nil {
				s.errMsg = MsgParsingFailed
			}

		case err := <-c.startErrs:
			c.logger.Warn("Feed start failed", zap.Error(err))
			if s.shouldRun {
				s.errMsg = MsgConnectionFailed
			}

		case in := <-c.intents:
			c.apply(&s, in)
		}

		c.publish(s)
	}
}

// monitor maps status transitions to user-facing errors.
func (c *FeedController) monitor(s *feedLoop) {
	switch {
	case s.status == models.Connected:
		s.errMsg = ""
	case s.prevStatus == models.Connecting && s.status == models.Disconnected && s.shouldRun:
		s.errMsg = MsgConnectionFailed
	case s.prevStatus == models.Connected && s.status == models.Disconnected && s.shouldRun:
		s.errMsg = MsgConnectionLost
	}
}

func (c *FeedController) apply(s *feedLoop, in Intent) {
	switch in := in.(type) {
	case StartFeed:
		c.setShouldRun(s, true)
	case StopFeed:
		c.setShouldRun(s, false)
	case ToggleFeed:
		c.setShouldRun(s, !s.shouldRun)
	case Retry:
		s.errMsg = ""
		if s.shouldRun {
			stream.Offer(c.desired, true)
		}
	case ClearError:
		s.errMsg = ""
	case SymbolClicked:
		if !emit(c.events, NavigateToSymbolDetails{ID: in.ID}) {
			c.logger.Warn("Dropped navigation event", zap.String("symbol", in.ID))
		}
	default:
		c.logger.Warn("Unknown intent", zap.Any("intent", in))
	}
}

func (c *FeedController) setShouldRun(s *feedLoop, v bool) {
	if s.shouldRun == v {
		return
	}
	s.shouldRun = v
	c.saved.SetShouldRun(v)
	c.sync(s)
}

// sync starts or stops the source to match the run flag. It runs only when
// the flag changes; an unexpected disconnect is reported, not retried.
func (c *FeedController) sync(s *feedLoop) {
	switch {
	case s.shouldRun && s.status != models.Connected:
		s.errMsg = ""
		stream.Offer(c.desired, true)
	case !s.shouldRun && s.status != models.Disconnected:
		stream.Offer(c.desired, false)
	}
}

func (c *FeedController) runner(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case run := <-c.desired:
			if run {
				if err := c.source.Start(ctx); err != nil {
					stream.Offer(c.startErrs, err)
				}
				continue
			}
			if err := c.source.Stop(); err != nil {
				c.logger.Warn("Feed stop failed", zap.Error(err))
			}
		}
	}
}

func (c *FeedController) publish(s feedLoop) {
	c.state.Set(FeedState{
		ConnectionStatus: s.status,
		IsFeedRunning:    s.shouldRun && s.status == models.Connected,
		Stocks:           s.stocks,
		Error:            s.errMsg,
	})
}

package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/shubham-shewale/price-tracker/pkg/models"
	"github.com/shubham-shewale/price-tracker/pkg/stream"
)

// FeedView is the full list as of the last message.
type FeedView struct {
	Stocks []models.StockSymbol
	Err    error // set when the last message failed to parse
}

// DetailView is one symbol as of the last message. Symbol is nil until a
// snapshot containing it arrives.
type DetailView struct {
	Symbol *models.StockSymbol
	Err    error
}

// Feed emits a FeedView per raw message. Only the newest unread view is kept.
// The returned channel closes when ctx ends or raw closes.
func Feed(ctx context.Context, raw <-chan string, logger *zap.Logger) <-chan FeedView {
	out := make(chan FeedView, 1)
	r := NewReducer()

	go func() {
		defer close(out)
		fold(ctx, raw, r, logger, func(err error) {
			stream.Offer(out, FeedView{Stocks: r.Sorted(), Err: err})
		})
	}()
	return out
}

// Detail emits a DetailView for id per raw message.
func Detail(ctx context.Context, raw <-chan string, id string, logger *zap.Logger) <-chan DetailView {
	out := make(chan DetailView, 1)
	r := NewReducer()

	go func() {
		defer close(out)
		fold(ctx, raw, r, logger, func(err error) {
			stream.Offer(out, DetailView{Symbol: r.Lookup(id), Err: err})
		})
	}()
	return out
}

func fold(ctx context.Context, raw <-chan string, r *Reducer, logger *zap.Logger, emit func(error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-raw:
			if !ok {
				return
			}
			snapshot, err := Parse(msg)
			if err != nil {
				logger.Warn("Dropping malformed snapshot", zap.Int("bytes", len(msg)), zap.Error(err))
				emit(err)
				continue
			}
			r.Apply(snapshot)
			emit(nil)
		}
	}
}

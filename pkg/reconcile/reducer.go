// Package reconcile folds a stream of full price snapshots into per-symbol
// state that remembers each symbol's previous price.
package reconcile

import (
	"sort"
	"time"

	"github.com/shubham-shewale/price-tracker/pkg/models"
)

// Parse decodes one raw wire message.
func Parse(raw string) ([]models.Symbol, error) {
	return models.DecodeSnapshot([]byte(raw))
}

// Reducer is the accumulator for one subscriber. It is not safe for
// concurrent use.
type Reducer struct {
	now     func() time.Time
	entries map[string]models.StockSymbol
	order   map[string]int // first-seen position, used to break price ties
}

func NewReducer() *Reducer {
	return &Reducer{
		now:     time.Now,
		entries: make(map[string]models.StockSymbol),
		order:   make(map[string]int),
	}
}

// WithClock replaces the timestamp source.
func (r *Reducer) WithClock(now func() time.Time) *Reducer {
	r.now = now
	return r
}

// Apply folds one snapshot into the accumulator. Symbols absent from the
// snapshot keep their last known state.
func (r *Reducer) Apply(snapshot []models.Symbol) {
	if len(snapshot) == 0 {
		return
	}

	// Previous prices come from the accumulator as it was before this
	// snapshot, even when an id repeats within it.
	before := make(map[string]models.StockSymbol, len(snapshot))
	for _, s := range snapshot {
		if e, ok := r.entries[s.ID]; ok {
			before[s.ID] = e
		}
	}

	ts := r.now().UnixMilli()
	for _, s := range snapshot {
		next := models.StockSymbol{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Price:       s.Price,
			LastUpdate:  ts,
		}

		if prev, ok := before[s.ID]; ok {
			p := prev.Price
			next.PreviousPrice = &p
		} else if _, ok := r.order[s.ID]; !ok {
			r.order[s.ID] = len(r.order)
		}
		r.entries[s.ID] = next
	}
}

func (r *Reducer) Len() int { return len(r.entries) }

// Sorted returns every entry by price descending. Equal prices keep the
// order in which their ids were first seen.
func (r *Reducer) Sorted() []models.StockSymbol {
	out := make([]models.StockSymbol, len(r.entries))
	for id, e := range r.entries {
		out[r.order[id]] = e
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Price.GreaterThan(out[j].Price)
	})
	return out
}

// Lookup returns the entry for id, or nil if it has not been seen yet.
func (r *Reducer) Lookup(id string) *models.StockSymbol {
	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	return &e
}

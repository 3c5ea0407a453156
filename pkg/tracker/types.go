// Package tracker holds the controllers that turn a price feed into the state
// a feed list and a symbol detail screen render.
package tracker

import (
	"context"
	"errors"
	"sync"

	"github.com/shubham-shewale/price-tracker/pkg/models"
	"github.com/shubham-shewale/price-tracker/pkg/stream"
)

var ErrSymbolRequired = errors.New("tracker: symbol id is required")

// User-facing error messages.
const (
	MsgConnectionFailed = "Connection failed. Check your network and retry."
	MsgConnectionLost   = "Connection lost."
	MsgParsingFailed    = "Received an unreadable price update."
)

// Source is the feed the controllers read from. *feed.Repository implements it.
type Source interface {
	Start(ctx context.Context) error
	Stop() error
	Status() *stream.State[models.ConnectionStatus]
	Raw(buf int) (<-chan string, stream.CancelFunc)
}

// SavedState keeps the "feed should run" flag across controller instances.
type SavedState interface {
	ShouldRun() bool
	SetShouldRun(v bool)
}

// MemoryState is a process-local SavedState.
type MemoryState struct {
	mu  sync.Mutex
	run bool
}

func NewMemoryState(run bool) *MemoryState { return &MemoryState{run: run} }

func (m *MemoryState) ShouldRun() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.run
}

func (m *MemoryState) SetShouldRun(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.run = v
}

type Intent interface{ isIntent() }

type (
	StartFeed     struct{}
	StopFeed      struct{}
	ToggleFeed    struct{}
	Retry         struct{}
	ClearError    struct{}
	SymbolClicked struct{ ID string }
	Back          struct{}
)

func (StartFeed) isIntent()     {}
func (StopFeed) isIntent()      {}
func (ToggleFeed) isIntent()    {}
func (Retry) isIntent()         {}
func (ClearError) isIntent()    {}
func (SymbolClicked) isIntent() {}
func (Back) isIntent()          {}

// Event is a one-shot instruction for the caller, typically navigation.
type Event interface{ isEvent() }

type (
	NavigateToSymbolDetails struct{ ID string }
	NavigateBack            struct{}
)

func (NavigateToSymbolDetails) isEvent() {}
func (NavigateBack) isEvent()            {}

const eventBuffer = 8

// emit delivers e if the buffer has room. Events nobody is reading for are
// dropped.
func emit(ch chan Event, e Event) bool {
	select {
	case ch <- e:
		return true
	default:
		return false
	}
}

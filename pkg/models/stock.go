package models

import (
	"github.com/shopspring/decimal"
)

// PriceChangeDirection describes how a price moved against the previous observation.
type PriceChangeDirection int

const (
	DirectionUnknown PriceChangeDirection = iota
	DirectionIncreased
	DirectionDecreased
	DirectionNoChange
)

func (d PriceChangeDirection) String() string {
	switch d {
	case DirectionIncreased:
		return "INCREASED"
	case DirectionDecreased:
		return "DECREASED"
	case DirectionNoChange:
		return "NO_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// ConnectionStatus is the lifecycle state of a transport session.
type ConnectionStatus int

const (
	Disconnected ConnectionStatus = iota
	Connecting
	Connected
)

func (s ConnectionStatus) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	default:
		return "DISCONNECTED"
	}
}

// StockSymbol is the client-side view of a symbol after reconciliation.
// PreviousPrice is nil only when the id had never been observed before.
type StockSymbol struct {
	ID            string
	Name          string
	Description   string
	Price         decimal.Decimal
	PreviousPrice *decimal.Decimal
	LastUpdate    int64 // unix millis
}

// Direction compares Price with PreviousPrice.
func (s StockSymbol) Direction() PriceChangeDirection {
	if s.PreviousPrice == nil {
		return DirectionUnknown
	}
	switch s.Price.Cmp(*s.PreviousPrice) {
	case 1:
		return DirectionIncreased
	case -1:
		return DirectionDecreased
	default:
		return DirectionNoChange
	}
}

// StockUpdate is a single per-symbol tick recorded in the journal
type StockUpdate struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp int64           `json:"timestamp"` // unix micro
	SeqID     int64           `json:"seq_id"`    // monotonic counter per symbol
}

// QuoteKey is the Redis key holding the latest StockUpdate for a symbol.
func QuoteKey(symbol string) string { return "stock:" + symbol }

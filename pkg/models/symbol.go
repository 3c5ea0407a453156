package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceScale is the number of fraction digits prices carry on the wire.
const PriceScale = 2

// MinPrice is the lowest price a symbol can be quoted at.
var MinPrice = decimal.New(1, -PriceScale)

// ErrMalformedSnapshot is returned when a wire message is not a JSON array of symbols.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// Symbol is one entry of a price snapshot as it travels on the wire.
// Values are replaced on every tick, never mutated in place.
type Symbol struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

// wireSymbol pins the price to a bare JSON number instead of decimal's default quoted string.
type wireSymbol struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
}

func (s Symbol) MarshalJSON() ([]byte, error) {
	price := s.Price.StringFixed(PriceScale)
	if s.Price.Exponent() < -PriceScale {
		price = s.Price.String()
	}
	return json.Marshal(wireSymbol{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Price:       json.Number(price),
	})
}

// WithPrice returns a copy of s quoted at price.
func (s Symbol) WithPrice(price decimal.Decimal) Symbol {
	s.Price = price
	return s
}

// EncodeSnapshot renders a full snapshot as a JSON array.
func EncodeSnapshot(symbols []Symbol) ([]byte, error) {
	if symbols == nil {
		symbols = []Symbol{}
	}
	b, err := json.Marshal(symbols)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

// DecodeSnapshot parses a wire message. Unknown fields are ignored.
func DecodeSnapshot(data []byte) ([]Symbol, error) {
	var symbols []Symbol
	if err := json.Unmarshal(data, &symbols); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	for i, s := range symbols {
		if s.ID == "" {
			return nil, fmt.Errorf("%w: entry %d has no id", ErrMalformedSnapshot, i)
		}
	}
	return symbols, nil
}

// Package catalog holds the immutable seed list of tradable symbols the price
// generator starts from.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/shubham-shewale/price-tracker/pkg/models"
)

// ErrInvalidCatalog is returned when seed data breaks the catalog invariants.
var ErrInvalidCatalog = errors.New("invalid catalog")

type seed struct {
	id, name, description, price string
}

// Catalog is an ordered, read-only set of starting symbols.
type Catalog struct {
	symbols []models.Symbol
}

// Default returns the reference catalog.
func Default() *Catalog {
	symbols := make([]models.Symbol, len(defaultSeed))
	for i, s := range defaultSeed {
		symbols[i] = models.Symbol{
			ID:          s.id,
			Name:        s.name,
			Description: s.description,
			Price:       decimal.RequireFromString(s.price),
		}
	}
	return &Catalog{symbols: symbols}
}

// New validates symbols and copies them into a Catalog. Ids must be unique and
// non-empty and every price must be at least models.MinPrice.
func New(symbols []models.Symbol) (*Catalog, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: no symbols", ErrInvalidCatalog)
	}

	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		if s.ID == "" {
			return nil, fmt.Errorf("%w: symbol with empty id", ErrInvalidCatalog)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidCatalog, s.ID)
		}
		if s.Price.LessThan(models.MinPrice) {
			return nil, fmt.Errorf("%w: %s price %s below %s", ErrInvalidCatalog, s.ID, s.Price, models.MinPrice)
		}
		seen[s.ID] = true
	}

	c := &Catalog{symbols: make([]models.Symbol, len(symbols))}
	copy(c.symbols, symbols)
	return c, nil
}

// fileEntry is the on-disk shape of a catalog entry. Price is kept as text so
// no precision is lost to float parsing.
type fileEntry struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
}

type file struct {
	Symbols []fileEntry `yaml:"symbols"`
}

// LoadFile reads a catalog from a YAML (or JSON) document with a top-level
// "symbols" list.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	symbols := make([]models.Symbol, 0, len(f.Symbols))
	for _, e := range f.Symbols {
		price, err := decimal.NewFromString(e.Price)
		if err != nil {
			return nil, fmt.Errorf("%w: %s price %q: %v", ErrInvalidCatalog, e.ID, e.Price, err)
		}
		symbols = append(symbols, models.Symbol{
			ID:          e.ID,
			Name:        e.Name,
			Description: e.Description,
			Price:       price,
		})
	}
	return New(symbols)
}

// Symbols returns a copy of the catalog in seed order.
func (c *Catalog) Symbols() []models.Symbol {
	out := make([]models.Symbol, len(c.symbols))
	copy(out, c.symbols)
	return out
}

func (c *Catalog) Len() int { return len(c.symbols) }

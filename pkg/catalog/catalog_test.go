package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/shubham-shewale/price-tracker/pkg/catalog"
	"github.com/shubham-shewale/price-tracker/pkg/models"
)

func TestDefault_SeedInvariants(t *testing.T) {
	c := catalog.Default()
	if c.Len() != 25 {
		t.Fatalf("Expected 25 seed symbols, got %d", c.Len())
	}

	// Default must satisfy the same rules New enforces.
	if _, err := catalog.New(c.Symbols()); err != nil {
		t.Fatalf("default catalog is invalid: %v", err)
	}

	first := c.Symbols()[0]
	if first.ID != "AAPL" || !first.Price.Equal(decimal.RequireFromString("175.50")) {
		t.Errorf("Expected AAPL at 175.50 first, got %s at %s", first.ID, first.Price)
	}
}

func TestSymbols_ReturnsCopy(t *testing.T) {
	c := catalog.Default()
	s := c.Symbols()
	s[0].Price = decimal.Zero
	s[0].ID = "HACKED"

	if c.Symbols()[0].ID != "AAPL" {
		t.Error("mutating the returned slice changed the catalog")
	}
}

func TestNew_Validation(t *testing.T) {
	p := decimal.RequireFromString("1.00")
	cases := map[string][]models.Symbol{
		"empty":     nil,
		"no id":     {{ID: "", Price: p}},
		"duplicate": {{ID: "A", Price: p}, {ID: "A", Price: p}},
		"too cheap": {{ID: "A", Price: decimal.RequireFromString("0.001")}},
	}
	for name, syms := range cases {
		if _, err := catalog.New(syms); !errors.Is(err, catalog.ErrInvalidCatalog) {
			t.Errorf("%s: expected ErrInvalidCatalog, got %v", name, err)
		}
	}
}

func TestLoadFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := `symbols:
  - id: AAPL
    name: Apple
    description: Apple Inc.
    price: 175.50
  - id: MSFT
    name: Microsoft
    description: Microsoft Corporation
    price: "420.15"
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := catalog.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	syms := c.Symbols()
	if len(syms) != 2 || syms[1].ID != "MSFT" {
		t.Fatalf("unexpected symbols: %+v", syms)
	}
	if syms[0].Price.String() != "175.5" || syms[0].Price.StringFixed(2) != "175.50" {
		t.Errorf("price lost precision: %s", syms[0].Price)
	}
}

func TestLoadFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	doc := `{"symbols":[{"id":"TSLA","name":"Tesla","description":"EVs","price":245.80}]}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := catalog.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if c.Len() != 1 || !c.Symbols()[0].Price.Equal(decimal.RequireFromString("245.8")) {
		t.Errorf("unexpected catalog: %+v", c.Symbols())
	}
}

func TestLoadFile_BadPrice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	os.WriteFile(path, []byte("symbols:\n  - id: X\n    price: lots\n"), 0o600)

	if _, err := catalog.LoadFile(path); !errors.Is(err, catalog.ErrInvalidCatalog) {
		t.Errorf("Expected ErrInvalidCatalog, got %v", err)
	}
}

package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/kreeda-labs/backend-quotes/internal/money"
)

// Entry describes a single product in the price list.
type Entry struct {
	UnitPrice money.Money `json:"price"`
	Category  string      `json:"category"`
}

// Catalog is the immutable mapping from canonical product name to its entry.
// It is loaded once per run and shared by reference; the canonical name is
// the sole pricing identity.
type Catalog struct {
	entries map[string]Entry
	names   []string
}

// Load reads a price-list JSON document of the form
// {"Wireless Mouse": {"price": 800, "category": "Peripherals"}, ...}.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Catalog from raw price-list JSON.
func Parse(data []byte) (*Catalog, error) {
	var raw map[string]Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("catalog: decode price list: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("catalog: price list is empty")
	}
	c := &Catalog{entries: make(map[string]Entry, len(raw))}
	for name, entry := range raw {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return nil, errors.New("catalog: product with empty name")
		}
		if entry.UnitPrice < 0 {
			return nil, fmt.Errorf("catalog: product %q has negative price", trimmed)
		}
		if strings.TrimSpace(entry.Category) == "" {
			return nil, fmt.Errorf("catalog: product %q has no category", trimmed)
		}
		if _, dup := c.entries[trimmed]; dup {
			return nil, fmt.Errorf("catalog: duplicate product %q", trimmed)
		}
		c.entries[trimmed] = entry
		c.names = append(c.names, trimmed)
	}
	sort.Strings(c.names)
	return c, nil
}

// Lookup resolves a canonical product name.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	entry, ok := c.entries[name]
	return entry, ok
}

// Names returns the canonical product names in sorted order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len reports the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Candidates returns the canonical names a raw mention plausibly refers to.
// The check is a pure catalog lookup on lowercased tokens, deliberately
// cruder than the extraction-stage matchers: a product qualifies when the
// mention contains the full product name, or shares a distinctive token
// (four or more characters) with it. Two or more candidates mean the mention
// is ambiguous; zero means the product is unknown.
func (c *Catalog) Candidates(mention string) []string {
	folded := strings.ToLower(strings.TrimSpace(mention))
	if folded == "" {
		return nil
	}
	tokens := distinctiveTokens(folded)
	var out []string
	for _, name := range c.names {
		nameFolded := strings.ToLower(name)
		if strings.Contains(folded, nameFolded) {
			out = append(out, name)
			continue
		}
		for _, tok := range tokens {
			if strings.Contains(nameFolded, tok) {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

func distinctiveTokens(folded string) []string {
	var out []string
	for _, tok := range strings.FieldsFunc(folded, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if len(tok) >= 4 {
			out = append(out, tok)
		}
	}
	return out
}

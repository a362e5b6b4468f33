package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/kreeda-labs/backend-quotes/internal/money"
)

// Tier unlocks a discount rate at a minimum quantity.
type Tier struct {
	MinQuantity int
	Rate        money.Bps
}

// Policy is the immutable discount and tax rule set for a run. Bulk tiers
// and category rates are combined additively per line item and capped at
// MaxCombined before being applied once to the subtotal.
type Policy struct {
	BulkTiers   []Tier
	Categories  map[string]money.Bps
	MaxCombined money.Bps
	TaxRate     money.Bps
}

type rawRules struct {
	BulkDiscount []struct {
		MinQuantity     int         `json:"min_quantity"`
		DiscountPercent json.Number `json:"discount_percent"`
	} `json:"bulk_discount"`
	CategoryDiscount   map[string]json.Number `json:"category_discount"`
	MaxCombinedPercent json.Number            `json:"max_combined_discount_percent"`
	TaxRatePercent     json.Number            `json:"tax_rate_percent"`
}

// Load reads a discount-rules JSON document.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Policy from raw discount-rules JSON. Percentages are
// converted to basis points exactly; rates finer than 0.01% are rejected.
func Parse(data []byte) (*Policy, error) {
	var raw rawRules
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("policy: decode discount rules: %w", err)
	}
	if len(raw.BulkDiscount) == 0 && len(raw.CategoryDiscount) == 0 {
		return nil, errors.New("policy: discount rules are empty")
	}

	p := &Policy{Categories: make(map[string]money.Bps, len(raw.CategoryDiscount))}

	for _, t := range raw.BulkDiscount {
		if t.MinQuantity <= 0 {
			return nil, fmt.Errorf("policy: bulk tier with min_quantity %d", t.MinQuantity)
		}
		rate, err := parseRate("bulk tier", t.DiscountPercent)
		if err != nil {
			return nil, err
		}
		p.BulkTiers = append(p.BulkTiers, Tier{MinQuantity: t.MinQuantity, Rate: rate})
	}
	sort.Slice(p.BulkTiers, func(i, j int) bool {
		return p.BulkTiers[i].MinQuantity < p.BulkTiers[j].MinQuantity
	})
	for i := 1; i < len(p.BulkTiers); i++ {
		if p.BulkTiers[i].MinQuantity == p.BulkTiers[i-1].MinQuantity {
			return nil, fmt.Errorf("policy: overlapping bulk tiers at quantity %d", p.BulkTiers[i].MinQuantity)
		}
	}

	for category, percent := range raw.CategoryDiscount {
		trimmed := strings.TrimSpace(category)
		if trimmed == "" {
			return nil, errors.New("policy: category discount with empty category")
		}
		rate, err := parseRate("category "+trimmed, percent)
		if err != nil {
			return nil, err
		}
		p.Categories[trimmed] = rate
	}

	var err error
	if raw.MaxCombinedPercent == "" {
		// Absent cap means discounts are only bounded at 100%. An explicit
		// zero is honoured: it forbids combined discounts entirely.
		p.MaxCombined = 10000
	} else {
		p.MaxCombined, err = parseRate("max combined discount", raw.MaxCombinedPercent)
		if err != nil {
			return nil, err
		}
	}
	p.TaxRate, err = parseRate("tax rate", raw.TaxRatePercent)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func parseRate(what string, n json.Number) (money.Bps, error) {
	if n == "" {
		return 0, nil
	}
	rate, err := money.ParseBps(n.String())
	if err != nil {
		return 0, fmt.Errorf("policy: %s: %w", what, err)
	}
	if rate < 0 || rate > 10000 {
		return 0, fmt.Errorf("policy: %s rate %s%% outside [0,100]", what, n)
	}
	return rate, nil
}

// BulkRate returns the highest qualifying bulk tier for a quantity. Tiers
// never stack.
func (p *Policy) BulkRate(qty int) money.Bps {
	var rate money.Bps
	for _, tier := range p.BulkTiers {
		if qty >= tier.MinQuantity {
			rate = tier.Rate
		}
	}
	return rate
}

// CategoryRate returns the discount rate for a product category, zero when
// the category carries no discount.
func (p *Policy) CategoryRate(category string) money.Bps {
	return p.Categories[category]
}

// CombinedRate sums the bulk and category rates and applies the cap.
func (p *Policy) CombinedRate(qty int, category string) money.Bps {
	return money.Min(p.BulkRate(qty)+p.CategoryRate(category), p.MaxCombined)
}

package inquiry

import (
	"fmt"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/kreeda-labs/backend-quotes/internal/catalog"
)

var shapeCheck = validator.New(validator.WithRequiredStructEnabled())

// Validate re-checks every extracted item against the catalog and repairs
// the gap invariant: on return, every item with a nil product name or nil
// quantity is backed by at least one gap. It is a pure function of its two
// inputs; the input event is never mutated.
//
// A product name the catalog cannot verify is downgraded to nil and backed
// by an UNKNOWN_PRODUCT gap; upstream names are never trusted blindly.
// Unanchored mentions are classified by catalog lookup alone: one or more
// plausible candidates mean AMBIGUOUS_PRODUCT, none mean UNKNOWN_PRODUCT.
func Validate(event ParsedEvent, cat *catalog.Catalog) (ParsedEvent, error) {
	if err := shapeCheck.Struct(event); err != nil {
		return ParsedEvent{}, &SchemaError{EmailID: event.EmailID, Err: err}
	}

	out := event.Clone()
	gaps := newGapSet(out.GapsIdentified)

	for i := range out.ExtractedItems {
		item := &out.ExtractedItems[i]
		mention := item.MentionedAs

		if item.ProductName != nil {
			if _, ok := cat.Lookup(*item.ProductName); !ok {
				item.ProductName = nil
				item.Confidence.Product = 0
				gaps.add(GapUnknownProduct, mention,
					fmt.Sprintf("Item '%s' is not available in our catalog.", mention))
			}
		}

		if item.ProductName == nil {
			if !gaps.has(GapAmbiguousProduct, mention) && !gaps.has(GapUnknownProduct, mention) {
				if candidates := cat.Candidates(mention); len(candidates) > 0 {
					gaps.add(GapAmbiguousProduct, mention,
						fmt.Sprintf("Request '%s' is ambiguous. Candidates: %s.", mention, quoteJoin(candidates)))
				} else {
					gaps.add(GapUnknownProduct, mention,
						fmt.Sprintf("Item '%s' is not available in our catalog.", mention))
				}
			}
		}

		if item.Quantity == nil {
			// Upstream extractors name the canonical product in their gap
			// details, not the raw mention; both count as the same gap.
			if item.ProductName != nil && gaps.has(GapMissingQuantity, *item.ProductName) {
				continue
			}
			gaps.add(GapMissingQuantity, mention,
				fmt.Sprintf("Product '%s' was identified, but no quantity was found nearby.", mention))
		}
	}

	if len(out.ExtractedItems) == 0 && gaps.empty() {
		gaps.add(GapUnknownProduct, "",
			"No product was matched to any known product.")
	}

	out.GapsIdentified = gaps.list()
	return out, nil
}

// gapSet keeps gaps in first-seen order, deduplicated by (type, mention).
// Upstream gaps carry the mention only inside their details text, so a
// synthesized gap is considered a duplicate when an existing gap of the same
// type already names the mention.
type gapSet struct {
	gaps []Gap
	seen map[string]bool
}

func newGapSet(upstream []Gap) *gapSet {
	s := &gapSet{seen: make(map[string]bool, len(upstream))}
	for _, g := range upstream {
		key := string(g.Type) + "\x00" + g.Details
		if s.seen[key] {
			continue
		}
		s.seen[key] = true
		s.gaps = append(s.gaps, g)
	}
	return s
}

func (s *gapSet) has(typ GapType, mention string) bool {
	if mention == "" {
		return false
	}
	folded := strings.ToLower(mention)
	for _, g := range s.gaps {
		if g.Type == typ && strings.Contains(strings.ToLower(g.Details), folded) {
			return true
		}
	}
	return false
}

func (s *gapSet) add(typ GapType, mention, details string) {
	if s.has(typ, mention) {
		return
	}
	key := string(typ) + "\x00" + details
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	s.gaps = append(s.gaps, Gap{Type: typ, Details: details})
}

func (s *gapSet) empty() bool {
	return len(s.gaps) == 0
}

func (s *gapSet) list() []Gap {
	return s.gaps
}

func quoteJoin(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return strings.Join(quoted, ", ")
}

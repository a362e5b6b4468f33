package inquiry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kreeda-labs/backend-quotes/internal/catalog"
)

const catalogFixture = `{
	"Wireless Mouse": {"price": 800, "category": "Peripherals"},
	"ThinkPad X1 Carbon": {"price": 145000, "category": "Laptops"},
	"ThinkPad E14": {"price": 62000, "category": "Laptops"}
}`

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Parse([]byte(catalogFixture))
	require.NoError(t, err)
	return c
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func baseEvent(items ...ExtractedItem) ParsedEvent {
	return ParsedEvent{
		EmailID:        "e-1",
		Sender:         Sender{Email: "buyer@example.com"},
		Subject:        "Quote request",
		ExtractedItems: items,
	}
}

func TestValidatePassesCleanEvent(t *testing.T) {
	event := baseEvent(ExtractedItem{
		ProductName: strPtr("Wireless Mouse"),
		MentionedAs: "wireless mouse",
		Quantity:    intPtr(15),
		Confidence:  Confidence{Product: 0.95, Quantity: 1},
	})
	out, err := Validate(event, testCatalog(t))
	require.NoError(t, err)
	require.Empty(t, out.GapsIdentified)
	require.Equal(t, "Wireless Mouse", *out.ExtractedItems[0].ProductName)
}

func TestValidateAmbiguousMention(t *testing.T) {
	event := baseEvent(ExtractedItem{
		MentionedAs: "a ThinkPad model",
		Quantity:    intPtr(3),
	})
	out, err := Validate(event, testCatalog(t))
	require.NoError(t, err)
	require.Len(t, out.GapsIdentified, 1)
	gap := out.GapsIdentified[0]
	require.Equal(t, GapAmbiguousProduct, gap.Type)
	require.Contains(t, gap.Details, "a ThinkPad model")
	require.Contains(t, gap.Details, "ThinkPad X1 Carbon")
	require.Contains(t, gap.Details, "ThinkPad E14")
}

func TestValidateUnknownMention(t *testing.T) {
	event := baseEvent(ExtractedItem{
		MentionedAs: "gravity hammer",
		Quantity:    intPtr(1),
	})
	out, err := Validate(event, testCatalog(t))
	require.NoError(t, err)
	require.Len(t, out.GapsIdentified, 1)
	require.Equal(t, GapUnknownProduct, out.GapsIdentified[0].Type)
	require.Contains(t, out.GapsIdentified[0].Details, "gravity hammer")
}

func TestValidateDowngradesUnverifiableProductName(t *testing.T) {
	event := baseEvent(ExtractedItem{
		ProductName: strPtr("Gaming Chair Deluxe"),
		MentionedAs: "gaming chair",
		Quantity:    intPtr(2),
		Confidence:  Confidence{Product: 0.99, Quantity: 1},
	})
	out, err := Validate(event, testCatalog(t))
	require.NoError(t, err)
	require.Nil(t, out.ExtractedItems[0].ProductName)
	require.Zero(t, out.ExtractedItems[0].Confidence.Product)
	require.Len(t, out.GapsIdentified, 1)
	require.Equal(t, GapUnknownProduct, out.GapsIdentified[0].Type)
}

func TestValidateMissingQuantity(t *testing.T) {
	event := baseEvent(ExtractedItem{
		ProductName: strPtr("Wireless Mouse"),
		MentionedAs: "wireless mouse",
	})
	out, err := Validate(event, testCatalog(t))
	require.NoError(t, err)
	require.Len(t, out.GapsIdentified, 1)
	require.Equal(t, GapMissingQuantity, out.GapsIdentified[0].Type)
	require.Contains(t, out.GapsIdentified[0].Details, "wireless mouse")
}

func TestValidateRepairsOmittedGaps(t *testing.T) {
	// An upstream producer claims no gaps while shipping an unpriceable item.
	event := baseEvent(
		ExtractedItem{MentionedAs: "a ThinkPad model"},
	)
	out, err := Validate(event, testCatalog(t))
	require.NoError(t, err)
	require.NotEmpty(t, out.GapsIdentified)
	types := map[GapType]bool{}
	for _, g := range out.GapsIdentified {
		types[g.Type] = true
	}
	require.True(t, types[GapAmbiguousProduct])
	require.True(t, types[GapMissingQuantity])
}

func TestValidateDeduplicatesUpstreamGap(t *testing.T) {
	event := baseEvent(ExtractedItem{
		ProductName: strPtr("Wireless Mouse"),
		MentionedAs: "wireless mouse",
	})
	event.GapsIdentified = []Gap{{
		Type:    GapMissingQuantity,
		Details: "Product 'wireless mouse' was identified, but no quantity was found nearby.",
	}}
	out, err := Validate(event, testCatalog(t))
	require.NoError(t, err)
	require.Len(t, out.GapsIdentified, 1)
}

func TestValidateDeduplicatesGapNamingCanonicalProduct(t *testing.T) {
	// An upstream gap names the canonical product while the item records the
	// raw lowercase mention; the validator must not add a second gap.
	event := baseEvent(ExtractedItem{
		ProductName: strPtr("Wireless Mouse"),
		MentionedAs: "wireless mouse",
	})
	event.GapsIdentified = []Gap{{
		Type:    GapMissingQuantity,
		Details: "Product 'Wireless Mouse' was identified, but no quantity was found nearby.",
	}}
	out, err := Validate(event, testCatalog(t))
	require.NoError(t, err)
	require.Len(t, out.GapsIdentified, 1)
	require.Equal(t, GapMissingQuantity, out.GapsIdentified[0].Type)
	require.Contains(t, out.GapsIdentified[0].Details, "Wireless Mouse")
}

func TestValidateEmptyEventGetsUnknownGap(t *testing.T) {
	out, err := Validate(baseEvent(), testCatalog(t))
	require.NoError(t, err)
	require.Len(t, out.GapsIdentified, 1)
	require.Equal(t, GapUnknownProduct, out.GapsIdentified[0].Type)
}

func TestValidateRejectsMalformedEvent(t *testing.T) {
	cases := map[string]ParsedEvent{
		"missing email id": {
			Sender: Sender{Email: "buyer@example.com"},
		},
		"bad sender email": {
			EmailID: "e-2",
			Sender:  Sender{Email: "not-an-email"},
		},
		"negative quantity": func() ParsedEvent {
			e := baseEvent(ExtractedItem{MentionedAs: "mouse", Quantity: intPtr(-3)})
			return e
		}(),
		"confidence out of range": func() ParsedEvent {
			e := baseEvent(ExtractedItem{MentionedAs: "mouse", Confidence: Confidence{Product: 1.5}})
			return e
		}(),
	}
	for name, event := range cases {
		_, err := Validate(event, testCatalog(t))
		require.Error(t, err, name)
		var schemaErr *SchemaError
		require.ErrorAs(t, err, &schemaErr, name)
	}
}

func TestValidateDoesNotMutateInput(t *testing.T) {
	event := baseEvent(ExtractedItem{
		ProductName: strPtr("Not A Product"),
		MentionedAs: "something",
		Quantity:    intPtr(1),
	})
	_, err := Validate(event, testCatalog(t))
	require.NoError(t, err)
	require.NotNil(t, event.ExtractedItems[0].ProductName)
	require.Empty(t, event.GapsIdentified)
}

func TestValidateIsDeterministic(t *testing.T) {
	event := baseEvent(
		ExtractedItem{MentionedAs: "a ThinkPad model"},
		ExtractedItem{ProductName: strPtr("Wireless Mouse"), MentionedAs: "mice", Quantity: intPtr(4)},
	)
	first, err := Validate(event, testCatalog(t))
	require.NoError(t, err)
	second, err := Validate(event, testCatalog(t))
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestGapDetailsQuoting(t *testing.T) {
	event := baseEvent(ExtractedItem{MentionedAs: "a ThinkPad model", Quantity: intPtr(1)})
	out, err := Validate(event, testCatalog(t))
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(out.GapsIdentified[0].Details, "'a ThinkPad model'"))
}

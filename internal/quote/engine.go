package quote

import (
	"fmt"

	"github.com/kreeda-labs/backend-quotes/internal/catalog"
	"github.com/kreeda-labs/backend-quotes/internal/inquiry"
	"github.com/kreeda-labs/backend-quotes/internal/money"
	"github.com/kreeda-labs/backend-quotes/internal/policy"
)

// Status reports whether a quote could be fully priced.
type Status string

const (
	// StatusSuccess marks a fully itemized quote.
	StatusSuccess Status = "success"
	// StatusPending marks a quote blocked by unresolved gaps.
	StatusPending Status = "pending"
)

// PendingReason is the fixed sentence attached to every pending quote.
const PendingReason = "One or more items could not be identified or are missing quantities."

// LineItem is one fully priced row of a successful quote.
type LineItem struct {
	ProductName          string      `json:"product_name"`
	Quantity             int         `json:"quantity"`
	UnitPrice            money.Money `json:"unit_price"`
	Subtotal             money.Money `json:"subtotal"`
	TotalDiscountApplied money.Money `json:"total_discount_applied"`
	FinalPrice           money.Money `json:"final_price"`
}

// Summary aggregates the line items in their given order so rounding stays
// reproducible bit-for-bit across runs.
type Summary struct {
	GrandSubtotal     money.Money `json:"grand_subtotal"`
	TotalDiscount     money.Money `json:"total_discount"`
	NetTotalBeforeTax money.Money `json:"net_total_before_tax"`
	TaxAmount         money.Money `json:"tax_amount"`
	GrandTotal        money.Money `json:"grand_total"`
}

// Quote is the terminal artifact for one inquiry email. It is produced once
// and never patched; reprocessing either skips or fully supersedes it.
type Quote struct {
	QuoteID       string        `json:"quote_id"`
	Status        Status        `json:"status"`
	PendingReason string        `json:"pending_reason,omitempty"`
	Gaps          []inquiry.Gap `json:"gaps,omitempty"`
	LineItems     []LineItem    `json:"line_items"`
	Summary       *Summary      `json:"summary,omitempty"`
}

// InvariantError reports a product name that passed validation but failed
// catalog lookup during pricing. The engine refuses to emit a partial quote;
// the failure is surfaced to the caller instead.
type InvariantError struct {
	EmailID     string
	ProductName string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("quote: event %s: validated product %q missing from catalog", e.EmailID, e.ProductName)
}

// Generate turns a validated event into either a pending quote carrying the
// blocking gaps or a successful quote with itemized line items. Per item the
// order is fixed: subtotal, bulk tier, category rate, capped combined rate
// applied once with half-up rounding, final price.
func Generate(event inquiry.ParsedEvent, cat *catalog.Catalog, rules *policy.Policy) (Quote, error) {
	if len(event.GapsIdentified) > 0 {
		gaps := make([]inquiry.Gap, len(event.GapsIdentified))
		copy(gaps, event.GapsIdentified)
		return Quote{
			QuoteID:       event.EmailID,
			Status:        StatusPending,
			PendingReason: PendingReason,
			Gaps:          gaps,
			LineItems:     []LineItem{},
		}, nil
	}

	lineItems := make([]LineItem, 0, len(event.ExtractedItems))
	for _, item := range event.ExtractedItems {
		if item.ProductName == nil || item.Quantity == nil {
			// The validator guarantees gap coverage for these; reaching here
			// means the event bypassed validation.
			return Quote{}, &InvariantError{EmailID: event.EmailID, ProductName: item.MentionedAs}
		}
		entry, ok := cat.Lookup(*item.ProductName)
		if !ok {
			return Quote{}, &InvariantError{EmailID: event.EmailID, ProductName: *item.ProductName}
		}
		qty := *item.Quantity
		subtotal := entry.UnitPrice.MulQty(qty)
		rate := rules.CombinedRate(qty, entry.Category)
		discount := subtotal.ApplyBps(rate)
		lineItems = append(lineItems, LineItem{
			ProductName:          *item.ProductName,
			Quantity:             qty,
			UnitPrice:            entry.UnitPrice,
			Subtotal:             subtotal,
			TotalDiscountApplied: discount,
			FinalPrice:           subtotal - discount,
		})
	}

	var summary Summary
	for _, li := range lineItems {
		summary.GrandSubtotal += li.Subtotal
		summary.TotalDiscount += li.TotalDiscountApplied
	}
	summary.NetTotalBeforeTax = summary.GrandSubtotal - summary.TotalDiscount
	summary.TaxAmount = summary.NetTotalBeforeTax.ApplyBps(rules.TaxRate)
	summary.GrandTotal = summary.NetTotalBeforeTax + summary.TaxAmount

	return Quote{
		QuoteID:   event.EmailID,
		Status:    StatusSuccess,
		LineItems: lineItems,
		Summary:   &summary,
	}, nil
}

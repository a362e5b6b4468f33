package inquiry

// GapType classifies why a line item cannot be priced.
type GapType string

const (
	// GapMissingQuantity marks a resolved product with no recoverable quantity.
	GapMissingQuantity GapType = "MISSING_QUANTITY"
	// GapAmbiguousProduct marks a mention matching more than one catalog entry.
	GapAmbiguousProduct GapType = "AMBIGUOUS_PRODUCT"
	// GapUnknownProduct marks a mention matching no catalog entry.
	GapUnknownProduct GapType = "UNKNOWN_PRODUCT"
)

// Gap is a structured reason a line item cannot be priced. Details always
// name the offending mention.
type Gap struct {
	Type    GapType `json:"type" validate:"required,oneof=MISSING_QUANTITY AMBIGUOUS_PRODUCT UNKNOWN_PRODUCT"`
	Details string  `json:"details" validate:"required"`
}

// Confidence carries the extraction strategy's certainty per field.
type Confidence struct {
	Product  float64 `json:"product" validate:"gte=0,lte=1"`
	Quantity float64 `json:"quantity" validate:"gte=0,lte=1"`
}

// ExtractedItem is one product mention recovered from an inquiry email.
// A nil ProductName means the extraction could not anchor the mention to a
// catalog entry; a nil Quantity means no quantity was recoverable.
type ExtractedItem struct {
	ProductName *string    `json:"product_name"`
	MentionedAs string     `json:"mentioned_as" validate:"required"`
	Quantity    *int       `json:"quantity" validate:"omitempty,gte=0"`
	Confidence  Confidence `json:"confidence"`
}

// Sender identifies who sent the inquiry.
type Sender struct {
	Name  *string `json:"name"`
	Email string  `json:"email" validate:"required,email"`
}

// ParsedEvent is the common intermediate record every extraction strategy
// produces. It is written once per email, consumed once, and never mutated
// after leaving the validator.
type ParsedEvent struct {
	EmailID        string          `json:"email_id" validate:"required"`
	Sender         Sender          `json:"sender"`
	Subject        string          `json:"subject"`
	ExtractedItems []ExtractedItem `json:"extracted_items" validate:"dive"`
	GapsIdentified []Gap           `json:"gaps_identified" validate:"dive"`
}

// Clone returns a deep copy so the validator can repair an event without
// touching its input.
func (e ParsedEvent) Clone() ParsedEvent {
	out := e
	if e.Sender.Name != nil {
		name := *e.Sender.Name
		out.Sender.Name = &name
	}
	out.ExtractedItems = make([]ExtractedItem, len(e.ExtractedItems))
	for i, item := range e.ExtractedItems {
		copied := item
		if item.ProductName != nil {
			name := *item.ProductName
			copied.ProductName = &name
		}
		if item.Quantity != nil {
			qty := *item.Quantity
			copied.Quantity = &qty
		}
		out.ExtractedItems[i] = copied
	}
	out.GapsIdentified = make([]Gap, len(e.GapsIdentified))
	copy(out.GapsIdentified, e.GapsIdentified)
	return out
}

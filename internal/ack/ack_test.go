package ack

import (
	"strings"
	"testing"

	"github.com/kreeda-labs/backend-quotes/internal/inquiry"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestGenerateCleanEvent(t *testing.T) {
	event := inquiry.ParsedEvent{
		EmailID: "e-1",
		Sender:  inquiry.Sender{Name: strPtr("Priya"), Email: "priya@example.com"},
		Subject: "Bulk order inquiry",
		ExtractedItems: []inquiry.ExtractedItem{
			{ProductName: strPtr("Wireless Mouse"), MentionedAs: "mice", Quantity: intPtr(15)},
		},
	}
	draft := Generate(event)
	if draft.RecipientEmail != "priya@example.com" {
		t.Fatalf("unexpected recipient: %s", draft.RecipientEmail)
	}
	if draft.Subject != "Re: Bulk order inquiry" {
		t.Fatalf("unexpected subject: %s", draft.Subject)
	}
	if !strings.Contains(draft.Body, "Hi Priya,") {
		t.Fatalf("expected personal greeting, got:\n%s", draft.Body)
	}
	if !strings.Contains(draft.Body, "- 15 x Wireless Mouse") {
		t.Fatalf("expected confirmed item, got:\n%s", draft.Body)
	}
	if !strings.Contains(draft.Body, "will send it over shortly") {
		t.Fatalf("expected no-questions closing, got:\n%s", draft.Body)
	}
}

func TestGenerateAsksAboutGapsInPriorityOrder(t *testing.T) {
	event := inquiry.ParsedEvent{
		EmailID: "e-2",
		Sender:  inquiry.Sender{Email: "ops@example.com"},
		Subject: "Inquiry",
		GapsIdentified: []inquiry.Gap{
			{Type: inquiry.GapMissingQuantity, Details: "Product 'Wireless Mouse' was identified, but no quantity was found nearby."},
			{Type: inquiry.GapAmbiguousProduct, Details: "Request 'a ThinkPad model' is ambiguous. Candidates: 'ThinkPad E14', 'ThinkPad X1 Carbon'."},
		},
	}
	draft := Generate(event)
	if !strings.Contains(draft.Body, "Hello,") {
		t.Fatalf("expected fallback greeting, got:\n%s", draft.Body)
	}
	first := strings.Index(draft.Body, "'a ThinkPad model'")
	second := strings.Index(draft.Body, "'Wireless Mouse'")
	if first < 0 || second < 0 {
		t.Fatalf("expected both mentions, got:\n%s", draft.Body)
	}
	if first > second {
		t.Fatal("expected ambiguous-product question before missing-quantity question")
	}
}

func TestGenerateCapsQuestionCount(t *testing.T) {
	event := inquiry.ParsedEvent{
		EmailID: "e-3",
		Sender:  inquiry.Sender{Email: "ops@example.com"},
		GapsIdentified: []inquiry.Gap{
			{Type: inquiry.GapAmbiguousProduct, Details: "Request 'thing one' is ambiguous. Candidates: 'A', 'B'."},
			{Type: inquiry.GapUnknownProduct, Details: "Item 'thing two' is not available in our catalog."},
			{Type: inquiry.GapMissingQuantity, Details: "Product 'thing three' was identified, but no quantity was found nearby."},
		},
	}
	draft := Generate(event)
	if strings.Contains(draft.Body, "3.") {
		t.Fatalf("expected at most two questions, got:\n%s", draft.Body)
	}
	if !strings.Contains(draft.Body, "'thing one'") || !strings.Contains(draft.Body, "'thing two'") {
		t.Fatalf("expected the two highest-priority gaps, got:\n%s", draft.Body)
	}
}

func TestGenerateNoItems(t *testing.T) {
	event := inquiry.ParsedEvent{
		EmailID: "e-4",
		Sender:  inquiry.Sender{Email: "ops@example.com"},
	}
	draft := Generate(event)
	if !strings.Contains(draft.Body, "provide more details") {
		t.Fatalf("expected details request, got:\n%s", draft.Body)
	}
	if draft.Subject != "Re: Your Inquiry" {
		t.Fatalf("unexpected subject fallback: %s", draft.Subject)
	}
}

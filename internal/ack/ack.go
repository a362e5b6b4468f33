// Package ack drafts acknowledgment replies for inquiry emails: confirm what
// was understood, ask targeted questions for anything that was not.
package ack

import (
	"fmt"
	"strings"

	"github.com/kreeda-labs/backend-quotes/internal/inquiry"
)

// Draft is the outbox artifact for one inquiry.
type Draft struct {
	RecipientEmail string `json:"recipient_email"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
}

const signOff = "Best regards,\nKreeda Labs Team"

// maxQuestions bounds how many clarifications one reply carries; more reads
// like an interrogation.
const maxQuestions = 2

// Generate builds an acknowledgment draft from a parsed event. Questions are
// prioritised: ambiguous products first, then unknown products, then missing
// quantities.
func Generate(event inquiry.ParsedEvent) Draft {
	var b strings.Builder

	if event.Sender.Name != nil && strings.TrimSpace(*event.Sender.Name) != "" {
		fmt.Fprintf(&b, "Hi %s,\n\n", strings.TrimSpace(*event.Sender.Name))
	} else {
		b.WriteString("Hello,\n\n")
	}

	b.WriteString(intro(event.ExtractedItems))

	questions := buildQuestions(event.GapsIdentified)
	if len(questions) > 0 {
		b.WriteString("\n\nTo help us provide an accurate quote, we have a few points to clarify:\n\n")
		for i, q := range questions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q)
		}
		b.WriteString("\nWe will prepare a detailed quote for you as soon as we have this information.")
	} else {
		b.WriteString("\n\nWe are preparing a detailed quote for you and will send it over shortly.")
	}

	b.WriteString("\n\n")
	b.WriteString(signOff)

	subject := event.Subject
	if strings.TrimSpace(subject) == "" {
		subject = "Your Inquiry"
	}
	return Draft{
		RecipientEmail: event.Sender.Email,
		Subject:        "Re: " + subject,
		Body:           strings.TrimSpace(b.String()),
	}
}

func intro(items []inquiry.ExtractedItem) string {
	if len(items) == 0 {
		return "Thank you for your email. Could you please provide more details about the products you are interested in?"
	}
	var confirmed []string
	for _, item := range items {
		if item.ProductName != nil && item.Quantity != nil {
			confirmed = append(confirmed, fmt.Sprintf("- %d x %s", *item.Quantity, *item.ProductName))
		}
	}
	out := "Thank you for your inquiry. We are processing your request."
	if len(confirmed) > 0 {
		out += "\n\nWe have noted your interest in the following items:\n" + strings.Join(confirmed, "\n")
	}
	return out
}

func buildQuestions(gaps []inquiry.Gap) []string {
	var questions []string
	for _, typ := range []inquiry.GapType{
		inquiry.GapAmbiguousProduct,
		inquiry.GapUnknownProduct,
		inquiry.GapMissingQuantity,
	} {
		if len(questions) >= maxQuestions {
			break
		}
		gap, ok := firstOfType(gaps, typ)
		if !ok {
			continue
		}
		mention := quotedMention(gap.Details)
		switch typ {
		case inquiry.GapAmbiguousProduct:
			questions = append(questions, fmt.Sprintf(
				"To ensure we quote the correct item, could you please clarify which product you meant by %s? %s",
				mention, gap.Details))
		case inquiry.GapUnknownProduct:
			questions = append(questions, fmt.Sprintf(
				"Please note that the item %s is not available in our catalog. We would be happy to help you find a suitable alternative.",
				mention))
		case inquiry.GapMissingQuantity:
			questions = append(questions, fmt.Sprintf(
				"What quantity of %s would you like a quote for?", mention))
		}
	}
	return questions
}

func firstOfType(gaps []inquiry.Gap, typ inquiry.GapType) (inquiry.Gap, bool) {
	for _, g := range gaps {
		if g.Type == typ {
			return g, true
		}
	}
	return inquiry.Gap{}, false
}

// quotedMention pulls the first 'quoted' fragment out of a gap's details;
// gap details always name the offending mention that way.
func quotedMention(details string) string {
	start := strings.IndexByte(details, '\'')
	if start < 0 {
		return "the requested item"
	}
	end := strings.IndexByte(details[start+1:], '\'')
	if end < 0 {
		return "the requested item"
	}
	return "'" + details[start+1:start+1+end] + "'"
}

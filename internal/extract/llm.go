package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/kreeda-labs/backend-quotes/internal/catalog"
	"github.com/kreeda-labs/backend-quotes/internal/inquiry"
)

// LLMConfig configures the model-backed strategy. BaseURL may point at any
// OpenAI-compatible endpoint, including a local server.
type LLMConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	MaxRetries     int
	RequestTimeout time.Duration
	// Requests per second against the provider, with a small burst.
	RateLimit float64
}

// LLM extracts items by prompting a chat-completion model for a single JSON
// object and validating the result against the catalog before accepting it.
type LLM struct {
	client  *openai.Client
	catalog *catalog.Catalog
	cfg     LLMConfig
	limiter *rate.Limiter
}

// ErrLLMOutput is returned when the model response fails shape or catalog
// validation; the caller treats it like any other extraction failure.
var ErrLLMOutput = errors.New("extract: llm output failed validation")

// NewLLM builds the model-backed strategy.
func NewLLM(cat *catalog.Catalog, cfg LLMConfig) *LLM {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 3
	}
	return &LLM{
		client:  openai.NewClientWithConfig(clientCfg),
		catalog: cat,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 5),
	}
}

// llmOutput is the JSON object the prompt demands.
type llmOutput struct {
	SenderName     *string                 `json:"sender_name"`
	SenderEmail    string                  `json:"sender_email"`
	Subject        string                  `json:"subject"`
	ExtractedItems []inquiry.ExtractedItem `json:"extracted_items"`
	GapsIdentified []inquiry.Gap           `json:"gaps_identified"`
}

// Extract implements Extractor.
func (l *LLM) Extract(ctx context.Context, rawEmail string) (inquiry.ParsedEvent, error) {
	if strings.TrimSpace(rawEmail) == "" {
		return inquiry.ParsedEvent{}, fmt.Errorf("extract: empty email content")
	}
	raw, err := l.complete(ctx, BuildPrompt(rawEmail, l.catalog))
	if err != nil {
		return inquiry.ParsedEvent{}, err
	}

	var out llmOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return inquiry.ParsedEvent{}, fmt.Errorf("%w: decode: %v", ErrLLMOutput, err)
	}
	if err := l.checkOutput(out); err != nil {
		return inquiry.ParsedEvent{}, err
	}

	event := inquiry.ParsedEvent{
		EmailID:        EmailID(rawEmail),
		Sender:         inquiry.Sender{Name: out.SenderName, Email: out.SenderEmail},
		Subject:        out.Subject,
		ExtractedItems: out.ExtractedItems,
		GapsIdentified: out.GapsIdentified,
	}
	return event, nil
}

func (l *LLM) complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= l.cfg.MaxRetries; attempt++ {
		if err := l.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("extract: rate limiter: %w", err)
		}
		attemptCtx, cancel := context.WithTimeout(ctx, l.cfg.RequestTimeout)
		resp, err := l.client.CreateChatCompletion(attemptCtx, openai.ChatCompletionRequest{
			Model: l.cfg.Model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: "You are an expert sales assistant that extracts structured order inquiries from customer emails.",
				},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Temperature: 0.1,
		})
		cancel()
		if err == nil && len(resp.Choices) > 0 {
			return resp.Choices[0].Message.Content, nil
		}
		if err == nil {
			err = errors.New("empty completion response")
		}
		lastErr = err
		if attempt < l.cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 2 * time.Second):
			}
		}
	}
	return "", fmt.Errorf("extract: llm completion failed after %d attempts: %w", l.cfg.MaxRetries, lastErr)
}

// checkOutput rejects responses with missing required fields or hallucinated
// product names before they reach the validator.
func (l *LLM) checkOutput(out llmOutput) error {
	if strings.TrimSpace(out.SenderEmail) == "" {
		return fmt.Errorf("%w: sender_email missing", ErrLLMOutput)
	}
	for _, item := range out.ExtractedItems {
		if strings.TrimSpace(item.MentionedAs) == "" {
			return fmt.Errorf("%w: item without mentioned_as", ErrLLMOutput)
		}
		if item.ProductName != nil {
			if _, ok := l.catalog.Lookup(*item.ProductName); !ok {
				return fmt.Errorf("%w: product %q not in catalog", ErrLLMOutput, *item.ProductName)
			}
		}
	}
	return nil
}

// BuildPrompt renders the one-shot prompt: catalog as the single source of
// truth, strict JSON schema, explicit gap rules.
func BuildPrompt(emailContent string, cat *catalog.Catalog) string {
	type promptEntry struct {
		Category string `json:"category"`
	}
	entries := make(map[string]promptEntry, cat.Len())
	for _, name := range cat.Names() {
		entry, _ := cat.Lookup(name)
		entries[name] = promptEntry{Category: entry.Category}
	}
	catalogJSON, _ := json.MarshalIndent(entries, "", "  ")

	var b strings.Builder
	b.WriteString(`Analyze the customer inquiry email below and extract all relevant information into a single JSON object.

You MUST use the provided product catalog as your single source of truth. Do not invent products.
- product_name must be null or an exact key from the catalog.
- If a product is mentioned with a typo, match it to the closest catalog item.
- If a mentioned product is not in the catalog, report an UNKNOWN_PRODUCT gap.
- If a mentioned product has no quantity, report a MISSING_QUANTITY gap.
- If a mention could refer to several catalog items, leave product_name null and report an AMBIGUOUS_PRODUCT gap naming the candidates.
- Extract the sender's name from the signature when the From header has none.
- Give a confidence score between 0.0 and 1.0 for each product match and quantity.

OFFICIAL PRODUCT CATALOG:
`)
	b.Write(catalogJSON)
	b.WriteString(`

EMAIL TO ANALYZE:
---
`)
	b.WriteString(emailContent)
	b.WriteString(`
---

Respond ONLY with a JSON object of this shape, no other text:
{
  "sender_name": "string or null",
  "sender_email": "string",
  "subject": "string",
  "extracted_items": [
    {
      "product_name": "string or null (exact catalog key)",
      "mentioned_as": "string (what the customer wrote)",
      "quantity": "integer or null",
      "confidence": {"product": 0.0, "quantity": 0.0}
    }
  ],
  "gaps_identified": [
    {"type": "MISSING_QUANTITY | AMBIGUOUS_PRODUCT | UNKNOWN_PRODUCT", "details": "string naming the mention"}
  ]
}`)
	return b.String()
}

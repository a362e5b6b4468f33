package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/kreeda-labs/backend-quotes/internal/catalog"
)

func llmCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Parse([]byte(catalogFixture))
	require.NoError(t, err)
	return cat
}

// fakeCompletionServer mimics an OpenAI-compatible chat-completions endpoint
// returning a fixed message body.
func fakeCompletionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestLLM(t *testing.T, srv *httptest.Server) *LLM {
	t.Helper()
	return NewLLM(llmCatalog(t), LLMConfig{
		BaseURL:        srv.URL + "/v1",
		APIKey:         "test-key",
		Model:          "test-model",
		MaxRetries:     1,
		RequestTimeout: 5 * time.Second,
		RateLimit:      100,
	})
}

func TestLLMExtract(t *testing.T) {
	payload := `{
		"sender_name": "Priya Sharma",
		"sender_email": "priya@acme.example",
		"subject": "Bulk order",
		"extracted_items": [
			{"product_name": "Wireless Mouse", "mentioned_as": "wireless mice", "quantity": 15,
			 "confidence": {"product": 0.97, "quantity": 1.0}}
		],
		"gaps_identified": []
	}`
	llm := newTestLLM(t, fakeCompletionServer(t, payload))

	event, err := llm.Extract(context.Background(), sampleEmail)
	require.NoError(t, err)
	require.Equal(t, EmailID(sampleEmail), event.EmailID)
	require.Equal(t, "priya@acme.example", event.Sender.Email)
	require.Len(t, event.ExtractedItems, 1)
	require.Equal(t, "Wireless Mouse", *event.ExtractedItems[0].ProductName)
}

func TestLLMExtractRejectsHallucinatedProduct(t *testing.T) {
	payload := `{
		"sender_email": "priya@acme.example",
		"subject": "Bulk order",
		"extracted_items": [
			{"product_name": "Hoverboard Pro", "mentioned_as": "hoverboards", "quantity": 2,
			 "confidence": {"product": 0.99, "quantity": 1.0}}
		],
		"gaps_identified": []
	}`
	llm := newTestLLM(t, fakeCompletionServer(t, payload))

	_, err := llm.Extract(context.Background(), sampleEmail)
	require.ErrorIs(t, err, ErrLLMOutput)
}

func TestLLMExtractRejectsMissingSender(t *testing.T) {
	llm := newTestLLM(t, fakeCompletionServer(t, `{"extracted_items": [], "gaps_identified": []}`))
	_, err := llm.Extract(context.Background(), sampleEmail)
	require.ErrorIs(t, err, ErrLLMOutput)
}

func TestLLMExtractRejectsNonJSONResponse(t *testing.T) {
	llm := newTestLLM(t, fakeCompletionServer(t, "sorry, I cannot help with that"))
	_, err := llm.Extract(context.Background(), sampleEmail)
	require.ErrorIs(t, err, ErrLLMOutput)
}

func TestBuildPromptNamesEveryProduct(t *testing.T) {
	cat := llmCatalog(t)
	prompt := BuildPrompt("need a mouse", cat)
	for _, name := range cat.Names() {
		require.Contains(t, prompt, name)
	}
	require.Contains(t, prompt, "need a mouse")
	require.Contains(t, prompt, "UNKNOWN_PRODUCT")
	require.Contains(t, prompt, "single source of truth")
}

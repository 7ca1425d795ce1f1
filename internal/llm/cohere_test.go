package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCohere(t *testing.T, handler http.Handler) *Cohere {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewCohere(CohereConfig{
		APIKey:        "test-key",
		BaseURL:       server.URL,
		GenerateModel: "command-r",
		EmbedModel:    "embed-english-v3.0",
		Dimension:     4,
	}, nil)
	require.NoError(t, err)
	return c
}

func TestNewCohereValidation(t *testing.T) {
	_, err := NewCohere(CohereConfig{Dimension: 4}, nil)
	require.Error(t, err, "missing API key")

	_, err = NewCohere(CohereConfig{APIKey: "k"}, nil)
	require.Error(t, err, "missing dimension")
}

func TestCohereEmbedInputType(t *testing.T) {
	var inputTypes []string

	c := newTestCohere(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embed", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req cohereEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		inputTypes = append(inputTypes, req.InputType)
		require.Equal(t, []string{"some text"}, req.Texts)

		_ = json.NewEncoder(w).Encode(cohereEmbedResponse{
			Embeddings: [][]float64{{0.1, 0.2, 0.3, 0.4}},
		})
	}))

	ctx := context.Background()
	vec, err := c.Embed(ctx, "some text", ModeDocument)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.4}, vec)

	_, err = c.Embed(ctx, "some text", ModeQuery)
	require.NoError(t, err)

	// Document and query must hit the two encoder sides.
	assert.Equal(t, []string{"search_document", "search_query"}, inputTypes)
}

func TestCohereEmbedNoEmbeddings(t *testing.T) {
	c := newTestCohere(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(cohereEmbedResponse{})
	}))

	vec, err := c.Embed(context.Background(), "text", ModeDocument)
	require.NoError(t, err)
	assert.Nil(t, vec)
}

func TestCohereEmbedServerError(t *testing.T) {
	c := newTestCohere(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"quota exceeded"}`, http.StatusTooManyRequests)
	}))

	_, err := c.Embed(context.Background(), "text", ModeDocument)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestCohereGenerate(t *testing.T) {
	c := newTestCohere(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat", r.URL.Path)

		var req cohereChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "the full prompt", req.Message)
		require.Len(t, req.ChatHistory, 2)
		assert.Equal(t, "SYSTEM", req.ChatHistory[0].Role)
		assert.Equal(t, "CHATBOT", req.ChatHistory[1].Role)

		_ = json.NewEncoder(w).Encode(cohereChatResponse{Text: "the answer"})
	}))

	answer, err := c.Generate(context.Background(), "the full prompt", []Message{
		NewMessage(RoleSystem, "be helpful"),
		NewMessage(RoleAssistant, "previous reply"),
	})
	require.NoError(t, err)
	assert.Equal(t, "the answer", answer)
}

func TestCohereGenerateEmptyText(t *testing.T) {
	c := newTestCohere(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(cohereChatResponse{})
	}))

	_, err := c.Generate(context.Background(), "prompt", nil)
	require.Error(t, err)
}

func TestDimensionAccessors(t *testing.T) {
	c := newTestCohere(t, http.NewServeMux())
	assert.Equal(t, 4, c.Dimension())

	o, err := NewOpenAI(OpenAIConfig{APIKey: "k", Dimension: 7}, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, o.Dimension())
}

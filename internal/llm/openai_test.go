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

func newTestOpenAI(t *testing.T, handler http.Handler) *OpenAI {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	o, err := NewOpenAI(OpenAIConfig{
		APIKey:        "test-key",
		BaseURL:       server.URL + "/v1",
		GenerateModel: "gpt-4o-mini",
		EmbedModel:    "text-embedding-3-small",
		Dimension:     4,
	}, nil)
	require.NoError(t, err)
	return o
}

func TestOpenAIEmbed(t *testing.T) {
	var requestedDimensions int

	o := newTestOpenAI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embeddings", r.URL.Path)

		var req struct {
			Input      []string `json:"input"`
			Model      string   `json:"model"`
			Dimensions int      `json:"dimensions"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requestedDimensions = req.Dimensions
		require.Equal(t, []string{"some text"}, req.Input)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float32{0.1, 0.2, 0.3, 0.4}},
			},
			"model": req.Model,
		})
	}))

	ctx := context.Background()
	docVec, err := o.Embed(ctx, "some text", ModeDocument)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.4}, docVec)
	assert.Equal(t, 4, requestedDimensions, "configured dimensionality must be requested")

	// Symmetric encoder: both modes produce the same vector.
	queryVec, err := o.Embed(ctx, "some text", ModeQuery)
	require.NoError(t, err)
	assert.Equal(t, docVec, queryVec)
}

func TestOpenAIGenerate(t *testing.T) {
	o := newTestOpenAI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Equal(t, "the full prompt", req.Messages[1].Content)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": "the answer"},
					"finish_reason": "stop",
				},
			},
		})
	}))

	answer, err := o.Generate(context.Background(), "the full prompt", []Message{
		NewMessage(RoleSystem, "be helpful"),
	})
	require.NoError(t, err)
	assert.Equal(t, "the answer", answer)
}

func TestOpenAIGenerateServerError(t *testing.T) {
	o := newTestOpenAI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
	}))

	_, err := o.Generate(context.Background(), "prompt", nil)
	require.Error(t, err)
}

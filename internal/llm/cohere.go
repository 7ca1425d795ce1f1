package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Cohere input types for asymmetric embedding.
const (
	cohereInputDocument = "search_document"
	cohereInputQuery    = "search_query"
)

// DefaultCohereBaseURL is the public Cohere API endpoint.
const DefaultCohereBaseURL = "https://api.cohere.ai"

// CohereConfig configures the Cohere client.
type CohereConfig struct {
	APIKey        string
	BaseURL       string // defaults to DefaultCohereBaseURL
	GenerateModel string // e.g. "command-r"
	EmbedModel    string // e.g. "embed-english-v3.0"
	Dimension     int
	Temperature   float32
	MaxTokens     int
	Timeout       time.Duration // per-request HTTP timeout, defaults to 30s
}

// Cohere implements EmbeddingProvider and TextGenerator against the Cohere
// REST API. Cohere embed models are bi-encoders: the input_type field selects
// the document or query encoder, which is exactly the asymmetry the pipeline
// requires.
type Cohere struct {
	cfg    CohereConfig
	client *http.Client
	logger *slog.Logger
}

// NewCohere creates a Cohere client.
func NewCohere(cfg CohereConfig, logger *slog.Logger) (*Cohere, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cohere: API key is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("cohere: embedding dimension must be positive, got %d", cfg.Dimension)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultCohereBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Cohere{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}, nil
}

type cohereEmbedRequest struct {
	Model     string   `json:"model"`
	Texts     []string `json:"texts"`
	InputType string   `json:"input_type"`
	Truncate  string   `json:"truncate"`
}

type cohereEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// Embed encodes text with input_type derived from mode.
func (c *Cohere) Embed(ctx context.Context, text string, mode Mode) ([]float32, error) {
	inputType := cohereInputDocument
	if mode == ModeQuery {
		inputType = cohereInputQuery
	}

	var resp cohereEmbedResponse
	err := c.postJSON(ctx, "/v1/embed", cohereEmbedRequest{
		Model:     c.cfg.EmbedModel,
		Texts:     []string{text},
		InputType: inputType,
		Truncate:  "END",
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("cohere: embed (%s): %w", inputType, err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, nil
	}

	vector := make([]float32, len(resp.Embeddings[0]))
	for i, v := range resp.Embeddings[0] {
		vector[i] = float32(v)
	}
	return vector, nil
}

// Dimension returns the configured embedding dimensionality.
func (c *Cohere) Dimension() int {
	return c.cfg.Dimension
}

type cohereChatMessage struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

type cohereChatRequest struct {
	Model       string              `json:"model"`
	Message     string              `json:"message"`
	ChatHistory []cohereChatMessage `json:"chat_history,omitempty"`
	Temperature float32             `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type cohereChatResponse struct {
	Text string `json:"text"`
}

// Generate runs one chat call. Canonical roles map to Cohere's SYSTEM, USER
// and CHATBOT wire roles.
func (c *Cohere) Generate(ctx context.Context, prompt string, history []Message) (string, error) {
	chatHistory := make([]cohereChatMessage, 0, len(history))
	for _, m := range history {
		role := "USER"
		switch m.Role {
		case RoleSystem:
			role = "SYSTEM"
		case RoleAssistant:
			role = "CHATBOT"
		}
		chatHistory = append(chatHistory, cohereChatMessage{Role: role, Message: m.Content})
	}

	var resp cohereChatResponse
	err := c.postJSON(ctx, "/v1/chat", cohereChatRequest{
		Model:       c.cfg.GenerateModel,
		Message:     prompt,
		ChatHistory: chatHistory,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("cohere: chat: %w", err)
	}
	if resp.Text == "" {
		return "", fmt.Errorf("cohere: chat returned no text")
	}

	c.logger.Debug("cohere generation complete", "model", c.cfg.GenerateModel, "answer_length", len(resp.Text))
	return resp.Text, nil
}

func (c *Cohere) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

package llm

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// Gemini task types for asymmetric embedding. gemini-embedding models encode
// documents and queries differently depending on the task type.
const (
	geminiTaskDocument = "RETRIEVAL_DOCUMENT"
	geminiTaskQuery    = "RETRIEVAL_QUERY"
)

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	APIKey         string
	GenerateModel  string  // e.g. "gemini-2.5-flash"
	EmbedModel     string  // e.g. "gemini-embedding-001"
	Dimension      int     // requested output dimensionality, e.g. 768
	Temperature    float32 // generation temperature
	MaxOutputToken int32   // 0 = backend default
}

// Gemini implements EmbeddingProvider and TextGenerator on top of the Google
// GenAI SDK. Embedding asymmetry maps onto the task type: ModeDocument uses
// RETRIEVAL_DOCUMENT and ModeQuery uses RETRIEVAL_QUERY.
type Gemini struct {
	client *genai.Client
	cfg    GeminiConfig
	logger *slog.Logger
}

// NewGemini creates a Gemini client.
func NewGemini(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("gemini: embedding dimension must be positive, got %d", cfg.Dimension)
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}

	return &Gemini{client: client, cfg: cfg, logger: logger}, nil
}

// Embed encodes text with the task type matching mode.
func (g *Gemini) Embed(ctx context.Context, text string, mode Mode) ([]float32, error) {
	task := geminiTaskDocument
	if mode == ModeQuery {
		task = geminiTaskQuery
	}

	dim := int32(g.cfg.Dimension) // #nosec G115 -- validated positive and small in NewGemini
	resp, err := g.client.Models.EmbedContent(ctx, g.cfg.EmbedModel, genai.Text(text),
		&genai.EmbedContentConfig{
			TaskType:             task,
			OutputDimensionality: &dim,
		})
	if err != nil {
		return nil, fmt.Errorf("gemini: embed (%s): %w", task, err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, nil
	}
	return resp.Embeddings[0].Values, nil
}

// Dimension returns the configured output dimensionality.
func (g *Gemini) Dimension() int {
	return g.cfg.Dimension
}

// Generate runs one completion. System messages in the history become the
// system instruction; assistant turns map to the model role.
func (g *Gemini) Generate(ctx context.Context, prompt string, history []Message) (string, error) {
	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.cfg.Temperature),
	}
	if g.cfg.MaxOutputToken > 0 {
		genCfg.MaxOutputTokens = g.cfg.MaxOutputToken
	}

	var contents []*genai.Content
	for _, m := range history {
		switch m.Role {
		case RoleSystem:
			genCfg.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.GenerateModel, contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("gemini: generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini: generate returned no text")
	}

	g.logger.Debug("gemini generation complete", "model", g.cfg.GenerateModel, "answer_length", len(text))
	return text, nil
}

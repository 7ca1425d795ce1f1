package llm

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// OpenAIConfig configures the OpenAI client.
type OpenAIConfig struct {
	APIKey        string
	BaseURL       string // optional, for OpenAI-compatible endpoints
	GenerateModel string // e.g. "gpt-4o-mini"
	EmbedModel    string // e.g. "text-embedding-3-small"
	Dimension     int    // requested embedding dimensionality
	Temperature   float32
	MaxTokens     int
	// RequestsPerSecond caps outbound API calls. 0 disables the limiter.
	// Rate limiting sits here at the collaborator boundary, not in the
	// pipeline.
	RequestsPerSecond float64
}

// OpenAI implements EmbeddingProvider and TextGenerator using the OpenAI API.
//
// OpenAI embedding models are symmetric encoders: ModeDocument and ModeQuery
// produce identical vectors. The mode parameter is still honored so the
// pipeline's asymmetry contract holds regardless of which backend is wired.
type OpenAI struct {
	client  *openai.Client
	cfg     OpenAIConfig
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewOpenAI creates an OpenAI client.
func NewOpenAI(cfg OpenAIConfig, logger *slog.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("openai: embedding dimension must be positive, got %d", cfg.Dimension)
	}
	if logger == nil {
		logger = slog.Default()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &OpenAI{
		client:  openai.NewClientWithConfig(clientCfg),
		cfg:     cfg,
		limiter: limiter,
		logger:  logger,
	}, nil
}

func (o *OpenAI) wait(ctx context.Context) error {
	if o.limiter == nil {
		return nil
	}
	return o.limiter.Wait(ctx)
}

// Embed encodes text. The mode is accepted for interface parity; OpenAI uses
// the same encoder for both.
func (o *OpenAI) Embed(ctx context.Context, text string, _ Mode) ([]float32, error) {
	if err := o.wait(ctx); err != nil {
		return nil, fmt.Errorf("openai: rate limiter: %w", err)
	}

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(o.cfg.EmbedModel),
		Dimensions: o.cfg.Dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	return resp.Data[0].Embedding, nil
}

// Dimension returns the configured embedding dimensionality.
func (o *OpenAI) Dimension() int {
	return o.cfg.Dimension
}

// Generate runs one chat completion with the history followed by the prompt
// as the final user turn.
func (o *OpenAI) Generate(ctx context.Context, prompt string, history []Message) (string, error) {
	if err := o.wait(ctx); err != nil {
		return "", fmt.Errorf("openai: rate limiter: %w", err)
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.cfg.GenerateModel,
		Messages:    messages,
		Temperature: o.cfg.Temperature,
		MaxTokens:   o.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: chat completion returned no choices")
	}

	answer := resp.Choices[0].Message.Content
	o.logger.Debug("openai generation complete", "model", o.cfg.GenerateModel, "answer_length", len(answer))
	return answer, nil
}

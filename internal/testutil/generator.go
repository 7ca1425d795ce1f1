package testutil

import (
	"context"
	"sync"

	"github.com/koopa0/ragline/internal/llm"
)

// GenerateCall records one Generate invocation.
type GenerateCall struct {
	Prompt  string
	History []llm.Message
}

// Generator is a scripted generation backend for tests. It returns Reply (or
// Err when set) and records every call. Safe for concurrent use.
type Generator struct {
	Reply string
	Err   error

	mu    sync.Mutex
	calls []GenerateCall
}

// NewGenerator creates a Generator that always answers with reply.
func NewGenerator(reply string) *Generator {
	return &Generator{Reply: reply}
}

// Generate implements llm.TextGenerator.
func (g *Generator) Generate(_ context.Context, prompt string, history []llm.Message) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, GenerateCall{
		Prompt:  prompt,
		History: append([]llm.Message(nil), history...),
	})
	g.mu.Unlock()

	if g.Err != nil {
		return "", g.Err
	}
	return g.Reply, nil
}

// Calls returns a copy of all recorded Generate invocations.
func (g *Generator) Calls() []GenerateCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]GenerateCall(nil), g.calls...)
}

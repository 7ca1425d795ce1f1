package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/koopa0/ragline/internal/llm"
)

// EmbedderDimension is the dimensionality of vectors produced by Embedder.
const EmbedderDimension = 64

// EmbedCall records one Embed invocation.
type EmbedCall struct {
	Text string
	Mode llm.Mode
}

// Embedder is a deterministic in-process embedding backend for tests.
//
// It hashes lowercased tokens into a fixed-size bag-of-words vector, so texts
// sharing words get similar vectors and identical texts get identical ones.
// No network, no randomness: the same input always embeds the same way.
//
// FailOn and EmptyOn inject failures: any text containing FailOn returns
// ErrInject, any text containing EmptyOn embeds to an empty vector.
// Embedder records every call and is safe for concurrent use.
type Embedder struct {
	FailOn    string
	EmptyOn   string
	ErrInject error

	mu    sync.Mutex
	calls []EmbedCall
}

// NewEmbedder creates an Embedder with no injected failures.
func NewEmbedder() *Embedder {
	return &Embedder{}
}

// Embed implements llm.EmbeddingProvider.
func (e *Embedder) Embed(_ context.Context, text string, mode llm.Mode) ([]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, EmbedCall{Text: text, Mode: mode})
	e.mu.Unlock()

	if e.FailOn != "" && strings.Contains(text, e.FailOn) {
		return nil, e.ErrInject
	}
	if e.EmptyOn != "" && strings.Contains(text, e.EmptyOn) {
		return nil, nil
	}

	return bagOfWords(text), nil
}

// Dimension implements llm.EmbeddingProvider.
func (e *Embedder) Dimension() int {
	return EmbedderDimension
}

// Calls returns a copy of all recorded Embed invocations.
func (e *Embedder) Calls() []EmbedCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]EmbedCall(nil), e.calls...)
}

// Modes returns the modes of all recorded invocations, in call order.
func (e *Embedder) Modes() []llm.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	modes := make([]llm.Mode, len(e.calls))
	for i, call := range e.calls {
		modes[i] = call.Mode
	}
	return modes
}

// bagOfWords maps text to a unit-length token-count vector. Whitespace-only
// text maps to an empty vector.
func bagOfWords(text string) []float32 {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(tokens) == 0 {
		return nil
	}

	vector := make([]float32, EmbedderDimension)
	for _, token := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vector[h.Sum32()%EmbedderDimension]++
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / norm)
	}
	return vector
}

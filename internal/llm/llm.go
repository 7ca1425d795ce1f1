// Package llm defines the capability interfaces for the embedding and text
// generation backends the pipeline orchestrates, plus concrete clients for
// Gemini, OpenAI and Cohere.
//
// Interfaces are defined here by the consumer side of the pipeline; each
// backend implements them, which keeps test doubles trivial.
package llm

import "context"

// Mode selects the embedding encoder. Asymmetric (bi-encoder) backends encode
// documents and queries into different spaces that are optimized for
// matching; conflating the two degrades relevance silently instead of
// erroring, so the mode is a first-class parameter on Embed, never a default.
type Mode string

const (
	// ModeDocument encodes text for storage in a vector collection.
	ModeDocument Mode = "document"

	// ModeQuery encodes text for searching a vector collection.
	ModeQuery Mode = "query"
)

// Role identifies the author of a chat message. Backends translate these
// canonical roles into their own wire values inside Generate.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of chat history handed to a TextGenerator.
type Message struct {
	Role    Role
	Content string
}

// NewMessage builds a chat message with the given role.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// EmbeddingProvider turns text into a fixed-dimensionality vector.
//
// Implementations may return an empty vector without an error when the
// backend silently produces nothing; callers must treat an empty vector as a
// failed embedding.
type EmbeddingProvider interface {
	// Embed encodes text in the given mode.
	Embed(ctx context.Context, text string, mode Mode) ([]float32, error)

	// Dimension reports the backend's embedding dimensionality. Vector
	// collections are created with this dimension and it never changes for
	// a given backend configuration.
	Dimension() int
}

// TextGenerator produces an answer from a prompt and prior chat history.
type TextGenerator interface {
	// Generate runs one synchronous completion. history carries at least the
	// system message; prompt is appended as the final user turn.
	Generate(ctx context.Context, prompt string, history []Message) (string, error)
}

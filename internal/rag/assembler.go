package rag

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/koopa0/ragline/internal/llm"
	"github.com/koopa0/ragline/internal/prompt"
)

// promptNamespace is the template namespace holding the pipeline's
// fragments: system_prompt, document_prompt and footer_prompt.
const promptNamespace = "rag"

// Assembler renders the generation prompt from retrieved documents and the
// user's question. It holds no state across calls: each question gets a
// fresh, minimal chat history.
type Assembler struct {
	templates *prompt.Provider
}

// NewAssembler creates an Assembler over the given template provider.
func NewAssembler(templates *prompt.Provider) *Assembler {
	return &Assembler{templates: templates}
}

// Assemble builds the full prompt and the chat history for one question.
//
// The prompt is one document fragment per retrieved document, numbered
// 1-based in retrieval order, followed by a single footer fragment carrying
// the question, all joined by blank lines. The history is exactly one
// system-role message rendered from the system_prompt fragment.
func (a *Assembler) Assemble(docs []RetrievedDocument, query string) (fullPrompt string, history []llm.Message, err error) {
	fragments := make([]string, 0, len(docs)+1)
	for i, doc := range docs {
		fragment, err := a.templates.Render(promptNamespace, "document_prompt", map[string]string{
			"doc_num":    strconv.Itoa(i + 1),
			"chunk_text": doc.Text,
		})
		if err != nil {
			return "", nil, fmt.Errorf("rendering document fragment %d: %w", i+1, err)
		}
		fragments = append(fragments, fragment)
	}

	footer, err := a.templates.Render(promptNamespace, "footer_prompt", map[string]string{
		"query": query,
	})
	if err != nil {
		return "", nil, fmt.Errorf("rendering footer fragment: %w", err)
	}
	fragments = append(fragments, footer)

	system, err := a.templates.Render(promptNamespace, "system_prompt", nil)
	if err != nil {
		return "", nil, fmt.Errorf("rendering system prompt: %w", err)
	}

	return strings.Join(fragments, "\n\n"),
		[]llm.Message{llm.NewMessage(llm.RoleSystem, system)},
		nil
}

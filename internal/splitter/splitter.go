// Package splitter turns raw document text into ordered, overlapping chunks
// suitable for embedding and retrieval.
//
// Splitting is hierarchical: each cut is placed at the largest structural
// boundary (paragraph, then sentence, then line, then word) that keeps the
// chunk within the configured size, falling back to a hard cut when the text
// has no usable boundary. Consecutive chunks share a fixed number of
// characters so context survives chunk borders.
package splitter

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Default sizes, in characters. These match the ingestion defaults used by
// the CLI; callers with known document shapes should tune both.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// boundarySeps are the cut candidates in decreasing structural order.
// The first separator with a usable occurrence inside the window wins.
var boundarySeps = []string{"\n\n", ". ", "! ", "? ", "\n", " "}

// Document is one source document to split. Metadata is carried unmodified
// onto every chunk produced from the document.
type Document struct {
	Text     string
	Metadata map[string]string
}

// Chunk is one bounded slice of a source document's text.
type Chunk struct {
	Text     string
	Metadata map[string]string
}

// Splitter splits documents into overlapping chunks. It is stateless after
// construction and safe for concurrent use.
type Splitter struct {
	chunkSize int
	overlap   int
}

// New creates a Splitter. chunkSize must be positive and overlap must satisfy
// 0 <= overlap < chunkSize.
func New(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must not be negative, got %d", overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("overlap %d must be smaller than chunk size %d", overlap, chunkSize)
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// Split splits a single document into ordered chunks.
//
// Every chunk is a contiguous rune slice of the original text and consecutive
// chunks overlap by exactly the configured overlap, so concatenating the
// first chunk with each following chunk minus its overlap prefix reconstructs
// the document. Documents that are empty or whitespace-only yield no chunks;
// any other document yields at least one, regardless of its length.
func (s *Splitter) Split(doc Document) []Chunk {
	if strings.TrimSpace(doc.Text) == "" {
		return nil
	}

	runes := []rune(doc.Text)
	n := len(runes)
	if n <= s.chunkSize {
		return []Chunk{{Text: doc.Text, Metadata: doc.Metadata}}
	}

	var chunks []Chunk
	start := 0
	for start < n {
		end := start + s.chunkSize
		if end >= n {
			end = n
		} else {
			end = s.snap(runes, start, end)
		}

		chunks = append(chunks, Chunk{
			Text:     string(runes[start:end]),
			Metadata: doc.Metadata,
		})

		if end == n {
			break
		}
		start = end - s.overlap
	}

	return chunks
}

// SplitAll splits multiple documents, preserving document order. Chunks from
// one document never mix with chunks from another.
func (s *Splitter) SplitAll(docs []Document) []Chunk {
	var chunks []Chunk
	for _, doc := range docs {
		chunks = append(chunks, s.Split(doc)...)
	}
	return chunks
}

// snap moves the window end back to the latest structural boundary inside
// runes[start:end]. A cut fewer than overlap+1 runes into the window would
// not advance past the previous chunk's overlap, so such boundaries are
// skipped; if no separator yields a usable cut the window end stands.
func (s *Splitter) snap(runes []rune, start, end int) int {
	window := string(runes[start:end])
	minCut := s.overlap + 1

	for _, sep := range boundarySeps {
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		// Separators are ASCII, so the byte index cuts at a rune boundary.
		cut := utf8.RuneCountInString(window[:idx+len(sep)])
		if cut >= minCut {
			return start + cut
		}
	}
	return end
}

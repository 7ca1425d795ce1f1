package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		overlap   int
		wantErr   bool
	}{
		{name: "valid", chunkSize: 1000, overlap: 200},
		{name: "zero overlap", chunkSize: 100, overlap: 0},
		{name: "zero chunk size", chunkSize: 0, overlap: 0, wantErr: true},
		{name: "negative chunk size", chunkSize: -1, overlap: 0, wantErr: true},
		{name: "negative overlap", chunkSize: 100, overlap: -1, wantErr: true},
		{name: "overlap equals chunk size", chunkSize: 100, overlap: 100, wantErr: true},
		{name: "overlap exceeds chunk size", chunkSize: 100, overlap: 150, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.chunkSize, tt.overlap)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, s)
		})
	}
}

func TestSplitEmptyDocument(t *testing.T) {
	s, err := New(100, 20)
	require.NoError(t, err)

	assert.Nil(t, s.Split(Document{Text: ""}))
	assert.Nil(t, s.Split(Document{Text: "   \n\t  "}))
}

func TestSplitShortDocument(t *testing.T) {
	s, err := New(100, 20)
	require.NoError(t, err)

	chunks := s.Split(Document{Text: "short text"})
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0].Text)
}

func TestSplitExactChunkSize(t *testing.T) {
	s, err := New(10, 2)
	require.NoError(t, err)

	text := strings.Repeat("a", 10)
	chunks := s.Split(Document{Text: text})
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
}

// reconstruct rebuilds the original text from chunks produced with the given
// overlap: the first chunk whole, every later chunk minus its overlap prefix.
func reconstruct(chunks []Chunk, overlap int) string {
	var sb strings.Builder
	for i, chunk := range chunks {
		runes := []rune(chunk.Text)
		if i == 0 {
			sb.WriteString(chunk.Text)
		} else {
			sb.WriteString(string(runes[overlap:]))
		}
	}
	return sb.String()
}

func TestSplitReconstructsDocument(t *testing.T) {
	texts := map[string]string{
		"paragraphs": strings.Repeat("First paragraph with some words in it.\n\nSecond paragraph follows here.\n\n", 20),
		"sentences":  strings.Repeat("A sentence about physics. Another one about chemistry! A question about biology? ", 30),
		"no boundaries": strings.Repeat("x", 950),
		"unicode":       strings.Repeat("量子力學是描述微觀世界的理論。它與古典力學非常不同。", 40),
		"mixed":         strings.Repeat("word ", 500),
	}

	for name, text := range texts {
		t.Run(name, func(t *testing.T) {
			s, err := New(200, 40)
			require.NoError(t, err)

			chunks := s.Split(Document{Text: text})
			require.NotEmpty(t, chunks)

			for i, chunk := range chunks {
				assert.NotEmpty(t, chunk.Text, "chunk %d is empty", i)
			}
			assert.Equal(t, text, reconstruct(chunks, 40))
		})
	}
}

func TestSplitChunkBounds(t *testing.T) {
	s, err := New(100, 20)
	require.NoError(t, err)

	text := strings.Repeat("Some words make a sentence. ", 100)
	chunks := s.Split(Document{Text: text})
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		n := len([]rune(chunk.Text))
		assert.LessOrEqual(t, n, 100, "chunk %d exceeds chunk size", i)
		assert.Greater(t, n, 20, "chunk %d does not extend past the overlap", i)
	}
}

func TestSplitOverlapIsExact(t *testing.T) {
	s, err := New(50, 10)
	require.NoError(t, err)

	text := strings.Repeat("alpha beta gamma delta epsilon ", 40)
	chunks := s.Split(Document{Text: text})
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Text)
		curr := []rune(chunks[i].Text)
		assert.Equal(t, string(prev[len(prev)-10:]), string(curr[:10]),
			"chunks %d and %d do not share the overlap", i-1, i)
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	s, err := New(120, 30)
	require.NoError(t, err)

	doc := Document{Text: strings.Repeat("Deterministic output matters for idempotent indexing. ", 50)}
	first := s.Split(doc)
	second := s.Split(doc)
	assert.Equal(t, first, second)
}

func TestSplitCarriesMetadata(t *testing.T) {
	s, err := New(50, 10)
	require.NoError(t, err)

	meta := map[string]string{"source": "notes.md"}
	chunks := s.Split(Document{
		Text:     strings.Repeat("metadata travels with every chunk ", 20),
		Metadata: meta,
	})
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		assert.Equal(t, meta, chunk.Metadata)
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	s, err := New(100, 10)
	require.NoError(t, err)

	para := strings.Repeat("w", 60)
	text := para + "\n\n" + para + "\n\n" + para
	chunks := s.Split(Document{Text: text})
	require.Greater(t, len(chunks), 1)

	// The first cut should land right after the paragraph break, not mid-word.
	assert.True(t, strings.HasSuffix(chunks[0].Text, "\n\n"),
		"first chunk should end at the paragraph boundary, got %q tail", chunks[0].Text[len(chunks[0].Text)-5:])
}

func TestSplitAll(t *testing.T) {
	s, err := New(100, 20)
	require.NoError(t, err)

	docs := []Document{
		{Text: "first document", Metadata: map[string]string{"source": "a"}},
		{Text: "", Metadata: map[string]string{"source": "skipped"}},
		{Text: "second document", Metadata: map[string]string{"source": "b"}},
	}

	chunks := s.SplitAll(docs)
	require.Len(t, chunks, 2)
	assert.Equal(t, "a", chunks[0].Metadata["source"])
	assert.Equal(t, "b", chunks[1].Metadata["source"])
}

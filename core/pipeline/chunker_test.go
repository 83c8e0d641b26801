package pipeline

import (
	"fmt"
	"strings"
	"testing"

	"github.com/siherrmann/graphrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reconstruct drops the overlapping tokens of every chunk but the first.
func reconstruct(chunks []*model.Chunk) []string {
	var tokens []string
	for _, c := range chunks {
		tokens = append(tokens, strings.Fields(c.Text)[c.Overlap:]...)
	}
	return tokens
}

func sampleReport() string {
	var b strings.Builder
	for p := 0; p < 6; p++ {
		for s := 0; s < 5; s++ {
			fmt.Fprintf(&b, "Paragraph %d sentence %d describes cloud services and delivery. ", p, s)
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func TestChunk(t *testing.T) {
	t.Run("Valid chunking reconstructs the text", func(t *testing.T) {
		text := sampleReport()

		chunks, err := Chunk(text, 40, 8)

		require.NoError(t, err, "Expected Chunk to succeed")
		require.Greater(t, len(chunks), 1, "Expected several chunks")
		assert.Equal(t, strings.Fields(text), reconstruct(chunks), "Expected chunks minus overlap to reconstruct the text")
	})

	t.Run("Chunks respect max tokens and overlap", func(t *testing.T) {
		chunks, err := Chunk(sampleReport(), 25, 5)
		require.NoError(t, err)

		for i, c := range chunks {
			words := strings.Fields(c.Text)
			assert.LessOrEqual(t, len(words), 25, "Expected chunk %d to respect max tokens", i)
			assert.Equal(t, len(words), c.TokenCount, "Expected token count to match chunk %d", i)
			assert.Equal(t, i, c.ChunkIndex)
			if i == 0 {
				assert.Equal(t, 0, c.Overlap)
				continue
			}
			prev := strings.Fields(chunks[i-1].Text)
			assert.Equal(t, prev[len(prev)-5:], words[:5], "Expected chunk %d to start with the last tokens of its predecessor", i)
			assert.Equal(t, chunks[i-1].TokenOffset+chunks[i-1].TokenCount-5, c.TokenOffset)
		}
	})

	t.Run("Chunks end at sentence boundaries when possible", func(t *testing.T) {
		text := "One two three four five. Six seven eight nine ten eleven twelve. Thirteen fourteen."

		chunks, err := Chunk(text, 8, 0)
		require.NoError(t, err)

		assert.Equal(t, "One two three four five.", chunks[0].Text, "Expected the first chunk to stop after the sentence")
		assert.Equal(t, strings.Fields(text), reconstruct(chunks))
	})

	t.Run("Chunks prefer paragraph ends", func(t *testing.T) {
		text := "Alpha beta gamma delta. Epsilon zeta.\n\nEta theta iota. Kappa lambda mu."

		chunks, err := Chunk(text, 8, 0)
		require.NoError(t, err)

		assert.Equal(t, "Alpha beta gamma delta. Epsilon zeta.", chunks[0].Text)
		assert.Equal(t, "Eta theta iota. Kappa lambda mu.", chunks[1].Text)
	})

	t.Run("Hard cut without boundaries", func(t *testing.T) {
		text := strings.Repeat("word ", 23)

		chunks, err := Chunk(text, 10, 2)
		require.NoError(t, err)

		assert.Equal(t, 10, chunks[0].TokenCount, "Expected a hard cut at max tokens")
		assert.Equal(t, strings.Fields(text), reconstruct(chunks))
	})

	t.Run("Paragraph breaks are kept in chunk text", func(t *testing.T) {
		chunks, err := Chunk("First paragraph.\n\nSecond paragraph.", 100, 0)
		require.NoError(t, err)

		require.Len(t, chunks, 1)
		assert.Equal(t, "First paragraph.\n\nSecond paragraph.", chunks[0].Text)
	})

	t.Run("Deterministic for fixed parameters", func(t *testing.T) {
		a, err := Chunk(sampleReport(), 30, 6)
		require.NoError(t, err)
		b, err := Chunk(sampleReport(), 30, 6)
		require.NoError(t, err)

		assert.Equal(t, a, b, "Expected identical chunk sequences")
	})

	t.Run("Error on blank input", func(t *testing.T) {
		_, err := Chunk(" \n\t ", 10, 2)

		assert.ErrorIs(t, err, model.ErrEmptyInput, "Expected empty input error")
	})

	t.Run("Error on invalid parameters", func(t *testing.T) {
		_, err := Chunk("text", 0, 0)
		assert.ErrorIs(t, err, model.ErrInput, "Expected input error for zero max tokens")

		_, err = Chunk("text", 10, 10)
		assert.ErrorIs(t, err, model.ErrInput, "Expected input error for overlap equal to max tokens")

		_, err = Chunk("text", 10, -1)
		assert.ErrorIs(t, err, model.ErrInput, "Expected input error for negative overlap")
	})
}

func TestBoundaryChunker(t *testing.T) {
	t.Run("Chunks carry source and stable ids", func(t *testing.T) {
		chunker := BoundaryChunker(20, 4)
		source := model.SourceRef{Document: "talan.pdf", Company: "Talan", Page: 2}

		chunks, err := chunker(sampleReport(), source)
		require.NoError(t, err)
		again, err := chunker(sampleReport(), source)
		require.NoError(t, err)

		seen := map[string]bool{}
		for i, c := range chunks {
			assert.Equal(t, source, c.Source, "Expected source on chunk %d", i)
			assert.Equal(t, model.NewChunkID(source, i), c.ID)
			assert.Equal(t, again[i].ID, c.ID, "Expected stable id for chunk %d", i)
			assert.False(t, seen[c.ID.String()], "Expected unique id for chunk %d", i)
			seen[c.ID.String()] = true
		}
	})
}

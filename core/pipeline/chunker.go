package pipeline

import (
	"regexp"
	"strings"

	"github.com/siherrmann/graphrag/model"
)

type boundary int

const (
	boundaryNone boundary = iota
	boundarySentence
	boundaryParagraph
)

var paragraphSplit = regexp.MustCompile(`\n\s*\n`)

// BoundaryChunker creates a chunker that cuts at paragraph or sentence ends
// where possible. See Chunk for the rules.
func BoundaryChunker(maxTokens int, overlap int) ChunkFunc {
	return func(text string, source model.SourceRef) ([]*model.Chunk, error) {
		chunks, err := Chunk(text, maxTokens, overlap)
		if err != nil {
			return nil, err
		}
		for i, c := range chunks {
			chunks[i] = c.WithSource(source)
		}
		return chunks, nil
	}
}

// Chunk splits text into chunks of at most maxTokens whitespace separated tokens.
// Consecutive chunks share exactly overlap tokens. A chunk ends at the latest
// paragraph end in the second half of its window, else at the latest sentence
// end, else it is cut hard at maxTokens. The result only depends on the input.
func Chunk(text string, maxTokens int, overlap int) ([]*model.Chunk, error) {
	if maxTokens <= 0 {
		return nil, model.NewInputError("max tokens must be positive, got %d", maxTokens)
	}
	if overlap < 0 || overlap >= maxTokens {
		return nil, model.NewInputError("overlap must be in [0, %d), got %d", maxTokens, overlap)
	}
	if strings.TrimSpace(text) == "" {
		return nil, model.NewEmptyInputError("text")
	}

	tokens, ends := tokenize(text)
	n := len(tokens)

	var chunks []*model.Chunk
	start := 0
	for {
		limit := min(start+maxTokens, n)
		end := limit
		if limit < n {
			minEnd := start + overlap + 1
			if p := lastBoundary(ends, boundaryParagraph, max(minEnd, start+maxTokens/2), limit); p > 0 {
				end = p
			} else if s := lastBoundary(ends, boundarySentence, minEnd, limit); s > 0 {
				end = s
			}
		}

		chunkOverlap := 0
		if start > 0 {
			chunkOverlap = overlap
		}
		chunks = append(chunks, &model.Chunk{
			Text:        join(tokens, ends, start, end),
			ChunkIndex:  len(chunks),
			TokenOffset: start,
			TokenCount:  end - start,
			Overlap:     chunkOverlap,
		})

		if end >= n {
			break
		}
		start = end - overlap
	}

	return chunks, nil
}

// tokenize splits text into tokens and records which kind of boundary follows each token.
func tokenize(text string) ([]string, []boundary) {
	var tokens []string
	var ends []boundary
	for _, paragraph := range paragraphSplit.Split(text, -1) {
		words := strings.Fields(paragraph)
		for i, w := range words {
			tokens = append(tokens, w)
			switch {
			case i == len(words)-1:
				ends = append(ends, boundaryParagraph)
			case endsSentence(w):
				ends = append(ends, boundarySentence)
			default:
				ends = append(ends, boundaryNone)
			}
		}
	}
	return tokens, ends
}

func endsSentence(word string) bool {
	word = strings.TrimRight(word, `"')]}»”’`)
	return strings.HasSuffix(word, ".") || strings.HasSuffix(word, "!") || strings.HasSuffix(word, "?")
}

// lastBoundary returns the largest chunk end in [lo, hi] after a boundary of at
// least the given strength, or 0.
func lastBoundary(ends []boundary, strength boundary, lo int, hi int) int {
	for end := hi; end >= lo && end > 0; end-- {
		if ends[end-1] >= strength {
			return end
		}
	}
	return 0
}

func join(tokens []string, ends []boundary, start int, end int) string {
	var b strings.Builder
	for i := start; i < end; i++ {
		if i > start {
			if ends[i-1] == boundaryParagraph {
				b.WriteString("\n\n")
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(tokens[i])
	}
	return b.String()
}

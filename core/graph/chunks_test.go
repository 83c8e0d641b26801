package graph

import (
	"context"
	"strings"
	"testing"

	"github.com/siherrmann/graphrag/core/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunks(t *testing.T) {
	g, err := Parse(strings.NewReader(sampleGraph), false)
	require.NoError(t, err)
	p := pipeline.NewPipeline(pipeline.BoundaryChunker(100, 10), pipeline.HashEmbedder(32))

	t.Run("Valid node chunks", func(t *testing.T) {
		chunks, err := g.Chunks(context.Background(), p)
		require.NoError(t, err, "Expected Chunks to succeed")

		nodes := []string{}
		for _, c := range chunks {
			nodes = append(nodes, c.Source.NodeID)
			assert.Len(t, c.Embedding, 32, "Expected node chunks to be embedded")
		}
		assert.Equal(t, []string{"cloud", "talan"}, nodes, "Expected nodes with text in id order")
		assert.Equal(t, "company", chunks[1].Metadata["node_type"])
		assert.Contains(t, chunks[1].Text, "hq: Paris")
	})

	t.Run("Nodes without text are skipped", func(t *testing.T) {
		chunks, err := g.Chunks(context.Background(), p)
		require.NoError(t, err)
		for _, c := range chunks {
			assert.NotEqual(t, "lonely", c.Source.NodeID)
			assert.NotEqual(t, "42", c.Source.NodeID)
		}
	})

	t.Run("Cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := g.Chunks(ctx, p)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestKnowledgeGraphExpand(t *testing.T) {
	g, err := Parse(strings.NewReader(sampleGraph), false)
	require.NoError(t, err)

	sub, err := g.Expand(context.Background(), []string{"talan"}, 1, 10, 10)
	require.NoError(t, err, "Expected Expand to succeed")
	assert.Equal(t, []string{"talan", "cloud"}, sub.NodeIDs(), "Expected seed first")
	assert.False(t, sub.Truncated)
}

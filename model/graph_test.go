package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubgraphSummary(t *testing.T) {
	t.Run("Counts nodes, edges and types", func(t *testing.T) {
		s := &Subgraph{
			Nodes: []*GraphNode{
				{ID: "a", Type: "company"},
				{ID: "b", Type: "service"},
				{ID: "c", Type: "service"},
			},
			Edges: []*GraphEdge{
				{Source: "a", Target: "b", Relation: "offers"},
			},
		}

		summary := s.Summary()

		assert.Equal(t, 3, summary.TotalNodes)
		assert.Equal(t, 1, summary.TotalEdges)
		assert.Equal(t, map[string]int{"company": 1, "service": 2}, summary.NodeTypes)
		assert.Equal(t, []string{"company", "service"}, summary.NodeTypeNames())
		assert.Equal(t, []string{"a", "b", "c"}, s.NodeIDs())
		assert.Equal(t, []string{"a->b:offers"}, s.EdgeKeys())
	})
}

func TestSourceRef(t *testing.T) {
	t.Run("Document page reference", func(t *testing.T) {
		ref := SourceRef{Document: "talan.pdf", Page: 3}
		assert.Equal(t, "talan.pdf#page=3", ref.String())
		assert.False(t, ref.IsNode())
	})

	t.Run("Node reference", func(t *testing.T) {
		ref := SourceRef{NodeID: "n1"}
		assert.Equal(t, "node:n1", ref.String())
		assert.True(t, ref.IsNode())
	})

	t.Run("Chunk ids are stable per source and position", func(t *testing.T) {
		ref := SourceRef{Document: "talan.pdf", Page: 1}
		assert.Equal(t, NewChunkID(ref, 0), NewChunkID(ref, 0))
		assert.NotEqual(t, NewChunkID(ref, 0), NewChunkID(ref, 1))
	})
}

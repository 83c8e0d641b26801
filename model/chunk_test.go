package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentHash(t *testing.T) {
	t.Run("Same text same hash", func(t *testing.T) {
		assert.Equal(t, ContentHash("Talan offers data consulting."), ContentHash("Talan offers data consulting."))
	})

	t.Run("Changed text changes the hash", func(t *testing.T) {
		assert.NotEqual(t, ContentHash("Talan offers data consulting."), ContentHash("Talan offers cloud consulting."), "Expected a content change to be detected")
	})
}

func TestWithSource(t *testing.T) {
	c := &Chunk{Text: "Data platforms", ChunkIndex: 2, Metadata: Metadata{MetadataContentHash: "x"}}
	moved := c.WithSource(SourceRef{NodeID: "talan-data"})

	assert.Equal(t, NewChunkID(SourceRef{NodeID: "talan-data"}, 2), moved.ID)
	assert.Equal(t, "talan-data", moved.Source.NodeID)
	assert.Empty(t, c.Source.NodeID, "Expected the original chunk to stay unchanged")
}

package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/graphrag/core/index"
	"github.com/siherrmann/graphrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(t *testing.T, modelName string, n int) *index.Snapshot {
	t.Helper()

	chunks := make([]*model.Chunk, 0, n)
	for i := 0; i < n; i++ {
		source := model.SourceRef{
			DocumentID: model.NewDocumentID(fmt.Sprintf("talan_%d.pdf", i)),
			Document:   fmt.Sprintf("talan_%d.pdf", i),
			Company:    "Talan",
			Page:       i + 1,
		}
		chunks = append(chunks, &model.Chunk{
			ID:         model.NewChunkID(source, 0),
			Source:     source,
			Text:       fmt.Sprintf("Talan offers service line %d", i),
			Embedding:  []float32{float32(i), 1, 0, 0.5},
			TokenCount: 5,
			Metadata:   model.Metadata{"entities": []interface{}{"Talan"}},
		})
	}

	snapshot, err := index.NewSnapshot(modelName, index.MetricCosine, chunks)
	require.NoError(t, err, "Expected test snapshot to build")
	return snapshot
}

func TestChunksNewChunksDBHandler(t *testing.T) {
	database := initDB(t)

	indexesDbHandler, err := NewIndexesDBHandler(database, true)
	require.NoError(t, err)

	t.Run("Valid call NewChunksDBHandler", func(t *testing.T) {
		chunksDbHandler, err := NewChunksDBHandler(database, indexesDbHandler, true)
		assert.NoError(t, err, "Expected NewChunksDBHandler to not return an error")
		require.NotNil(t, chunksDbHandler, "Expected NewChunksDBHandler to return a non-nil instance")
		require.NotNil(t, chunksDbHandler.db.Instance, "Expected NewChunksDBHandler to have a non-nil database connection instance")
	})

	t.Run("Invalid call NewChunksDBHandler with nil database", func(t *testing.T) {
		_, err := NewChunksDBHandler(nil, indexesDbHandler, false)
		assert.Error(t, err, "Expected error when creating ChunksDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil")
	})

	t.Run("Invalid call NewChunksDBHandler without indexes handler", func(t *testing.T) {
		_, err := NewChunksDBHandler(database, nil, false)
		assert.Error(t, err, "Expected error when creating ChunksDBHandler without indexes handler")
		assert.Contains(t, err.Error(), "indexes handler is nil")
	})
}

func TestChunksSaveAndLoadSnapshot(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	indexesDbHandler, err := NewIndexesDBHandler(database, true)
	require.NoError(t, err)
	chunksDbHandler, err := NewChunksDBHandler(database, indexesDbHandler, true)
	require.NoError(t, err)

	t.Run("Save and load snapshot round trip", func(t *testing.T) {
		snapshot := testSnapshot(t, "hash-bow-4", 3)

		info, err := chunksDbHandler.SaveSnapshot(ctx, "documents", snapshot)
		require.NoError(t, err, "Expected SaveSnapshot to not return an error")
		assert.Equal(t, 3, info.ChunkCount)
		assert.Equal(t, 4, info.Dimension)

		loaded, loadedInfo, err := chunksDbHandler.LoadSnapshot(ctx, "documents")
		require.NoError(t, err, "Expected LoadSnapshot to not return an error")
		assert.Equal(t, "hash-bow-4", loaded.Model())
		assert.Equal(t, index.MetricCosine, loaded.Metric())
		assert.Equal(t, 4, loaded.Dimension())
		assert.Equal(t, info.ChunkCount, loadedInfo.ChunkCount)

		original := snapshot.Chunks()
		restored := loaded.Chunks()
		require.Len(t, restored, len(original))
		for i := range original {
			assert.Equal(t, original[i].ID, restored[i].ID, "Expected chunk order to be preserved")
			assert.Equal(t, original[i].Source, restored[i].Source)
			assert.Equal(t, original[i].Text, restored[i].Text)
			assert.Equal(t, original[i].Embedding, restored[i].Embedding)
		}
		assert.Equal(t, []interface{}{"Talan"}, restored[0].Metadata["entities"])
	})

	t.Run("Loaded snapshot searches like the original", func(t *testing.T) {
		snapshot := testSnapshot(t, "hash-bow-4", 4)
		_, err := chunksDbHandler.SaveSnapshot(ctx, "search", snapshot)
		require.NoError(t, err)

		loaded, _, err := chunksDbHandler.LoadSnapshot(ctx, "search")
		require.NoError(t, err)

		query := []float32{3, 1, 0, 0.5}
		want, err := snapshot.Search(query, 2)
		require.NoError(t, err)
		got, err := loaded.Search(query, 2)
		require.NoError(t, err)

		require.Len(t, got, 2)
		for i := range want {
			assert.Equal(t, want[i].Chunk.ID, got[i].Chunk.ID)
			assert.InDelta(t, want[i].Score, got[i].Score, 1e-6)
		}
	})

	t.Run("Save replaces previous chunks", func(t *testing.T) {
		_, err := chunksDbHandler.SaveSnapshot(ctx, "replace", testSnapshot(t, "hash-bow-4", 5))
		require.NoError(t, err)
		_, err = chunksDbHandler.SaveSnapshot(ctx, "replace", testSnapshot(t, "other-model", 2))
		require.NoError(t, err)

		count, err := chunksDbHandler.CountChunks(ctx, "replace")
		require.NoError(t, err)
		assert.Equal(t, 2, count, "Expected only the chunks of the latest snapshot")

		info, err := indexesDbHandler.SelectIndex(ctx, "replace")
		require.NoError(t, err)
		assert.Equal(t, "other-model", info.EmbeddingModel, "Expected registry to follow the latest snapshot")
	})

	t.Run("Save empty snapshot", func(t *testing.T) {
		empty, err := index.NewSnapshot("hash-bow-4", index.MetricL2, nil)
		require.NoError(t, err)

		info, err := chunksDbHandler.SaveSnapshot(ctx, "empty", empty)
		require.NoError(t, err)
		assert.Equal(t, 0, info.ChunkCount)

		loaded, _, err := chunksDbHandler.LoadSnapshot(ctx, "empty")
		require.NoError(t, err)
		assert.Equal(t, 0, loaded.Len())
		assert.Equal(t, index.MetricL2, loaded.Metric())
	})

	t.Run("Chunk without document id", func(t *testing.T) {
		node := &model.Chunk{
			ID:        uuid.New(),
			Source:    model.SourceRef{NodeID: "company-talan"},
			Text:      "Talan is a consulting company",
			Embedding: []float32{1, 0, 0, 0},
		}
		snapshot, err := index.NewSnapshot("hash-bow-4", index.MetricCosine, []*model.Chunk{node})
		require.NoError(t, err)

		_, err = chunksDbHandler.SaveSnapshot(ctx, "graph", snapshot)
		require.NoError(t, err)

		loaded, _, err := chunksDbHandler.LoadSnapshot(ctx, "graph")
		require.NoError(t, err)
		require.Equal(t, 1, loaded.Len())
		assert.Equal(t, uuid.Nil, loaded.Chunks()[0].Source.DocumentID)
		assert.Equal(t, "company-talan", loaded.Chunks()[0].Source.NodeID)
	})

	t.Run("Invalid save without name", func(t *testing.T) {
		_, err := chunksDbHandler.SaveSnapshot(ctx, "", testSnapshot(t, "hash-bow-4", 1))
		assert.ErrorIs(t, err, model.ErrEmptyInput)
	})

	t.Run("Invalid load of missing index", func(t *testing.T) {
		_, _, err := chunksDbHandler.LoadSnapshot(ctx, "missing")
		assert.ErrorIs(t, err, model.ErrIndex)
	})

	t.Run("Invalid load of corrupt index", func(t *testing.T) {
		_, err := chunksDbHandler.SaveSnapshot(ctx, "corrupt", testSnapshot(t, "hash-bow-4", 2))
		require.NoError(t, err)
		_, err = database.Instance.ExecContext(ctx, `UPDATE embedding_indexes SET chunk_count = 5 WHERE name = 'corrupt'`)
		require.NoError(t, err)

		_, _, err = chunksDbHandler.LoadSnapshot(ctx, "corrupt")
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrIndex, "Expected count mismatch to be an index error")
		assert.Contains(t, err.Error(), "corrupt")
	})
}

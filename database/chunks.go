package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/graphrag/core/index"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	loadSql "github.com/siherrmann/graphrag/sql"
)

// ChunksDBHandlerFunctions defines the interface for index snapshot persistence.
type ChunksDBHandlerFunctions interface {
	SaveSnapshot(ctx context.Context, name string, snapshot *index.Snapshot) (*model.IndexInfo, error)
	LoadSnapshot(ctx context.Context, name string) (*index.Snapshot, *model.IndexInfo, error)
	CountChunks(ctx context.Context, name string) (int, error)
}

// ChunksDBHandler persists the chunks of embedding index snapshots
type ChunksDBHandler struct {
	db      *helper.Database
	indexes *IndexesDBHandler
}

// NewChunksDBHandler creates a new chunks database handler.
// The chunks table references the index registry, so indexes must be initialized.
// If force is true, it will reload the SQL functions even if they already exist.
func NewChunksDBHandler(db *helper.Database, indexes *IndexesDBHandler, force bool) (*ChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if indexes == nil {
		return nil, helper.NewError("indexes handler validation", fmt.Errorf("indexes handler is nil"))
	}

	chunksDbHandler := &ChunksDBHandler{
		db:      db,
		indexes: indexes,
	}

	err := loadSql.LoadChunksSql(chunksDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load chunks sql", err)
	}

	err = chunksDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ChunksDBHandler")

	return chunksDbHandler, nil
}

// CreateTable creates the 'index_chunks' table if it does not exist.
func (h *ChunksDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_index_chunks();`)
	if err != nil {
		return helper.NewError("init index_chunks", err)
	}

	h.db.Logger.Info("Checked/created table index_chunks")

	return nil
}

// SaveSnapshot replaces the stored chunks of the named index with the snapshot.
// Registry entry and chunks are written in one transaction, readers of the
// store see either the previous or the new snapshot.
func (h *ChunksDBHandler) SaveSnapshot(ctx context.Context, name string, snapshot *index.Snapshot) (*model.IndexInfo, error) {
	if name == "" {
		return nil, model.NewEmptyInputError("index name")
	}
	if snapshot == nil {
		return nil, model.NewEmptyInputError("snapshot")
	}

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return nil, helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `SELECT delete_index_chunks($1)`, name)
	if err != nil {
		return nil, helper.NewError("delete chunks", err)
	}

	info, err := upsertIndex(ctx, tx, &model.IndexInfo{
		Name:           name,
		EmbeddingModel: snapshot.Model(),
		Dimension:      snapshot.Dimension(),
		Metric:         string(snapshot.Metric()),
		Version:        snapshot.Version(),
		ChunkCount:     snapshot.Len(),
		BuiltAt:        snapshot.BuiltAt(),
	})
	if err != nil {
		return nil, helper.NewError("upsert index", err)
	}

	for position, chunk := range snapshot.Chunks() {
		err = insertChunk(ctx, tx, name, position, chunk)
		if err != nil {
			return nil, helper.NewError(fmt.Sprintf("insert chunk %d", position), err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return nil, helper.NewError("commit", err)
	}

	h.db.Logger.Info("Saved index snapshot", "index", name, "chunks", info.ChunkCount, "model", info.EmbeddingModel)

	return info, nil
}

func insertChunk(ctx context.Context, tx *sql.Tx, name string, position int, chunk *model.Chunk) error {
	documentID := uuid.NullUUID{UUID: chunk.Source.DocumentID, Valid: chunk.Source.DocumentID != uuid.Nil}

	_, err := tx.ExecContext(
		ctx,
		`SELECT insert_index_chunk($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		name,
		position,
		chunk.ID,
		documentID,
		chunk.Source.Document,
		chunk.Source.Company,
		chunk.Source.Page,
		chunk.Source.NodeID,
		chunk.Text,
		pgvector.NewVector(chunk.Embedding),
		chunk.ChunkIndex,
		chunk.TokenOffset,
		chunk.TokenCount,
		chunk.Overlap,
		chunk.Metadata,
	)
	return err
}

// LoadSnapshot reads the named index back into a snapshot.
// A missing index or chunks that disagree with the registry entry are index errors.
func (h *ChunksDBHandler) LoadSnapshot(ctx context.Context, name string) (*index.Snapshot, *model.IndexInfo, error) {
	info, err := h.indexes.SelectIndex(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_index_chunks($1)`, name)
	if err != nil {
		return nil, nil, helper.NewError("query", err)
	}
	defer rows.Close()

	chunks := []*model.Chunk{}
	for rows.Next() {
		chunk := &model.Chunk{}
		var documentID uuid.NullUUID
		var embedding pgvector.Vector
		err := rows.Scan(
			&chunk.ID,
			&documentID,
			&chunk.Source.Document,
			&chunk.Source.Company,
			&chunk.Source.Page,
			&chunk.Source.NodeID,
			&chunk.Text,
			&embedding,
			&chunk.ChunkIndex,
			&chunk.TokenOffset,
			&chunk.TokenCount,
			&chunk.Overlap,
			&chunk.Metadata,
		)
		if err != nil {
			return nil, nil, helper.NewError("scan", err)
		}
		if documentID.Valid {
			chunk.Source.DocumentID = documentID.UUID
		}
		chunk.Embedding = embedding.Slice()
		if len(chunk.Embedding) != info.Dimension {
			return nil, nil, model.NewIndexError(fmt.Sprintf("index %s is corrupt", name), model.NewEmbeddingMismatchError("chunk %s has %d dimensions, registry has %d", chunk.ID, len(chunk.Embedding), info.Dimension))
		}
		chunks = append(chunks, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, nil, helper.NewError("rows error", err)
	}

	if len(chunks) != info.ChunkCount {
		return nil, nil, model.NewIndexError(fmt.Sprintf("index %s is corrupt: registry has %d chunks, store has %d", name, info.ChunkCount, len(chunks)), nil)
	}

	metric, err := index.ParseMetric(info.Metric)
	if err != nil {
		return nil, nil, model.NewIndexError(fmt.Sprintf("index %s is corrupt", name), err)
	}

	snapshot, err := index.NewSnapshot(info.EmbeddingModel, metric, chunks)
	if err != nil {
		return nil, nil, model.NewIndexError(fmt.Sprintf("index %s is corrupt", name), err)
	}

	return snapshot, info, nil
}

// CountChunks returns the number of stored chunks of the named index.
func (h *ChunksDBHandler) CountChunks(ctx context.Context, name string) (int, error) {
	var count int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT count_index_chunks($1)`, name).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

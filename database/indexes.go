package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	loadSql "github.com/siherrmann/graphrag/sql"
)

// IndexesDBHandlerFunctions defines the interface for index registry operations.
type IndexesDBHandlerFunctions interface {
	SelectIndex(ctx context.Context, name string) (*model.IndexInfo, error)
	SelectAllIndexes(ctx context.Context) ([]*model.IndexInfo, error)
	DeleteIndex(ctx context.Context, name string) error
}

// IndexesDBHandler handles the registry of persisted embedding indexes
type IndexesDBHandler struct {
	db *helper.Database
}

// NewIndexesDBHandler creates a new index registry handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewIndexesDBHandler(db *helper.Database, force bool) (*IndexesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	indexesDbHandler := &IndexesDBHandler{
		db: db,
	}

	err := loadSql.LoadIndexesSql(indexesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load indexes sql", err)
	}

	err = indexesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized IndexesDBHandler")

	return indexesDbHandler, nil
}

// CreateTable creates the 'embedding_indexes' table if it does not exist.
func (h *IndexesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_embedding_indexes();`)
	if err != nil {
		return helper.NewError("init embedding_indexes", err)
	}

	h.db.Logger.Info("Checked/created table embedding_indexes")

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIndexInfo(row rowScanner) (*model.IndexInfo, error) {
	info := &model.IndexInfo{}
	var version int64
	err := row.Scan(
		&info.Name,
		&info.EmbeddingModel,
		&info.Dimension,
		&info.Metric,
		&version,
		&info.ChunkCount,
		&info.BuiltAt,
		&info.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	info.Version = uint64(version)
	return info, nil
}

// upsertIndex writes the registry entry of an index inside tx.
func upsertIndex(ctx context.Context, tx *sql.Tx, info *model.IndexInfo) (*model.IndexInfo, error) {
	row := tx.QueryRowContext(
		ctx,
		`SELECT * FROM upsert_embedding_index($1, $2, $3, $4, $5, $6, $7)`,
		info.Name,
		info.EmbeddingModel,
		info.Dimension,
		info.Metric,
		int64(info.Version),
		info.ChunkCount,
		info.BuiltAt,
	)

	stored, err := scanIndexInfo(row)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}
	return stored, nil
}

// SelectIndex returns the registry entry of an index.
// A missing index is an index error.
func (h *IndexesDBHandler) SelectIndex(ctx context.Context, name string) (*model.IndexInfo, error) {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_embedding_index($1)`,
		name,
	)

	info, err := scanIndexInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewIndexError(fmt.Sprintf("index %s is not stored", name), err)
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return info, nil
}

// SelectAllIndexes returns all registry entries ordered by name.
func (h *IndexesDBHandler) SelectAllIndexes(ctx context.Context) ([]*model.IndexInfo, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_all_embedding_indexes()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var infos []*model.IndexInfo
	for rows.Next() {
		info, err := scanIndexInfo(rows)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		infos = append(infos, info)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return infos, nil
}

// DeleteIndex deletes an index together with its chunks.
func (h *IndexesDBHandler) DeleteIndex(ctx context.Context, name string) error {
	_, err := h.db.Instance.ExecContext(
		ctx,
		`SELECT delete_embedding_index($1)`,
		name,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

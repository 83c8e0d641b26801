package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	loadSql "github.com/siherrmann/graphrag/sql"
)

// DocumentsDBHandlerFunctions defines the interface for Documents database operations.
type DocumentsDBHandlerFunctions interface {
	UpsertDocument(ctx context.Context, doc *model.Document) error
	SelectDocument(ctx context.Context, id uuid.UUID) (*model.Document, error)
	SelectAllDocuments(ctx context.Context) ([]*model.Document, error)
	SelectDocumentsByCompany(ctx context.Context, company string) ([]*model.Document, error)
	SearchDocuments(ctx context.Context, searchTerm string, limit int) ([]*model.Document, error)
	DeleteDocument(ctx context.Context, id uuid.UUID) error
}

// DocumentsDBHandler handles document-related database operations
type DocumentsDBHandler struct {
	db *helper.Database
}

// NewDocumentsDBHandler creates a new documents database handler.
// It initializes the database connection and loads document-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewDocumentsDBHandler(db *helper.Database, force bool) (*DocumentsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	documentsDbHandler := &DocumentsDBHandler{
		db: db,
	}

	err := loadSql.LoadDocumentsSql(documentsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load documents sql", err)
	}

	err = documentsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized DocumentsDBHandler")

	return documentsDbHandler, nil
}

// CreateTable creates the 'documents' table in the database.
// If the table already exists, it does not create it again.
func (h *DocumentsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_documents();`)
	if err != nil {
		return helper.NewError("init documents", err)
	}

	h.db.Logger.Info("Checked/created table documents")

	return nil
}

func scanDocument(row rowScanner) (*model.Document, error) {
	doc := &model.Document{}
	err := row.Scan(
		&doc.ID,
		&doc.Title,
		&doc.Source,
		&doc.Company,
		&doc.FileType,
		&doc.Metadata,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// UpsertDocument inserts a document or updates the one with the same id.
// The stored values, including timestamps, are written back to doc.
func (h *DocumentsDBHandler) UpsertDocument(ctx context.Context, doc *model.Document) error {
	if doc == nil {
		return model.NewEmptyInputError("document")
	}
	if doc.ID == uuid.Nil {
		doc.ID = model.NewDocumentID(doc.Source)
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM upsert_document($1, $2, $3, $4, $5, $6)`,
		doc.ID,
		doc.Title,
		doc.Source,
		doc.Company,
		doc.FileType,
		doc.Metadata,
	)

	stored, err := scanDocument(row)
	if err != nil {
		return helper.NewError("scan", err)
	}

	pages := doc.Pages
	*doc = *stored
	doc.Pages = pages

	return nil
}

// SelectDocument retrieves a document by id.
// A missing document is an input error.
func (h *DocumentsDBHandler) SelectDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_document($1)`,
		id,
	)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewInputError("document %s not found", id)
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return doc, nil
}

// SelectAllDocuments retrieves all documents ordered by source.
func (h *DocumentsDBHandler) SelectAllDocuments(ctx context.Context) ([]*model.Document, error) {
	return h.queryDocuments(ctx, `SELECT * FROM select_all_documents()`)
}

// SelectDocumentsByCompany retrieves the documents of a company, case-insensitively.
func (h *DocumentsDBHandler) SelectDocumentsByCompany(ctx context.Context, company string) ([]*model.Document, error) {
	return h.queryDocuments(ctx, `SELECT * FROM select_documents_by_company($1)`, company)
}

// SearchDocuments searches documents by title or company.
func (h *DocumentsDBHandler) SearchDocuments(ctx context.Context, searchTerm string, limit int) ([]*model.Document, error) {
	return h.queryDocuments(ctx, `SELECT * FROM search_documents($1, $2)`, searchTerm, limit)
}

func (h *DocumentsDBHandler) queryDocuments(ctx context.Context, query string, args ...any) ([]*model.Document, error) {
	rows, err := h.db.Instance.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var documents []*model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		documents = append(documents, doc)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return documents, nil
}

// DeleteDocument deletes a document by id
func (h *DocumentsDBHandler) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	_, err := h.db.Instance.ExecContext(
		ctx,
		`SELECT delete_document($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

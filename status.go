package graphrag

import (
	"context"
	"time"

	"github.com/siherrmann/graphrag/core/index"
	"github.com/siherrmann/graphrag/corpus"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// IndexStatus describes an in-memory index.
type IndexStatus struct {
	Name      string    `json:"name"`
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	Chunks    int       `json:"chunks"`
	Version   uint64    `json:"version"`
	BuiltAt   time.Time `json:"built_at"`
}

// Status is the state of the analyzer.
type Status struct {
	AIEnabled       bool               `json:"ai_enabled"`
	TotalDocuments  int                `json:"total_documents"`
	CompaniesLoaded []string           `json:"companies_loaded"`
	PDFDirectory    string             `json:"pdf_directory"`
	GraphNodes      int                `json:"graph_nodes"`
	GraphEdges      int                `json:"graph_edges"`
	Indexes         []IndexStatus      `json:"indexes"`
	StoreEnabled    bool               `json:"store_enabled"`
	StoredIndexes   []*model.IndexInfo `json:"stored_indexes,omitempty"`
	StoredDocuments int                `json:"stored_documents,omitempty"`
}

// Status reports the loaded corpus, graph and indexes.
func (a *Analyzer) Status(ctx context.Context) (*Status, error) {
	status := &Status{
		AIEnabled:       a.aiEnabled,
		CompaniesLoaded: []string{},
		PDFDirectory:    a.config.Corpus.PDFDir,
		StoreEnabled:    a.chunkStore != nil,
	}

	if c := a.Corpus(); c != nil {
		status.TotalDocuments = c.Len()
		status.CompaniesLoaded = c.Companies()
	}
	if g := a.Graph(); g != nil {
		status.GraphNodes = g.NodeCount()
		status.GraphEdges = g.EdgeCount()
	}

	for _, idx := range []*index.Index{a.documents, a.nodes} {
		s := idx.Snapshot()
		status.Indexes = append(status.Indexes, IndexStatus{
			Name:      idx.Name(),
			Model:     s.Model(),
			Dimension: s.Dimension(),
			Chunks:    s.Len(),
			Version:   s.Version(),
			BuiltAt:   s.BuiltAt(),
		})
	}

	if a.indexStore != nil {
		stored, err := a.indexStore.SelectAllIndexes(ctx)
		if err != nil {
			return nil, helper.NewError("select stored indexes", err)
		}
		status.StoredIndexes = stored

		documents, err := a.documentsDB.SelectAllDocuments(ctx)
		if err != nil {
			return nil, helper.NewError("select stored documents", err)
		}
		status.StoredDocuments = len(documents)
	}

	return status, nil
}

// SearchCompanies returns the companies whose name contains query, ignoring case.
// An empty query returns all companies.
func (a *Analyzer) SearchCompanies(query string) []corpus.CompanyDocuments {
	c := a.Corpus()
	if c == nil {
		return []corpus.CompanyDocuments{}
	}
	return c.SearchCompanies(query)
}

// CompanyInfo returns the documents of a company.
func (a *Analyzer) CompanyInfo(name string) (*corpus.CompanyInfo, error) {
	c := a.Corpus()
	if c == nil {
		return nil, model.NewIndexError("no documents ingested", nil)
	}
	return c.CompanyInfo(name)
}

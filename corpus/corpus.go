package corpus

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/siherrmann/graphrag/core/pipeline"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// Corpus is the set of extracted documents of a directory, grouped by company.
// It is immutable after ingestion.
type Corpus struct {
	dir       string
	documents []*model.Document
	byCompany map[string][]*model.Document
	skipped   []string
}

// CompanyDocuments is a company together with its document names.
type CompanyDocuments struct {
	Company        string   `json:"company"`
	Documents      []string `json:"documents"`
	TotalDocuments int      `json:"total_docs"`
}

// CompanyInfo describes the documents of one company.
type CompanyInfo struct {
	Company        string   `json:"company"`
	TotalDocuments int      `json:"total_documents"`
	Documents      []string `json:"documents"`
	FileTypes      []string `json:"file_types"`
}

// NewCorpus groups documents by company. Documents are ordered by source path.
func NewCorpus(dir string, documents []*model.Document, skipped []string) *Corpus {
	docs := make([]*model.Document, len(documents))
	copy(docs, documents)
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Source < docs[j].Source
	})

	byCompany := map[string][]*model.Document{}
	for _, d := range docs {
		byCompany[d.Company] = append(byCompany[d.Company], d)
	}

	return &Corpus{
		dir:       dir,
		documents: docs,
		byCompany: byCompany,
		skipped:   skipped,
	}
}

// Dir returns the ingested directory.
func (c *Corpus) Dir() string {
	return c.dir
}

// Len returns the number of documents.
func (c *Corpus) Len() int {
	return len(c.documents)
}

// Documents returns the documents ordered by source path.
func (c *Corpus) Documents() []*model.Document {
	docs := make([]*model.Document, len(c.documents))
	copy(docs, c.documents)
	return docs
}

// Skipped returns the files that could not be extracted.
func (c *Corpus) Skipped() []string {
	return append([]string(nil), c.skipped...)
}

// Companies returns the sorted company names.
func (c *Corpus) Companies() []string {
	companies := make([]string, 0, len(c.byCompany))
	for company := range c.byCompany {
		companies = append(companies, company)
	}
	sort.Strings(companies)
	return companies
}

// SearchCompanies returns the companies whose name contains the query, case insensitive.
// An empty query matches every company.
func (c *Corpus) SearchCompanies(query string) []CompanyDocuments {
	query = strings.ToLower(strings.TrimSpace(query))
	results := []CompanyDocuments{}
	for _, company := range c.Companies() {
		if !strings.Contains(strings.ToLower(company), query) {
			continue
		}
		names := documentNames(c.byCompany[company])
		results = append(results, CompanyDocuments{
			Company:        company,
			Documents:      names,
			TotalDocuments: len(names),
		})
	}
	return results
}

// CompanyInfo returns the documents and file types of a company.
// The name is matched case insensitive, unknown companies are an input error.
func (c *Corpus) CompanyInfo(name string) (*CompanyInfo, error) {
	for _, company := range c.Companies() {
		if !strings.EqualFold(company, strings.TrimSpace(name)) {
			continue
		}

		docs := c.byCompany[company]
		types := map[string]bool{}
		for _, d := range docs {
			types[d.FileType] = true
		}
		fileTypes := make([]string, 0, len(types))
		for t := range types {
			fileTypes = append(fileTypes, t)
		}
		sort.Strings(fileTypes)

		return &CompanyInfo{
			Company:        company,
			TotalDocuments: len(docs),
			Documents:      documentNames(docs),
			FileTypes:      fileTypes,
		}, nil
	}
	return nil, model.NewInputError("company %s not found", name)
}

// Chunks chunks and embeds every page of every document.
// Chunks reference their document, company and page.
func (c *Corpus) Chunks(ctx context.Context, p *pipeline.Pipeline) ([]*model.Chunk, error) {
	chunks := []*model.Chunk{}
	for _, d := range c.documents {
		for _, page := range d.Pages {
			source := model.SourceRef{
				DocumentID: d.ID,
				Document:   filepath.Base(d.Source),
				Company:    d.Company,
				Page:       page.Number,
			}
			pageChunks, err := p.Process(ctx, page.Text, source)
			if err != nil {
				if model.KindOf(err) == model.KindEmptyInput {
					continue
				}
				return nil, helper.NewError("process "+source.String(), err)
			}
			chunks = append(chunks, pageChunks...)
		}
	}
	return chunks, nil
}

func documentNames(docs []*model.Document) []string {
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, filepath.Base(d.Source))
	}
	return names
}

// exists reports if dir is an existing directory.
func exists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

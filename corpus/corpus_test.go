package corpus

import (
	"context"
	"testing"

	"github.com/siherrmann/graphrag/core/pipeline"
	"github.com/siherrmann/graphrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCorpus() *Corpus {
	newDoc := func(path string, company string, pages ...string) *model.Document {
		doc := model.NewDocument(path, company, nil)
		for i, text := range pages {
			doc.Pages = append(doc.Pages, model.Page{Number: i + 1, Text: text})
		}
		return doc
	}

	return NewCorpus("data", []*model.Document{
		newDoc("data/talan_2024.pdf", "Talan", "Talan grows in data consulting.", "Talan opens an office."),
		newDoc("data/accenture_cloud.pdf", "Accenture", "Accenture is cloud first."),
		newDoc("data/talan_notes.txt", "Talan", "Talan notes."),
	}, nil)
}

func TestCorpusCompanies(t *testing.T) {
	c := testCorpus()

	t.Run("Documents are ordered by source", func(t *testing.T) {
		docs := c.Documents()
		require.Len(t, docs, 3)
		assert.Equal(t, "data/accenture_cloud.pdf", docs[0].Source)
		assert.Equal(t, "data/talan_notes.txt", docs[2].Source)
	})

	t.Run("Search is case insensitive", func(t *testing.T) {
		results := c.SearchCompanies("TAL")
		require.Len(t, results, 1)
		assert.Equal(t, "Talan", results[0].Company)
		assert.Equal(t, 2, results[0].TotalDocuments)
		assert.Equal(t, []string{"talan_2024.pdf", "talan_notes.txt"}, results[0].Documents)
	})

	t.Run("Empty search matches every company", func(t *testing.T) {
		assert.Len(t, c.SearchCompanies(""), 2)
	})

	t.Run("Search without match", func(t *testing.T) {
		assert.Empty(t, c.SearchCompanies("wavestone"))
	})

	t.Run("Valid company info", func(t *testing.T) {
		info, err := c.CompanyInfo("talan")
		require.NoError(t, err)
		assert.Equal(t, "Talan", info.Company)
		assert.Equal(t, 2, info.TotalDocuments)
		assert.Equal(t, []string{"pdf", "txt"}, info.FileTypes)
	})

	t.Run("Invalid unknown company", func(t *testing.T) {
		_, err := c.CompanyInfo("Wavestone")
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrInput)
		assert.Contains(t, err.Error(), "Wavestone")
	})
}

func TestCorpusChunks(t *testing.T) {
	p := pipeline.NewPipeline(pipeline.BoundaryChunker(50, 5), pipeline.HashEmbedder(64))

	chunks, err := testCorpus().Chunks(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, chunks, 4, "Expected one chunk per short page")

	first := chunks[0]
	assert.Equal(t, "accenture_cloud.pdf", first.Source.Document)
	assert.Equal(t, "Accenture", first.Source.Company)
	assert.Equal(t, 1, first.Source.Page)
	assert.Len(t, first.Embedding, 64)
	assert.Equal(t, 2, chunks[2].Source.Page)
	assert.NotEqual(t, chunks[1].ID, chunks[2].ID)
}

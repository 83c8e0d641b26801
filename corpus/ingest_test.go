package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/siherrmann/graphrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePDFExtractor reads files as text and fails for names containing "corrupt".
var fakePDFExtractor = ExtractorFunc(func(ctx context.Context, path string) ([]model.Page, error) {
	if strings.Contains(path, "corrupt") {
		return nil, model.NewExtractionError(path, errors.New("malformed xref table"))
	}
	pages, err := TextExtractor{}.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	// Form feeds separate pages.
	var split []model.Page
	for i, text := range strings.Split(pages[0].Text, "\f") {
		split = append(split, model.Page{Number: i + 1, Text: strings.TrimSpace(text)})
	}
	return split, nil
})

func writeFiles(t *testing.T, files map[string]string) string {
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestIngest(t *testing.T) {
	t.Run("Valid ingestion skips corrupt files", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{
			"talan_2024.pdf":        "Talan grows in data.\fTalan opens an office in Montreal.",
			"accenture_cloud.pdf":   "Accenture cloud first.",
			"corrupt_file.pdf":      "unreadable",
			"notes.md":              "ignored",
			"capgemini_results.PDF": "Capgemini results.",
		})
		ingester := NewIngester(2, nil)
		ingester.SetExtractor(".pdf", fakePDFExtractor)

		corpus, err := ingester.Ingest(context.Background(), dir)
		require.NoError(t, err, "Expected a corrupt file not to abort the ingestion")
		assert.Equal(t, 3, corpus.Len())
		assert.Equal(t, []string{"corrupt_file.pdf"}, corpus.Skipped())
		assert.Equal(t, []string{"Accenture", "Capgemini", "Talan"}, corpus.Companies())
		assert.Equal(t, dir, corpus.Dir())

		docs := corpus.Documents()
		assert.Equal(t, "accenture_cloud", docs[0].Title)
		talan := docs[2]
		require.Len(t, talan.Pages, 2)
		assert.Equal(t, 2, talan.Pages[1].Number)
		assert.Equal(t, "Talan opens an office in Montreal.", talan.Pages[1].Text)
	})

	t.Run("Files without text are skipped", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"empty.pdf": "   ", "full.pdf": "content"})
		ingester := NewIngester(1, nil)
		ingester.SetExtractor(".pdf", TextExtractor{})

		corpus, err := ingester.Ingest(context.Background(), dir)
		require.NoError(t, err)
		assert.Equal(t, 1, corpus.Len())
		assert.Equal(t, []string{"empty.pdf"}, corpus.Skipped())
	})

	t.Run("Invalid PDF fails extraction", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"broken.pdf": "this is not a pdf"})

		corpus, err := NewIngester(1, nil).Ingest(context.Background(), dir)
		require.NoError(t, err)
		assert.Equal(t, 0, corpus.Len())
		assert.Equal(t, []string{"broken.pdf"}, corpus.Skipped())
	})

	t.Run("Invalid missing directory", func(t *testing.T) {
		_, err := NewIngester(1, nil).Ingest(context.Background(), filepath.Join(t.TempDir(), "missing"))
		assert.ErrorIs(t, err, model.ErrInput)
	})

	t.Run("Cancelled context aborts", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"a.pdf": "a"})
		ingester := NewIngester(1, nil)
		ingester.SetExtractor(".pdf", ExtractorFunc(func(ctx context.Context, path string) ([]model.Page, error) {
			return nil, ctx.Err()
		}))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := ingester.Ingest(ctx, dir)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPDFExtractor(t *testing.T) {
	dir := writeFiles(t, map[string]string{"broken.pdf": "%PDF-1.4 garbage"})

	_, err := PDFExtractor{}.Extract(context.Background(), filepath.Join(dir, "broken.pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrExtraction)
}

package corpus

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	"golang.org/x/sync/errgroup"
)

// Ingester extracts the documents of a directory concurrently.
type Ingester struct {
	extractors map[string]Extractor
	workers    int
	log        *slog.Logger
}

// NewIngester creates an ingester reading PDF files with at most workers concurrent extractions.
func NewIngester(workers int, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 4
	}

	return &Ingester{
		extractors: map[string]Extractor{".pdf": PDFExtractor{}},
		workers:    workers,
		log:        logger,
	}
}

// SetExtractor registers the extractor for a file extension like ".txt".
func (i *Ingester) SetExtractor(ext string, extractor Extractor) {
	i.extractors[strings.ToLower(ext)] = extractor
}

// Ingest extracts every supported file of dir in name order.
// Files failing extraction are logged and skipped, they never abort the ingestion.
func (i *Ingester) Ingest(ctx context.Context, dir string) (*Corpus, error) {
	if !exists(dir) {
		return nil, model.NewInputError("document directory %s does not exist", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, helper.NewError("read document directory", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := i.extractors[strings.ToLower(filepath.Ext(e.Name()))]; ok {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	// Every file writes to its own slot so documents stay in name order.
	documents := make([]*model.Document, len(paths))
	failures := make([]error, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.workers)
	for n, path := range paths {
		g.Go(func() error {
			extractor := i.extractors[strings.ToLower(filepath.Ext(path))]
			pages, err := extractor.Extract(gctx, path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failures[n] = err
				return nil
			}
			if len(pages) == 0 {
				failures[n] = model.NewExtractionError(path, errNoText)
				return nil
			}

			doc := model.NewDocument(path, CompanyFromFilename(path), model.Metadata{"pages": len(pages)})
			doc.Pages = pages
			documents[n] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, helper.NewError("extract documents", err)
	}

	var extracted []*model.Document
	var skipped []string
	for n, doc := range documents {
		if failures[n] != nil {
			skipped = append(skipped, filepath.Base(paths[n]))
			i.log.Warn("Skipped document", slog.String("file", paths[n]), slog.String("error", failures[n].Error()))
			continue
		}
		extracted = append(extracted, doc)
	}

	corpus := NewCorpus(dir, extracted, skipped)
	i.log.Info("Ingested documents", slog.String("dir", dir), slog.Int("documents", corpus.Len()), slog.Int("skipped", len(skipped)), slog.Int("companies", len(corpus.Companies())))
	return corpus, nil
}

var errNoText = errors.New("no text found")

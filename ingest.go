package graphrag

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/siherrmann/graphrag/core/graph"
	"github.com/siherrmann/graphrag/core/index"
	"github.com/siherrmann/graphrag/corpus"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// IngestReport summarizes a document ingestion.
type IngestReport struct {
	Documents    int      `json:"documents"`
	Skipped      []string `json:"skipped,omitempty"`
	Companies    []string `json:"companies"`
	Chunks       int      `json:"chunks"`
	Restored     bool     `json:"restored"`
	IndexVersion uint64   `json:"index_version"`
}

// GraphReport summarizes a knowledge graph load.
type GraphReport struct {
	Nodes          int    `json:"nodes"`
	Edges          int    `json:"edges"`
	SkippedEdges   int    `json:"skipped_edges"`
	DuplicateNodes int    `json:"duplicate_nodes"`
	Chunks         int    `json:"chunks"`
	Restored       bool   `json:"restored"`
	IndexVersion   uint64 `json:"index_version"`
}

// IngestDocuments extracts the configured document directory and builds the
// documents index. With a store, a stored index built by the same embedding
// model over the same documents is reused unless rebuild is set, a new index
// is saved. Analyses keep using the previous index until the new one is swapped in.
func (a *Analyzer) IngestDocuments(ctx context.Context, rebuild bool) (*IngestReport, error) {
	c, err := a.LoadCorpus(ctx)
	if err != nil {
		return nil, err
	}

	report := &IngestReport{
		Documents: c.Len(),
		Skipped:   c.Skipped(),
		Companies: c.Companies(),
	}

	if a.documentsDB != nil {
		for _, doc := range c.Documents() {
			err := a.documentsDB.UpsertDocument(ctx, doc)
			if err != nil {
				return nil, helper.NewError("register document "+doc.Title, err)
			}
		}
	}

	if a.pipeline == nil {
		a.log.Warn("Skipped documents index, no embedding model available")
		return report, nil
	}

	expected := map[string]string{}
	for _, doc := range c.Documents() {
		text := doc.Text()
		if strings.TrimSpace(text) != "" {
			expected[filepath.Base(doc.Source)] = model.ContentHash(text)
		}
	}
	documentKey := func(s model.SourceRef) string { return s.Document }

	built, restored, err := a.buildIndex(ctx, a.documents, rebuild, expected, documentKey, func(ctx context.Context) ([]*model.Chunk, error) {
		return c.Chunks(ctx, a.pipeline)
	})
	if err != nil {
		return nil, err
	}
	_, err = a.documents.Swap(built)
	if err != nil {
		return nil, model.NewIndexError("publish index "+a.documents.Name(), err)
	}

	snapshot := a.documents.Snapshot()
	report.Chunks = snapshot.Len()
	report.IndexVersion = snapshot.Version()
	report.Restored = restored

	a.log.Info("Ingested documents", slog.Int("documents", report.Documents), slog.Int("companies", len(report.Companies)), slog.Int("chunks", report.Chunks), slog.Bool("restored", restored))

	return report, nil
}

// LoadCorpus extracts the configured document directory without indexing it.
// It is enough for browsing companies.
func (a *Analyzer) LoadCorpus(ctx context.Context) (*corpus.Corpus, error) {
	c, err := a.ingester.Ingest(ctx, a.config.Corpus.PDFDir)
	if err != nil {
		return nil, helper.NewError("ingest documents", err)
	}

	a.mu.Lock()
	a.corpus = c
	a.mu.Unlock()
	return c, nil
}

// LoadGraph loads the knowledge graph file and builds the graph index over
// the node texts. An empty path uses the configured one.
func (a *Analyzer) LoadGraph(ctx context.Context, path string, rebuild bool) (*GraphReport, error) {
	if strings.TrimSpace(path) == "" {
		path = a.config.Graph.Path
	}
	if strings.TrimSpace(path) == "" {
		return nil, model.NewInputError("no knowledge graph path configured")
	}

	g, err := graph.Load(path, a.config.Graph.Directed)
	if err != nil {
		return nil, model.NewIndexError("load knowledge graph "+path, err)
	}

	report := &GraphReport{
		Nodes:          g.NodeCount(),
		Edges:          g.EdgeCount(),
		SkippedEdges:   g.SkippedEdges,
		DuplicateNodes: g.DuplicateNodes,
	}
	if g.SkippedEdges > 0 {
		a.log.Warn("Skipped edges to unknown nodes", slog.Int("skipped", g.SkippedEdges))
	}
	if g.DuplicateNodes > 0 {
		a.log.Warn("Merged duplicate node ids, kept the first", slog.Int("duplicates", g.DuplicateNodes))
	}

	if a.pipeline == nil {
		a.graph.set(g)
		a.log.Warn("Skipped graph index, no embedding model available")
		return report, nil
	}

	expected := map[string]string{}
	for _, id := range g.NodeIDs() {
		text := graph.NodeText(g.Node(id))
		if strings.TrimSpace(text) != "" {
			expected[id] = model.ContentHash(text)
		}
	}
	nodeKey := func(s model.SourceRef) string { return s.NodeID }

	built, restored, err := a.buildIndex(ctx, a.nodes, rebuild, expected, nodeKey, func(ctx context.Context) ([]*model.Chunk, error) {
		return g.Chunks(ctx, a.pipeline)
	})
	if err != nil {
		return nil, err
	}

	// Seeds found in the new node index must resolve in the new graph.
	err = a.graph.publish(g, func() error {
		_, err := a.nodes.Swap(built)
		return err
	})
	if err != nil {
		return nil, model.NewIndexError("publish index "+a.nodes.Name(), err)
	}

	snapshot := a.nodes.Snapshot()
	report.Chunks = snapshot.Len()
	report.IndexVersion = snapshot.Version()
	report.Restored = restored

	a.log.Info("Loaded knowledge graph", slog.Int("nodes", report.Nodes), slog.Int("edges", report.Edges), slog.Int("chunks", report.Chunks), slog.Bool("restored", restored))

	return report, nil
}

// buildIndex returns the stored snapshot if it is still current, otherwise
// it builds a new one and saves it. The caller publishes the snapshot.
func (a *Analyzer) buildIndex(ctx context.Context, idx *index.Index, rebuild bool, expected map[string]string, key func(model.SourceRef) string, build func(ctx context.Context) ([]*model.Chunk, error)) (*index.Snapshot, bool, error) {
	if a.chunkStore != nil && !rebuild {
		stored, err := a.restoreIndex(ctx, idx, expected, key)
		if err != nil {
			return nil, false, err
		}
		if stored != nil {
			return stored, true, nil
		}
	}

	built, err := idx.Build(ctx, a.embedder.Model, func(ctx context.Context) ([]*model.Chunk, error) {
		chunks, err := build(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			if c.Metadata == nil {
				c.Metadata = model.Metadata{}
			}
			c.Metadata[model.MetadataContentHash] = expected[key(c.Source)]
		}
		return chunks, nil
	})
	if err != nil {
		return nil, false, model.NewIndexError("build index "+idx.Name(), err)
	}

	if a.chunkStore != nil {
		_, err = a.chunkStore.SaveSnapshot(ctx, idx.Name(), built)
		if err != nil {
			return nil, false, helper.NewError("save index "+idx.Name(), err)
		}
	}

	return built, false, nil
}

// restoreIndex loads the stored snapshot of idx, nil if there is none or
// it is stale.
func (a *Analyzer) restoreIndex(ctx context.Context, idx *index.Index, expected map[string]string, key func(model.SourceRef) string) (*index.Snapshot, error) {
	snapshot, info, err := a.chunkStore.LoadSnapshot(ctx, idx.Name())
	if errors.Is(err, model.ErrIndex) {
		a.log.Info("No usable stored index, building", slog.String("index", idx.Name()), slog.String("reason", err.Error()))
		return nil, nil
	}
	if err != nil {
		return nil, helper.NewError("load index "+idx.Name(), err)
	}

	if info.EmbeddingModel != a.embedder.Model {
		a.log.Warn("Stored index was built by another embedding model, rebuilding", slog.String("index", idx.Name()), slog.String("stored", info.EmbeddingModel), slog.String("current", a.embedder.Model))
		return nil, nil
	}
	if stale := staleSource(snapshot, expected, key); stale != "" {
		a.log.Info("Stored index is stale, rebuilding", slog.String("index", idx.Name()), slog.String("source", stale))
		return nil, nil
	}

	return snapshot, nil
}

// staleSource returns the first source whose stored chunks do not match the
// expected content hash, or that is missing on either side. It returns an
// empty string if the snapshot covers exactly the expected sources.
func staleSource(snapshot *index.Snapshot, expected map[string]string, key func(model.SourceRef) string) string {
	seen := map[string]bool{}
	for _, c := range snapshot.Chunks() {
		k := key(c.Source)
		hash, ok := expected[k]
		if !ok {
			return k
		}
		stored, _ := c.Metadata[model.MetadataContentHash].(string)
		if stored != hash {
			return k
		}
		seen[k] = true
	}
	for k := range expected {
		if !seen[k] {
			return k
		}
	}
	return ""
}

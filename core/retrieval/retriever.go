package retrieval

import (
	"context"
	"log/slog"
	"strings"

	"github.com/siherrmann/graphrag/core/index"
	"github.com/siherrmann/graphrag/core/pipeline"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// Retriever embeds queries and searches an embedding index
type Retriever struct {
	index    *index.Index
	embedder pipeline.Embedder
	maxTopK  int
	policy   helper.RetryPolicy
	log      *slog.Logger
}

// NewRetriever creates a new retriever. maxTopK bounds every request, zero disables the bound.
func NewRetriever(idx *index.Index, embedder pipeline.Embedder, maxTopK int, policy helper.RetryPolicy, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.Retryable == nil {
		policy.Retryable = model.IsTransientModelError
	}

	return &Retriever{
		index:    idx,
		embedder: embedder,
		maxTopK:  maxTopK,
		policy:   policy,
		log:      logger,
	}
}

// Retrieve returns the top k hits for the query, k is clamped to the configured maximum.
// The query must be embedded by the same model that built the index.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]*model.RetrievalHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, model.NewEmptyInputError("query")
	}
	if k <= 0 {
		return nil, model.NewInputError("k must be positive, got %d", k)
	}
	if r.maxTopK > 0 && k > r.maxTopK {
		r.log.Debug("Clamped top k", slog.Int("requested", k), slog.Int("max", r.maxTopK))
		k = r.maxTopK
	}

	// A request works on one snapshot even if the index is swapped meanwhile.
	snapshot := r.index.Snapshot()
	if snapshot.Model() != r.embedder.Model {
		return nil, model.NewEmbeddingMismatchError("index %s was built with %q, queries are embedded with %q", r.index.Name(), snapshot.Model(), r.embedder.Model)
	}
	if snapshot.Len() == 0 {
		r.log.Warn("Searched empty index", slog.String("index", r.index.Name()))
		return []*model.RetrievalHit{}, nil
	}

	vector, err := helper.Retry(ctx, r.policy, func(ctx context.Context) ([]float32, error) {
		return r.embedder.Embed(ctx, query)
	})
	if err != nil {
		return nil, helper.NewError("embed query", err)
	}
	if len(vector) != snapshot.Dimension() {
		return nil, model.NewEmbeddingMismatchError("query embedding has %d dimensions, index %s has %d", len(vector), r.index.Name(), snapshot.Dimension())
	}

	hits, err := snapshot.Search(vector, k)
	if err != nil {
		return nil, helper.NewError("search index", err)
	}

	r.log.Debug("Retrieved hits", slog.String("index", r.index.Name()), slog.Int("k", k), slog.Int("hits", len(hits)), slog.Uint64("version", snapshot.Version()))
	return hits, nil
}

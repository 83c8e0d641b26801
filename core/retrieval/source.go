package retrieval

import (
	"context"

	"github.com/siherrmann/graphrag/model"
)

// Retrievable is a knowledge source the analysis pipeline can retrieve evidence from
type Retrievable interface {
	Mode() model.AnalysisMode
	Retrieve(ctx context.Context, query string, k int) ([]*model.RetrievalHit, error)
}

// DocumentSource retrieves page chunks of the document corpus
type DocumentSource struct {
	retriever *Retriever
}

// NewDocumentSource creates a document corpus source
func NewDocumentSource(retriever *Retriever) *DocumentSource {
	return &DocumentSource{retriever: retriever}
}

func (s *DocumentSource) Mode() model.AnalysisMode {
	return model.AnalysisModeDocuments
}

// Retrieve performs similarity search over document chunks
func (s *DocumentSource) Retrieve(ctx context.Context, query string, k int) ([]*model.RetrievalHit, error) {
	return s.retriever.Retrieve(ctx, query, k)
}

// GraphSource retrieves knowledge graph nodes by their indexed text
type GraphSource struct {
	retriever *Retriever
}

// NewGraphSource creates a knowledge graph source
func NewGraphSource(retriever *Retriever) *GraphSource {
	return &GraphSource{retriever: retriever}
}

func (s *GraphSource) Mode() model.AnalysisMode {
	return model.AnalysisModeGraph
}

// Retrieve performs similarity search over node chunks
func (s *GraphSource) Retrieve(ctx context.Context, query string, k int) ([]*model.RetrievalHit, error) {
	return s.retriever.Retrieve(ctx, query, k)
}

// SeedNodes returns the distinct node ids of the hits in hit order.
func SeedNodes(hits []*model.RetrievalHit) []string {
	seen := map[string]bool{}
	var seeds []string
	for _, h := range hits {
		id := h.Chunk.Source.NodeID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		seeds = append(seeds, id)
	}
	return seeds
}

package pipeline

import (
	"context"

	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// ChunkFunc splits text into chunks attached to the given source
type ChunkFunc func(text string, source model.SourceRef) ([]*model.Chunk, error)

// EmbedFunc is a function that generates embeddings for text
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// EntityExtractFunc extracts named entities from text
type EntityExtractFunc func(ctx context.Context, text string) ([]*model.Entity, error)

// Embedder is an embedding function together with the name of its model.
// Index and query vectors are only comparable if the names match.
type Embedder struct {
	Model string
	Embed EmbedFunc
}

// NewEmbedder names an embedding function
func NewEmbedder(modelName string, embed EmbedFunc) Embedder {
	return Embedder{Model: modelName, Embed: embed}
}

// Pipeline combines chunking and embedding functions
type Pipeline struct {
	Chunker         ChunkFunc
	Embedder        Embedder
	EntityExtractor EntityExtractFunc // Optional
}

// NewPipeline creates a new processing pipeline
func NewPipeline(chunker ChunkFunc, embedder Embedder) *Pipeline {
	return &Pipeline{
		Chunker:  chunker,
		Embedder: embedder,
	}
}

// SetEntityExtractor sets the entity extraction function
func (p *Pipeline) SetEntityExtractor(extractor EntityExtractFunc) {
	p.EntityExtractor = extractor
}

// ProcessingResult contains chunks and optionally extracted entities
type ProcessingResult struct {
	Chunks   []*model.Chunk
	Entities []*model.Entity
}

// Process processes text through the pipeline, returning chunks with embeddings
func (p *Pipeline) Process(ctx context.Context, text string, source model.SourceRef) ([]*model.Chunk, error) {
	result, err := p.ProcessWithExtraction(ctx, text, source)
	if err != nil {
		return nil, err
	}
	return result.Chunks, nil
}

// ProcessWithExtraction processes text and optionally extracts entities per chunk.
// Entity extraction failures are ignored, a chunk without entities is still usable.
func (p *Pipeline) ProcessWithExtraction(ctx context.Context, text string, source model.SourceRef) (*ProcessingResult, error) {
	chunks, err := p.Chunker(text, source)
	if err != nil {
		return nil, err
	}

	var allEntities []*model.Entity
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		embedding, err := p.Embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return nil, helper.NewError("embed chunk", err)
		}
		chunk.Embedding = embedding

		if p.EntityExtractor != nil {
			entities, err := p.EntityExtractor(ctx, chunk.Text)
			if err == nil && len(entities) > 0 {
				names := make([]string, 0, len(entities))
				for _, e := range entities {
					e.Source = chunk.Source
					names = append(names, e.Name)
				}
				if chunk.Metadata == nil {
					chunk.Metadata = model.Metadata{}
				}
				chunk.Metadata["entities"] = names
				allEntities = append(allEntities, entities...)
			}
		}
	}

	return &ProcessingResult{
		Chunks:   chunks,
		Entities: allEntities,
	}, nil
}

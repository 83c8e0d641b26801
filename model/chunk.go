package model

import (
	"fmt"

	"github.com/google/uuid"
)

// SourceRef points a chunk back to where its text came from:
// a document page or a knowledge graph node.
type SourceRef struct {
	DocumentID uuid.UUID `json:"document_id,omitempty"`
	Document   string    `json:"document,omitempty"`
	Company    string    `json:"company,omitempty"`
	Page       int       `json:"page,omitempty"`
	NodeID     string    `json:"node_id,omitempty"`
}

// IsNode reports if the source is a knowledge graph node.
func (s SourceRef) IsNode() bool {
	return s.NodeID != ""
}

func (s SourceRef) String() string {
	if s.IsNode() {
		return "node:" + s.NodeID
	}
	if s.Page > 0 {
		return fmt.Sprintf("%s#page=%d", s.Document, s.Page)
	}
	return s.Document
}

// Chunk is a bounded unit of text prepared for embedding.
// Chunks are immutable once added to an index.
type Chunk struct {
	ID          uuid.UUID `json:"id"`
	Source      SourceRef `json:"source"`
	Text        string    `json:"text"`
	Embedding   []float32 `json:"embedding,omitempty"`
	ChunkIndex  int       `json:"chunk_index"`
	TokenOffset int       `json:"token_offset"`
	TokenCount  int       `json:"token_count"`
	// Overlap is the number of leading tokens shared with the previous chunk.
	Overlap  int      `json:"overlap"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// NewChunkID derives a stable chunk id from its source and position,
// re-ingesting an unchanged corpus yields the same ids.
func NewChunkID(source SourceRef, chunkIndex int) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("graphrag:%s:%d", source.String(), chunkIndex)))
}

// WithSource returns a copy of the chunk attached to the given source.
func (c *Chunk) WithSource(source SourceRef) *Chunk {
	chunk := *c
	chunk.Source = source
	chunk.ID = NewChunkID(source, c.ChunkIndex)
	return &chunk
}

// MetadataContentHash is the chunk metadata key holding the hash of the
// document or node text the chunk was cut from.
const MetadataContentHash = "content_hash"

// ContentHash fingerprints a source text. Equal texts yield equal hashes.
func ContentHash(text string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(text)).String()
}

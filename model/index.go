package model

import "time"

// IndexInfo describes a built embedding index.
type IndexInfo struct {
	Name           string    `json:"name"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimension      int       `json:"dimension"`
	Metric         string    `json:"metric"`
	Version        uint64    `json:"version"`
	ChunkCount     int       `json:"chunk_count"`
	BuiltAt        time.Time `json:"built_at"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

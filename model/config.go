package model

// QueryConfig represents configuration for a single analysis
type QueryConfig struct {
	// Vector search parameters
	TopK int `json:"top_k"`

	// Graph expansion parameters. A nil MaxDepth uses the default,
	// an explicit 0 keeps only the seed nodes.
	MaxDepth *int `json:"max_depth,omitempty"`
	MaxNodes int  `json:"max_nodes"`
	MaxEdges int  `json:"max_edges"`
}

// Depth returns a pointer to d for QueryConfig.MaxDepth.
func Depth(d int) *int {
	return &d
}

// Depth returns the expansion depth, zero if unset.
func (c QueryConfig) Depth() int {
	if c.MaxDepth == nil {
		return 0
	}
	return *c.MaxDepth
}

// DefaultQueryConfig returns the defaults of the original analysis service
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		TopK:     5,
		MaxDepth: Depth(2),
		MaxNodes: 50,
		MaxEdges: 200,
	}
}

// Limits are the global bounds enforced per request, independent of component defaults.
type Limits struct {
	MaxTopK          int `json:"max_top_k"`
	MaxEvidence      int `json:"max_evidence"`
	MaxSubgraphNodes int `json:"max_subgraph_nodes"`
	MaxSubgraphEdges int `json:"max_subgraph_edges"`
}

// DefaultLimits returns sensible global bounds
func DefaultLimits() Limits {
	return Limits{
		MaxTopK:          50,
		MaxEvidence:      20,
		MaxSubgraphNodes: 100,
		MaxSubgraphEdges: 300,
	}
}

// Apply clamps the query configuration to the limits.
// It returns true if any value was lowered.
func (l Limits) Apply(c QueryConfig) (QueryConfig, bool) {
	clamped := false
	clamp := func(v *int, max int) {
		if max > 0 && *v > max {
			*v = max
			clamped = true
		}
	}
	clamp(&c.TopK, l.MaxTopK)
	clamp(&c.MaxNodes, l.MaxSubgraphNodes)
	clamp(&c.MaxEdges, l.MaxSubgraphEdges)
	return c, clamped
}

package model

import (
	"fmt"
	"sort"
)

// GraphNode is a node of the static knowledge graph.
type GraphNode struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Name       string   `json:"name"`
	Attributes Metadata `json:"attributes,omitempty"`
}

// GraphEdge is a relation between two knowledge graph nodes.
type GraphEdge struct {
	Source     string   `json:"source"`
	Target     string   `json:"target"`
	Relation   string   `json:"relation"`
	Attributes Metadata `json:"attributes,omitempty"`
}

// Key identifies the edge within a graph.
func (e *GraphEdge) Key() string {
	return fmt.Sprintf("%s->%s:%s", e.Source, e.Target, e.Relation)
}

// Subgraph is a bounded, possibly truncated extract of the knowledge graph.
// Nodes and edges are unique and ordered by discovery.
type Subgraph struct {
	Nodes []*GraphNode `json:"nodes"`
	Edges []*GraphEdge `json:"edges"`
	// Depth maps node ids to their hop distance from the closest seed.
	Depth     map[string]int `json:"depth"`
	Seeds     []string       `json:"seeds"`
	Truncated bool           `json:"truncated"`
}

// GraphSummary counts the content of a subgraph.
type GraphSummary struct {
	TotalNodes int            `json:"total_nodes"`
	TotalEdges int            `json:"total_edges"`
	NodeTypes  map[string]int `json:"node_types"`
}

// Summary counts nodes, edges and node types.
func (s *Subgraph) Summary() GraphSummary {
	summary := GraphSummary{
		TotalNodes: len(s.Nodes),
		TotalEdges: len(s.Edges),
		NodeTypes:  map[string]int{},
	}
	for _, n := range s.Nodes {
		summary.NodeTypes[n.Type]++
	}
	return summary
}

// NodeIDs returns the node ids in subgraph order.
func (s *Subgraph) NodeIDs() []string {
	ids := make([]string, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

// EdgeKeys returns the edge keys in subgraph order.
func (s *Subgraph) EdgeKeys() []string {
	keys := make([]string, 0, len(s.Edges))
	for _, e := range s.Edges {
		keys = append(keys, e.Key())
	}
	return keys
}

// NodeTypeNames returns the distinct node types, sorted.
func (s GraphSummary) NodeTypeNames() []string {
	types := make([]string, 0, len(s.NodeTypes))
	for t := range s.NodeTypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

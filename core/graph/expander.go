package graph

import (
	"context"
	"log/slog"
	"sort"

	"github.com/siherrmann/graphrag/model"
)

// Expander walks bounded neighborhoods of a knowledge graph
type Expander struct {
	graph *KnowledgeGraph
	log   *slog.Logger
}

// NewExpander creates a new expander for the graph
func NewExpander(g *KnowledgeGraph, logger *slog.Logger) *Expander {
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{graph: g, log: logger}
}

// Expand performs a breadth-first expansion from the seed nodes up to maxDepth hops.
// Nodes of a level are visited in id order, every node is added once and brings
// along its edges to nodes already in the subgraph. Expansion stops as soon as
// another node or edge would exceed maxNodes or maxEdges, the result is then
// marked truncated. Unknown seeds are ignored.
func (e *Expander) Expand(ctx context.Context, seeds []string, maxDepth int, maxNodes int, maxEdges int) (*model.Subgraph, error) {
	if maxDepth < 0 {
		return nil, model.NewInputError("max depth must not be negative, got %d", maxDepth)
	}
	if maxNodes <= 0 {
		return nil, model.NewInputError("max nodes must be positive, got %d", maxNodes)
	}
	if maxEdges < 0 {
		return nil, model.NewInputError("max edges must not be negative, got %d", maxEdges)
	}

	b := &subgraphBuilder{
		graph:    e.graph,
		maxNodes: maxNodes,
		maxEdges: maxEdges,
		visited:  map[string]bool{},
		edgeSeen: map[*model.GraphEdge]bool{},
		sub: &model.Subgraph{
			Nodes: []*model.GraphNode{},
			Edges: []*model.GraphEdge{},
			Depth: map[string]int{},
		},
	}

	frontier := e.validSeeds(seeds)
	b.sub.Seeds = frontier
	for _, id := range frontier {
		if !b.add(id, 0) {
			return e.done(b), nil
		}
	}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var next []string
		for _, id := range frontier {
			for _, neighbor := range e.graph.adjacency[id] {
				if !b.visited[neighbor] {
					next = append(next, neighbor)
				}
			}
		}
		next = sortedUnique(next)

		for _, id := range next {
			if !b.add(id, depth) {
				return e.done(b), nil
			}
		}
		frontier = next
	}

	return e.done(b), nil
}

func (e *Expander) validSeeds(seeds []string) []string {
	var valid []string
	for _, id := range seeds {
		if e.graph.nodes[id] == nil {
			e.log.Warn("Ignored unknown seed node", slog.String("node", id))
			continue
		}
		valid = append(valid, id)
	}
	return sortedUnique(valid)
}

func (e *Expander) done(b *subgraphBuilder) *model.Subgraph {
	if b.sub.Truncated {
		e.log.Warn("Truncated subgraph", slog.Int("nodes", len(b.sub.Nodes)), slog.Int("edges", len(b.sub.Edges)), slog.Int("max_nodes", b.maxNodes), slog.Int("max_edges", b.maxEdges))
	}
	return b.sub
}

type subgraphBuilder struct {
	graph    *KnowledgeGraph
	maxNodes int
	maxEdges int
	visited  map[string]bool
	edgeSeen map[*model.GraphEdge]bool
	sub      *model.Subgraph
}

// add includes a node and its edges to included nodes.
// It returns false once a limit was hit.
func (b *subgraphBuilder) add(id string, depth int) bool {
	if b.visited[id] {
		return true
	}
	if len(b.sub.Nodes) >= b.maxNodes {
		b.sub.Truncated = true
		return false
	}

	b.visited[id] = true
	b.sub.Nodes = append(b.sub.Nodes, b.graph.nodes[id])
	b.sub.Depth[id] = depth

	for _, inc := range b.graph.incident[id] {
		if !b.visited[inc.other] || b.edgeSeen[inc.edge] {
			continue
		}
		if len(b.sub.Edges) >= b.maxEdges {
			b.sub.Truncated = true
			return false
		}
		b.edgeSeen[inc.edge] = true
		b.sub.Edges = append(b.sub.Edges, inc.edge)
	}
	return true
}

// SortedByDepth returns the subgraph nodes ordered by depth, then id.
func SortedByDepth(sub *model.Subgraph) []*model.GraphNode {
	nodes := make([]*model.GraphNode, len(sub.Nodes))
	copy(nodes, sub.Nodes)
	sort.SliceStable(nodes, func(i, j int) bool {
		di, dj := sub.Depth[nodes[i].ID], sub.Depth[nodes[j].ID]
		if di != dj {
			return di < dj
		}
		return nodes[i].ID < nodes[j].ID
	})
	return nodes
}

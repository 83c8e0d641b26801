package graphrag

import (
	"context"
	"log/slog"
	"sync"

	"github.com/siherrmann/graphrag/core/graph"
	"github.com/siherrmann/graphrag/model"
)

// graphHolder expands over the currently loaded knowledge graph.
// Loading a new graph does not affect expansions already running.
type graphHolder struct {
	mu  sync.RWMutex
	g   *graph.KnowledgeGraph
	log *slog.Logger
}

func (h *graphHolder) set(g *graph.KnowledgeGraph) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.g = g
}

// publish sets g and runs swap under the same write lock, so the node index
// and the graph it points into change in one step for readers of the holder.
func (h *graphHolder) publish(g *graph.KnowledgeGraph, swap func() error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := swap(); err != nil {
		return err
	}
	h.g = g
	return nil
}

func (h *graphHolder) get() *graph.KnowledgeGraph {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.g
}

func (h *graphHolder) Expand(ctx context.Context, seeds []string, maxDepth int, maxNodes int, maxEdges int) (*model.Subgraph, error) {
	g := h.get()
	if g == nil {
		return nil, model.NewIndexError("no knowledge graph loaded", nil)
	}
	return graph.NewExpander(g, h.log).Expand(ctx, seeds, maxDepth, maxNodes, maxEdges)
}

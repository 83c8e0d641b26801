package graph

import (
	"context"
	"strings"

	"github.com/siherrmann/graphrag/core/pipeline"
	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// Expand walks the neighborhood of the seeds with a default expander.
func (g *KnowledgeGraph) Expand(ctx context.Context, seeds []string, maxDepth int, maxNodes int, maxEdges int) (*model.Subgraph, error) {
	return NewExpander(g, nil).Expand(ctx, seeds, maxDepth, maxNodes, maxEdges)
}

// Chunks turns the node texts into embedded chunks, in node id order.
// Nodes without text are not indexed but stay traversable.
func (g *KnowledgeGraph) Chunks(ctx context.Context, p *pipeline.Pipeline) ([]*model.Chunk, error) {
	var chunks []*model.Chunk
	for _, id := range g.ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		node := g.nodes[id]
		text := NodeText(node)
		if strings.TrimSpace(text) == "" {
			continue
		}

		nodeChunks, err := p.Process(ctx, text, model.SourceRef{NodeID: id})
		if err != nil {
			return nil, helper.NewError("process node "+id, err)
		}
		for _, c := range nodeChunks {
			if c.Metadata == nil {
				c.Metadata = model.Metadata{}
			}
			c.Metadata["node_type"] = node.Type
			c.Metadata["node_name"] = node.Name
		}
		chunks = append(chunks, nodeChunks...)
	}
	return chunks, nil
}

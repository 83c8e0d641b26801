package graph

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/siherrmann/graphrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEdge struct{ source, target string }

func buildGraph(t *testing.T, nodes []string, edges []testEdge, directed bool) *KnowledgeGraph {
	var b strings.Builder
	b.WriteString(`{"nodes":[`)
	for i, n := range nodes {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"id":%q,"data":{"type":"t%d","name":%q}}`, n, i%3, n)
	}
	b.WriteString(`],"edges":[`)
	for i, e := range edges {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"source":%q,"target":%q,"data":{"relation":"rel"}}`, e.source, e.target)
	}
	b.WriteString(`]}`)

	g, err := Parse(strings.NewReader(b.String()), directed)
	require.NoError(t, err)
	return g
}

// starGraph builds two seeds with ten hubs each and nine leaves per hub,
// 200 nodes are reachable within two hops.
func starGraph(t *testing.T) *KnowledgeGraph {
	nodes := []string{"s1", "s2"}
	var edges []testEdge
	for s := 1; s <= 2; s++ {
		for h := 0; h < 10; h++ {
			hub := fmt.Sprintf("s%d-h%02d", s, h)
			nodes = append(nodes, hub)
			edges = append(edges, testEdge{fmt.Sprintf("s%d", s), hub})
			for l := 0; l < 9; l++ {
				leaf := fmt.Sprintf("%s-l%d", hub, l)
				nodes = append(nodes, leaf)
				edges = append(edges, testEdge{hub, leaf})
			}
		}
	}
	return buildGraph(t, nodes, edges, false)
}

func assertUnique(t *testing.T, sub *model.Subgraph) {
	seen := map[string]bool{}
	for _, n := range sub.Nodes {
		assert.False(t, seen[n.ID], "Expected node %s only once", n.ID)
		seen[n.ID] = true
	}
	for _, e := range sub.Edges {
		assert.True(t, seen[e.Source] && seen[e.Target], "Expected edge %s to connect included nodes", e.Key())
	}
}

func TestExpand(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid expansion up to max depth", func(t *testing.T) {
		g := buildGraph(t, []string{"a", "b", "c", "d", "e"}, []testEdge{{"a", "b"}, {"b", "c"}, {"c", "d"}, {"a", "e"}}, false)

		sub, err := NewExpander(g, nil).Expand(ctx, []string{"a"}, 2, 50, 50)

		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "e", "c"}, sub.NodeIDs(), "Expected breadth first order by id per level")
		assert.Equal(t, map[string]int{"a": 0, "b": 1, "e": 1, "c": 2}, sub.Depth)
		assert.Len(t, sub.Edges, 3)
		assert.False(t, sub.Truncated)
		assertUnique(t, sub)
	})

	t.Run("Depth zero returns only seeds", func(t *testing.T) {
		g := buildGraph(t, []string{"a", "b"}, []testEdge{{"a", "b"}}, false)

		sub, err := NewExpander(g, nil).Expand(ctx, []string{"b", "a"}, 0, 10, 10)

		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, sub.NodeIDs(), "Expected seeds sorted by id")
		assert.Len(t, sub.Edges, 1, "Expected the edge between the seeds")
	})

	t.Run("Cycle through all seeds terminates", func(t *testing.T) {
		g := buildGraph(t, []string{"a", "b", "c"}, []testEdge{{"a", "b"}, {"b", "c"}, {"c", "a"}}, true)

		sub, err := NewExpander(g, nil).Expand(ctx, []string{"a", "b", "c"}, 100, 100, 100)

		require.NoError(t, err)
		assert.Len(t, sub.Nodes, 3)
		assert.Len(t, sub.Edges, 3)
		assertUnique(t, sub)
	})

	t.Run("Disconnected seeds are unioned", func(t *testing.T) {
		g := buildGraph(t, []string{"a", "a1", "x", "x1", "far"}, []testEdge{{"a", "a1"}, {"x", "x1"}, {"x1", "far"}}, false)

		sub, err := NewExpander(g, nil).Expand(ctx, []string{"x", "a"}, 1, 50, 50)

		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "a1", "x", "x1"}, sub.NodeIDs())
		assert.Equal(t, []string{"a", "x"}, sub.Seeds)
	})

	t.Run("Unknown seeds are ignored", func(t *testing.T) {
		g := buildGraph(t, []string{"a"}, nil, false)

		sub, err := NewExpander(g, nil).Expand(ctx, []string{"ghost", "a", "a"}, 2, 10, 10)

		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, sub.NodeIDs())
		assert.Equal(t, []string{"a"}, sub.Seeds)
	})

	t.Run("Directed graph is followed forward only", func(t *testing.T) {
		g := buildGraph(t, []string{"a", "b", "c"}, []testEdge{{"b", "a"}, {"a", "c"}}, true)

		sub, err := NewExpander(g, nil).Expand(ctx, []string{"a"}, 2, 10, 10)

		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c"}, sub.NodeIDs())
	})

	t.Run("Node limit truncates the expansion", func(t *testing.T) {
		g := starGraph(t)

		sub, err := NewExpander(g, nil).Expand(ctx, []string{"s1", "s2"}, 2, 50, 200)

		require.NoError(t, err)
		assert.True(t, sub.Truncated, "Expected truncated result")
		assert.Len(t, sub.Nodes, 50, "Expected exactly max nodes")
		assert.LessOrEqual(t, len(sub.Edges), 200)
		assertUnique(t, sub)
	})

	t.Run("Edge limit truncates the expansion", func(t *testing.T) {
		g := starGraph(t)

		sub, err := NewExpander(g, nil).Expand(ctx, []string{"s1"}, 2, 500, 15)

		require.NoError(t, err)
		assert.True(t, sub.Truncated)
		assert.Len(t, sub.Edges, 15)
		assertUnique(t, sub)
	})

	t.Run("Limit reached exactly is not truncated", func(t *testing.T) {
		g := buildGraph(t, []string{"a", "b"}, []testEdge{{"a", "b"}}, false)

		sub, err := NewExpander(g, nil).Expand(ctx, []string{"a"}, 3, 2, 1)

		require.NoError(t, err)
		assert.False(t, sub.Truncated)
		assert.Len(t, sub.Nodes, 2)
	})

	t.Run("Expansion is deterministic", func(t *testing.T) {
		g := starGraph(t)
		e := NewExpander(g, nil)

		a, err := e.Expand(ctx, []string{"s2", "s1"}, 2, 70, 200)
		require.NoError(t, err)
		b, err := e.Expand(ctx, []string{"s1", "s2"}, 2, 70, 200)
		require.NoError(t, err)

		assert.Equal(t, a.NodeIDs(), b.NodeIDs())
		assert.Equal(t, a.EdgeKeys(), b.EdgeKeys())
	})

	t.Run("Invalid limits", func(t *testing.T) {
		e := NewExpander(buildGraph(t, []string{"a"}, nil, false), nil)

		_, err := e.Expand(ctx, []string{"a"}, -1, 10, 10)
		assert.ErrorIs(t, err, model.ErrInput)

		_, err = e.Expand(ctx, []string{"a"}, 1, 0, 10)
		assert.ErrorIs(t, err, model.ErrInput)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := NewExpander(starGraph(t), nil).Expand(cancelled, []string{"s1"}, 2, 50, 50)

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSortedByDepth(t *testing.T) {
	sub := &model.Subgraph{
		Nodes: []*model.GraphNode{{ID: "c"}, {ID: "a"}, {ID: "b"}},
		Depth: map[string]int{"a": 1, "b": 0, "c": 1},
	}

	nodes := SortedByDepth(sub)

	assert.Equal(t, "b", nodes[0].ID)
	assert.Equal(t, "a", nodes[1].ID)
	assert.Equal(t, "c", nodes[2].ID)
}

package synthesis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/siherrmann/graphrag/core/graph"
	"github.com/siherrmann/graphrag/model"
)

// item is one serialized piece of evidence competing for the context budget.
type item struct {
	label string
	text  string
	cost  int
	// order is the presentation position in the prompt.
	order int

	evidence *model.JudgedEvidence
	node     *model.GraphNode
	edge     *model.GraphEdge
}

func newItem(label string, text string, order int) *item {
	return &item{
		label: label,
		text:  text,
		cost:  len(strings.Fields(label)) + len(strings.Fields(text)),
		order: order,
	}
}

// evidenceItems returns document evidence ordered by priority, highest score first.
// Equal scores keep the judge order.
func evidenceItems(evidence []*model.JudgedEvidence) []*item {
	items := make([]*item, 0, len(evidence))
	for i, e := range evidence {
		label := e.Hit.Chunk.Source.String()
		if e.Hit.Chunk.Source.Company != "" {
			label = fmt.Sprintf("%s (%s)", label, e.Hit.Chunk.Source.Company)
		}
		it := newItem(label, e.Hit.Chunk.Text, i)
		it.evidence = e
		items = append(items, it)
	}

	sort.SliceStable(items, func(a, b int) bool {
		return items[a].evidence.Hit.Score > items[b].evidence.Hit.Score
	})
	return items
}

// nodeItems returns subgraph nodes ordered by priority, nearest to the seeds first.
func nodeItems(sub *model.Subgraph) []*item {
	nodes := graph.SortedByDepth(sub)
	items := make([]*item, 0, len(nodes))
	for i, n := range nodes {
		label := fmt.Sprintf("%s %q (type %s, distance %d)", n.ID, n.Name, n.Type, sub.Depth[n.ID])
		it := newItem(label, graph.NodeText(n), i)
		it.node = n
		items = append(items, it)
	}
	return items
}

// edgeItems returns the subgraph edges between kept nodes.
func edgeItems(sub *model.Subgraph, kept map[string]bool) []*item {
	items := []*item{}
	for i, e := range sub.Edges {
		if !kept[e.Source] || !kept[e.Target] {
			continue
		}
		it := newItem(fmt.Sprintf("%s -[%s]-> %s", e.Source, e.Relation, e.Target), "", i)
		it.edge = e
		items = append(items, it)
	}
	return items
}

// budget counts context words, a limit of zero or less means unlimited.
type budget struct {
	limit int
	used  int
}

func (b *budget) remaining() int {
	return b.limit - b.used
}

// fit keeps items in priority order until the budget is spent and drops the rest.
// The very first item is cut to fit if it alone exceeds the budget.
// Kept items are returned in presentation order.
func (b *budget) fit(items []*item) []*item {
	kept := []*item{}
	for _, it := range items {
		if b.limit > 0 && it.cost > b.remaining() {
			if b.used > 0 || b.remaining() <= len(strings.Fields(it.label)) {
				break
			}
			it = truncate(it, b.remaining())
		}
		kept = append(kept, it)
		b.used += it.cost
	}

	sort.SliceStable(kept, func(a, b int) bool {
		return kept[a].order < kept[b].order
	})
	return kept
}

func truncate(it *item, budget int) *item {
	words := strings.Fields(it.text)
	keep := max(budget-len(strings.Fields(it.label)), 0)
	if keep > len(words) {
		keep = len(words)
	}

	cut := *it
	cut.text = strings.Join(words[:keep], " ")
	cut.cost = len(strings.Fields(it.label)) + keep
	return &cut
}

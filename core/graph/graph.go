package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
)

// textFields are the node attributes that describe a node in natural language.
var textFields = []string{"title", "name", "description", "content", "text"}

type fileGraph struct {
	Nodes []fileNode `json:"nodes"`
	Edges []fileEdge `json:"edges"`
	// node-link data written by networkx uses "links" instead of "edges"
	Links []fileEdge `json:"links"`
}

type fileNode struct {
	ID   any            `json:"id"`
	Data model.Metadata `json:"data"`
}

type fileEdge struct {
	Source any            `json:"source"`
	Target any            `json:"target"`
	Data   model.Metadata `json:"data"`
}

type incidentEdge struct {
	other string
	edge  *model.GraphEdge
}

// KnowledgeGraph is the static, read-only knowledge graph.
// It is safe for concurrent use once loaded.
type KnowledgeGraph struct {
	nodes     map[string]*model.GraphNode
	ids       []string
	edges     []*model.GraphEdge
	adjacency map[string][]string
	incident  map[string][]incidentEdge
	directed  bool
	// SkippedEdges counts edges dropped for pointing to unknown nodes.
	SkippedEdges int
	// DuplicateNodes counts repeated node ids, the first occurrence wins.
	DuplicateNodes int
}

// Load reads a knowledge graph JSON file.
func Load(path string, directed bool) (*KnowledgeGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, helper.NewError("read graph file", err)
	}
	return Parse(bytes.NewReader(data), directed)
}

// Parse decodes a graph of the form
// {"nodes":[{"id":..,"data":{..}}],"edges":[{"source":..,"target":..,"data":{..}}]}.
// Unless directed is set, edges are traversed in both directions.
// A node id listed twice keeps its first attributes.
func Parse(r io.Reader, directed bool) (*KnowledgeGraph, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	var file fileGraph
	if err := decoder.Decode(&file); err != nil {
		return nil, model.NewInputError("decode knowledge graph: %v", err)
	}

	g := &KnowledgeGraph{
		nodes:     make(map[string]*model.GraphNode, len(file.Nodes)),
		adjacency: map[string][]string{},
		incident:  map[string][]incidentEdge{},
		directed:  directed,
	}

	for _, n := range file.Nodes {
		id := idString(n.ID)
		if id == "" {
			return nil, model.NewInputError("knowledge graph node without id")
		}
		if _, ok := g.nodes[id]; ok {
			g.DuplicateNodes++
			continue
		}
		g.nodes[id] = newNode(id, n.Data)
		g.ids = append(g.ids, id)
	}
	sort.Strings(g.ids)

	seen := map[string]bool{}
	for _, e := range append(file.Edges, file.Links...) {
		source, target := idString(e.Source), idString(e.Target)
		if g.nodes[source] == nil || g.nodes[target] == nil {
			g.SkippedEdges++
			continue
		}

		edge := &model.GraphEdge{
			Source:     source,
			Target:     target,
			Relation:   relation(e.Data),
			Attributes: e.Data,
		}
		if seen[edge.Key()] {
			continue
		}
		seen[edge.Key()] = true
		g.edges = append(g.edges, edge)

		g.adjacency[source] = append(g.adjacency[source], target)
		if !directed {
			g.adjacency[target] = append(g.adjacency[target], source)
		}
		g.incident[source] = append(g.incident[source], incidentEdge{other: target, edge: edge})
		if source != target {
			g.incident[target] = append(g.incident[target], incidentEdge{other: source, edge: edge})
		}
	}

	for id, neighbors := range g.adjacency {
		g.adjacency[id] = sortedUnique(neighbors)
	}
	for id, edges := range g.incident {
		sort.SliceStable(edges, func(i, j int) bool {
			if edges[i].other != edges[j].other {
				return edges[i].other < edges[j].other
			}
			return edges[i].edge.Key() < edges[j].edge.Key()
		})
		g.incident[id] = edges
	}

	return g, nil
}

func newNode(id string, data model.Metadata) *model.GraphNode {
	if data == nil {
		data = model.Metadata{}
	}

	nodeType := data.String("type")
	if nodeType == "" {
		nodeType = "unknown"
	}

	name := data.String("title")
	if name == "" {
		name = data.String("name")
	}
	if name == "" {
		name = id
	}

	return &model.GraphNode{ID: id, Type: nodeType, Name: name, Attributes: data}
}

func relation(data model.Metadata) string {
	for _, key := range []string{"relation", "type", "label"} {
		if v := data.String(key); v != "" {
			return v
		}
	}
	return "related_to"
}

func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case json.Number:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}

func sortedUnique(ids []string) []string {
	sort.Strings(ids)
	out := ids[:0]
	for i, id := range ids {
		if i == 0 || id != ids[i-1] {
			out = append(out, id)
		}
	}
	return out
}

// Directed reports if edges are only followed from source to target.
func (g *KnowledgeGraph) Directed() bool { return g.directed }

// NodeCount returns the number of nodes.
func (g *KnowledgeGraph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *KnowledgeGraph) EdgeCount() int { return len(g.edges) }

// Node returns the node with the given id or nil.
func (g *KnowledgeGraph) Node(id string) *model.GraphNode {
	return g.nodes[id]
}

// NodeIDs returns all node ids, sorted.
func (g *KnowledgeGraph) NodeIDs() []string {
	ids := make([]string, len(g.ids))
	copy(ids, g.ids)
	return ids
}

// Neighbors returns the ids reachable in one hop, sorted.
func (g *KnowledgeGraph) Neighbors(id string) []string {
	neighbors := g.adjacency[id]
	out := make([]string, len(neighbors))
	copy(out, neighbors)
	return out
}

// NodeTypes counts the nodes per type.
func (g *KnowledgeGraph) NodeTypes() map[string]int {
	types := map[string]int{}
	for _, n := range g.nodes {
		types[n.Type]++
	}
	return types
}

// NodeText returns the text a node is indexed by: its descriptive fields
// followed by "key: value" lines for string properties. It is empty for
// nodes without any text.
func NodeText(node *model.GraphNode) string {
	var lines []string
	seen := map[string]bool{}
	for _, field := range textFields {
		v := strings.TrimSpace(node.Attributes.String(field))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		lines = append(lines, v)
	}

	if props, ok := node.Attributes["properties"].(map[string]interface{}); ok {
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s, ok := props[k].(string); ok && strings.TrimSpace(s) != "" {
				lines = append(lines, fmt.Sprintf("%s: %s", k, strings.TrimSpace(s)))
			}
		}
	}

	return strings.Join(lines, "\n")
}

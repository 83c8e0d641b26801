package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/siherrmann/graphrag"
	"github.com/siherrmann/graphrag/config"
	"github.com/siherrmann/graphrag/core/orchestrator"
	"github.com/siherrmann/graphrag/model"
)

const competitorGraph = `{
	"nodes": [
		{"id": "talan", "data": {"type": "company", "name": "Talan", "description": "French consulting group for data, cloud and AI"}},
		{"id": "wavestone", "data": {"type": "company", "name": "Wavestone", "description": "Consulting firm for cybersecurity and transformation"}},
		{"id": "cloud-migration", "data": {"type": "service", "title": "Cloud migration", "description": "Move workloads of banks and insurers to the public cloud"}},
		{"id": "cyber-audit", "data": {"type": "service", "title": "Cybersecurity audit"}},
		{"id": "banking", "data": {"type": "market", "title": "Banking", "properties": {"region": "Europe"}}},
		{"id": "public-sector", "data": {"type": "market", "title": "Public sector"}}
	],
	"edges": [
		{"source": "talan", "target": "cloud-migration", "data": {"relation": "offers"}},
		{"source": "wavestone", "target": "cyber-audit", "data": {"relation": "offers"}},
		{"source": "cloud-migration", "target": "banking", "data": {"relation": "targets"}},
		{"source": "cyber-audit", "target": "banking", "data": {"relation": "targets"}},
		{"source": "cyber-audit", "target": "public-sector", "data": {"relation": "targets"}},
		{"source": "talan", "target": "wavestone", "data": {"relation": "competes_with"}}
	]
}`

func main() {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "graphrag-graph")
	if err != nil {
		log.Fatalf("Failed to create graph directory: %v", err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "competitors.json")
	if err := os.WriteFile(path, []byte(competitorGraph), 0o644); err != nil {
		log.Fatalf("Failed to write graph: %v", err)
	}

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.Corpus.PDFDir = dir
	cfg.Graph.Path = path
	if !cfg.AIEnabled() {
		log.Fatal("Set GEMINI_API_KEY or GRAPHRAG_LLM_PROVIDER=ollama to run this example")
	}

	a, err := graphrag.NewAnalyzer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create analyzer: %v", err)
	}
	defer a.Close()

	report, err := a.LoadGraph(ctx, "", false)
	if err != nil {
		log.Fatalf("Failed to load graph: %v", err)
	}
	fmt.Printf("Loaded %d nodes and %d edges, indexed %d node texts\n", report.Nodes, report.Edges, report.Chunks)

	// Compare two expansion depths on the same question
	query := "Which markets do Talan and its competitors target?"
	for _, depth := range []int{1, 2} {
		result, err := a.Analyze(ctx, orchestrator.Request{
			Query:  query,
			Mode:   model.AnalysisModeGraph,
			Config: model.QueryConfig{TopK: 3, MaxDepth: model.Depth(depth), MaxNodes: 20, MaxEdges: 50},
		})
		if err != nil {
			log.Fatalf("Failed to analyze: %v", err)
		}

		fmt.Printf("\n=== Depth %d ===\n", depth)
		fmt.Println(result.Answer)
		fmt.Printf("Nodes: %v\n", result.Trace.Nodes)
		fmt.Printf("Edges: %v\n", result.Trace.Edges)
		fmt.Printf("Node types: %v, truncated: %t\n", result.Metrics.NodeTypes, result.Metrics.Truncated)
	}
}

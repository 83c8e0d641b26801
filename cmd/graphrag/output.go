package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/siherrmann/graphrag"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	warning = color.New(color.FgYellow)
)

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func printGraphReport(w io.Writer, report *graphrag.GraphReport) {
	heading.Fprintln(w, "Knowledge graph")
	fmt.Fprintf(w, "  nodes: %d, edges: %d\n", report.Nodes, report.Edges)
	fmt.Fprintf(w, "  chunks: %d (restored %t)\n", report.Chunks, report.Restored)
	if report.SkippedEdges > 0 {
		warning.Fprintf(w, "  skipped %d edges to unknown nodes\n", report.SkippedEdges)
	}
	if report.DuplicateNodes > 0 {
		warning.Fprintf(w, "  merged %d duplicate node ids\n", report.DuplicateNodes)
	}
}

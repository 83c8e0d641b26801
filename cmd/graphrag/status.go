package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the loaded documents, graph and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			analyzer, err := a.analyzer(ctx)
			if err != nil {
				return err
			}
			defer analyzer.Close()

			_, err = analyzer.IngestDocuments(ctx, false)
			if err != nil {
				return err
			}
			if a.config.Graph.Path != "" {
				_, err = analyzer.LoadGraph(ctx, "", false)
				if err != nil {
					return err
				}
			}

			status, err := analyzer.Status(ctx)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(a.out, status)
			}

			heading.Fprintln(a.out, "Status")
			if !status.AIEnabled {
				warning.Fprintln(a.out, "  analysis disabled, configure llm.apiKey or the ollama provider")
			}
			fmt.Fprintf(a.out, "  directory: %s\n", status.PDFDirectory)
			fmt.Fprintf(a.out, "  documents: %d\n", status.TotalDocuments)
			fmt.Fprintf(a.out, "  companies: %s\n", strings.Join(status.CompaniesLoaded, ", "))
			fmt.Fprintf(a.out, "  graph:     %d nodes, %d edges\n", status.GraphNodes, status.GraphEdges)
			for _, idx := range status.Indexes {
				fmt.Fprintf(a.out, "  index %-10s %d chunks, %s, version %d\n", idx.Name, idx.Chunks, idx.Model, idx.Version)
			}
			if status.StoreEnabled {
				fmt.Fprintf(a.out, "  stored indexes: %d\n", len(status.StoredIndexes))
			}
			return nil
		},
	}
}

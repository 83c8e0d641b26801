package main

import (
	"fmt"
	"strings"

	"github.com/siherrmann/graphrag"
	"github.com/spf13/cobra"
)

func newIngestCmd(a *app) *cobra.Command {
	var rebuild bool
	var graphPath string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Extract the document directory and build the indexes",
		Long: `Extract every PDF of the configured document directory and build the
documents index. If a knowledge graph is configured or --graph is given, the
graph is loaded and its node index is built as well. With the store enabled,
indexes built by the same embedding model over the same sources are reused.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			analyzer, err := a.analyzer(ctx)
			if err != nil {
				return err
			}
			defer analyzer.Close()

			report, err := analyzer.IngestDocuments(ctx, rebuild)
			if err != nil {
				return err
			}

			if graphPath == "" {
				graphPath = a.config.Graph.Path
			}
			var graphReport *graphrag.GraphReport
			if graphPath != "" {
				graphReport, err = analyzer.LoadGraph(ctx, graphPath, rebuild)
				if err != nil {
					return err
				}
			}

			if a.jsonOutput {
				return printJSON(a.out, map[string]any{"documents": report, "graph": graphReport})
			}

			heading.Fprintln(a.out, "Documents")
			fmt.Fprintf(a.out, "  documents: %d (skipped %d)\n", report.Documents, len(report.Skipped))
			fmt.Fprintf(a.out, "  companies: %s\n", strings.Join(report.Companies, ", "))
			fmt.Fprintf(a.out, "  chunks:    %d (restored %t)\n", report.Chunks, report.Restored)
			for _, name := range report.Skipped {
				warning.Fprintf(a.out, "  skipped %s\n", name)
			}
			if graphReport != nil {
				printGraphReport(a.out, graphReport)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "rebuild the indexes even if stored ones are current")
	cmd.Flags().StringVar(&graphPath, "graph", "", "knowledge graph JSON file (default from configuration)")
	return cmd
}

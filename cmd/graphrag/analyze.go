package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/siherrmann/graphrag"
	"github.com/siherrmann/graphrag/core/orchestrator"
	"github.com/siherrmann/graphrag/model"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var queryConfig model.QueryConfig
	var maxDepth int
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "analyze [documents|graph] <question>",
		Short: "Answer a question from the documents or the knowledge graph",
		Example: `  graphrag analyze documents "Which cloud services does Talan offer?"
  graphrag analyze graph --max-depth 3 "Which markets do the competitors of Wavestone target?"`,
		Args:      cobra.MinimumNArgs(2),
		ValidArgs: []string{string(model.AnalysisModeDocuments), string(model.AnalysisModeGraph)},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := model.ParseAnalysisMode(args[0])
			if err != nil {
				return err
			}
			query := strings.Join(args[1:], " ")
			if cmd.Flags().Changed("max-depth") {
				queryConfig.MaxDepth = model.Depth(maxDepth)
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			analyzer, err := a.analyzer(ctx)
			if err != nil {
				return err
			}
			defer analyzer.Close()

			err = prepare(ctx, analyzer, mode, rebuild)
			if err != nil {
				return err
			}

			result, err := analyzer.Analyze(ctx, orchestrator.Request{Query: query, Mode: mode, Config: queryConfig})
			if err != nil {
				return err
			}

			if a.jsonOutput {
				return printJSON(a.out, result)
			}
			printResult(a.out, result)
			return nil
		},
	}

	cmd.Flags().IntVarP(&queryConfig.TopK, "top-k", "k", 0, "number of evidence chunks to retrieve (default from configuration)")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "graph expansion depth, 0 keeps only the matched nodes (default from configuration)")
	cmd.Flags().IntVar(&queryConfig.MaxNodes, "max-nodes", 0, "maximum nodes of the expanded subgraph")
	cmd.Flags().IntVar(&queryConfig.MaxEdges, "max-edges", 0, "maximum edges of the expanded subgraph")
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "rebuild the index before analyzing")
	return cmd
}

// prepare builds or restores the index the mode searches.
func prepare(ctx context.Context, analyzer *graphrag.Analyzer, mode model.AnalysisMode, rebuild bool) error {
	if mode == model.AnalysisModeGraph {
		_, err := analyzer.LoadGraph(ctx, "", rebuild)
		return err
	}
	_, err := analyzer.IngestDocuments(ctx, rebuild)
	return err
}

func printResult(w io.Writer, result *model.AnalysisResult) {
	heading.Fprintln(w, "Answer")
	fmt.Fprintln(w, result.Answer)
	fmt.Fprintln(w)

	heading.Fprintln(w, "Evidence")
	for i, item := range result.Trace.Items {
		line := fmt.Sprintf("  [%d] %s  score %.3f", i+1, item.Source, item.Score)
		if item.Unjudged {
			warning.Fprintln(w, line+"  (unjudged)")
			continue
		}
		fmt.Fprintf(w, "%s  confidence %.2f\n", line, item.Confidence)
	}
	if len(result.Trace.Items) == 0 {
		fmt.Fprintln(w, "  none")
	}

	m := result.Metrics
	fmt.Fprintln(w)
	heading.Fprintln(w, "Metrics")
	fmt.Fprintf(w, "  retrieved %d, relevant %d, documents %d\n", m.RetrievedCount, m.JudgedRelevant, m.DocumentsCount)
	if len(m.CompaniesAnalyzed) > 0 {
		fmt.Fprintf(w, "  companies: %s\n", strings.Join(m.CompaniesAnalyzed, ", "))
	}
	if result.Graph != nil {
		fmt.Fprintf(w, "  subgraph: %d nodes, %d edges\n", m.NodesCount, m.EdgesCount)
	}
	if m.JudgeDegraded {
		warning.Fprintln(w, "  judge unavailable, evidence was not filtered")
	}
	if m.Truncated || m.EvidenceDropped > 0 {
		warning.Fprintf(w, "  limits applied, %d evidence items dropped\n", m.EvidenceDropped)
	}
	for _, warn := range result.Warnings {
		warning.Fprintf(w, "  %s: %s\n", warn.Code, warn.Message)
	}
}

package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/siherrmann/graphrag"
	"github.com/siherrmann/graphrag/config"
	"github.com/siherrmann/graphrag/helper"
	"github.com/spf13/cobra"
)

// app holds the state shared by the subcommands.
type app struct {
	configFile string
	verbose    bool
	jsonOutput bool

	config *config.Config
	out    io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "graphrag",
		Short: "Analyze company documents and a knowledge graph with retrieval, judging and synthesis.",
		Long: `graphrag answers analytical questions over a directory of company reports
and an optional knowledge graph. Evidence is retrieved by embedding similarity,
judged for relevance by a language model and synthesized into a traceable answer.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configFile)
			if err != nil {
				return err
			}
			if a.verbose {
				cfg.Log.Level = "debug"
			}
			a.config = cfg
			a.out = cmd.OutOrStdout()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "config file (yaml, json or toml), values can be overridden by GRAPHRAG_* variables")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "print results as JSON")

	rootCmd.AddCommand(
		newIngestCmd(a),
		newAnalyzeCmd(a),
		newStatusCmd(a),
		newCompaniesCmd(a),
	)
	return rootCmd
}

// analyzer creates the analyzer for a command. Logs go to stderr so JSON
// output stays parsable.
func (a *app) analyzer(ctx context.Context) (*graphrag.Analyzer, error) {
	logger := helper.NewLogger(os.Stderr, a.config.LogLevel())
	return graphrag.NewAnalyzer(ctx, a.config, graphrag.WithLogger(logger))
}

// commandContext is cancelled on interrupt.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

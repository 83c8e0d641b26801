package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCompaniesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "companies [query]",
		Short: "List the companies of the corpus, filtered by name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			analyzer, err := a.analyzer(ctx)
			if err != nil {
				return err
			}
			defer analyzer.Close()

			_, err = analyzer.LoadCorpus(ctx)
			if err != nil {
				return err
			}

			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			companies := analyzer.SearchCompanies(query)
			if a.jsonOutput {
				return printJSON(a.out, companies)
			}

			for _, c := range companies {
				heading.Fprintf(a.out, "%s", c.Company)
				fmt.Fprintf(a.out, " (%d)\n", c.TotalDocuments)
				fmt.Fprintf(a.out, "  %s\n", strings.Join(c.Documents, "\n  "))
			}
			if len(companies) == 0 {
				fmt.Fprintln(a.out, "no matching companies")
			}
			return nil
		},
	}
}

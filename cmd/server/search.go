package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/prasenjit/go-meraki-mcp/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the operation catalog",
	Long: `Ranks catalog operations against a natural-language query and prints
the best matches. No API key is needed.

Example:
  meraki-mcp search "list switch ports"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

var searchLimit int

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", search.DefaultLimit, "Maximum results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	core, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer core.Close()

	res := core.Search(strings.Join(args, " "), searchLimit)
	if len(res.Matches) == 0 {
		fmt.Fprintln(os.Stderr, "No matching operations")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tOPERATION\tMETHOD\tPATH")
	for _, m := range res.Matches {
		fmt.Fprintf(w, "%.2f\t%s\t%s\t%s\n", m.Score, m.Operation.ID, m.Operation.Method, m.Operation.PathTemplate)
	}
	if res.FastPath {
		fmt.Fprintln(w, "(exact intent match)")
	}
	return w.Flush()
}

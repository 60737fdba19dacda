package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/repolens/repolens"
)

var (
	searchLimit int
	searchApp   string
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored quality reports",
	Long: `Runs hybrid vector and full-text search over the chunks of stored
reports and prints the best matches with a relevance snippet.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum number of results")
	searchCmd.Flags().StringVar(&searchApp, "app", "", "restrict results to one application id")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	opts := []repolens.SearchOption{repolens.WithLimit(searchLimit)}
	if searchApp != "" {
		opts = append(opts, repolens.WithApp(searchApp))
	}

	results, err := eng.Search(cmd.Context(), args[0], opts...)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

func outputSearchTable(cmd *cobra.Command, results []repolens.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		cmd.Printf("  [%d] %s (%.2f, %s)\n", i+1, r.AppName, r.Score, r.Source)
		cmd.Printf("      Areas: %s\n", strings.Join(r.FocusAreas, ", "))
		if r.Snippet != "" {
			cmd.Printf("      %s\n", r.Snippet)
		}
		cmd.Println()
	}
	return nil
}

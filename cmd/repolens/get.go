package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repolens/repolens/store"
)

var (
	getFocus []string
	getJSON  bool
)

var getCmd = &cobra.Command{
	Use:   "get [app-id]",
	Short: "Print the stored report for an app",
	Long: `Prints the most recent stored report for an application. With
--focus the report must match that exact focus-area set.`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	getCmd.Flags().StringSliceVar(&getFocus, "focus", nil, "exact focus-area set of the report")
	getCmd.Flags().BoolVar(&getJSON, "json", false, "output the full record as JSON")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	rep, err := eng.GetReport(cmd.Context(), args[0], getFocus)
	if err != nil {
		return fmt.Errorf("fetching report: %w", err)
	}

	if getJSON {
		return outputJSON(cmd, rep)
	}
	return outputReport(cmd, rep)
}

func outputReport(cmd *cobra.Command, rep *store.StoredReport) error {
	cmd.Println(rep.Content)
	return nil
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

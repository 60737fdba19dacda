package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var appsJSON bool

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List applications with stored reports",
	Args:  cobra.NoArgs,
	RunE:  runApps,
}

func init() {
	appsCmd.Flags().BoolVar(&appsJSON, "json", false, "output the list as JSON")
	rootCmd.AddCommand(appsCmd)
}

func runApps(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	apps, err := eng.ListApps(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing apps: %w", err)
	}

	if appsJSON {
		return outputJSON(cmd, apps)
	}

	if len(apps) == 0 {
		cmd.Println("No stored reports.")
		return nil
	}
	for _, app := range apps {
		cmd.Printf("%s (%s)\n", app.AppName, app.AppID)
		cmd.Printf("    Areas:    %s\n", strings.Join(app.FocusAreas, ", "))
		cmd.Printf("    Reports:  %d\n", app.Reports)
		cmd.Printf("    Analyzed: %s\n", app.LastAnalyzed)
		cmd.Println()
	}
	cmd.Printf("Total: %d apps\n", len(apps))
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [app-id]",
	Short: "Delete all stored reports for an app",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.DeleteApp(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("deleting reports: %w", err)
	}
	cmd.Printf("Deleted all reports for %s.\n", args[0])
	return nil
}

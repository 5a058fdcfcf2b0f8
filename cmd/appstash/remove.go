package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove [app-id...]",
	Short: "Remove one or more cached apps",
	Long: `Remove the cached records for the given app ids within the selected
scope. Removing an app that is not cached is a no-op.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	if err := requireScope(); err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.RemoveApps(context.Background(), tenantURL, userID, args); err != nil {
		return err
	}

	fmt.Printf("removed %d app(s)\n", len(args))
	return nil
}

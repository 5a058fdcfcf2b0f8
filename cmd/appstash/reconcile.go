package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/appstash/appstash"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [remote-apps.json]",
	Short: "Classify a remote app listing against the cache",
	Long: `Read the current remote app listing from a JSON file and classify it
against the cached records of the selected scope.

The file holds an array of remote apps:

  [{"id": "app-1", "name": "Dashboard", "updatedAt": "2026-02-01T10:00:00Z"}]

The classification is printed; nothing is loaded or removed. Pass
--apply to also delete the orphaned records and refresh the scope's
sync metadata.`,
	Args: cobra.ExactArgs(1),
	RunE: runReconcile,
}

var reconcileApply bool

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileApply, "apply", false, "remove orphaned records and refresh metadata")
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	if err := requireScope(); err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading remote listing: %w", err)
	}
	var remote []appstash.RemoteApp
	if err := json.Unmarshal(data, &remote); err != nil {
		return fmt.Errorf("decoding remote listing: %w", err)
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := context.Background()
	result, err := client.Reconcile(ctx, tenantURL, userID, remote)
	if err != nil {
		return err
	}

	fmt.Printf("To load:    %d\n", len(result.ToLoad))
	for _, app := range result.ToLoad {
		fmt.Printf("  %s (%s)\n", app.ID, orNone(app.UpdatedAt))
	}
	fmt.Printf("Unchanged:  %d\n", len(result.Unchanged))
	fmt.Printf("To remove:  %d\n", len(result.ToRemove))
	for _, id := range result.ToRemove {
		fmt.Printf("  %s\n", id)
	}

	if !reconcileApply {
		return nil
	}

	if err := client.RemoveApps(ctx, tenantURL, userID, result.ToRemove); err != nil {
		return err
	}
	ids := make([]string, 0, len(remote))
	for _, app := range remote {
		ids = append(ids, app.ID)
	}
	if err := client.SetMetadata(ctx, tenantURL, userID, ids); err != nil {
		return err
	}
	fmt.Printf("\nremoved %d orphaned record(s), metadata refreshed\n", len(result.ToRemove))
	return nil
}

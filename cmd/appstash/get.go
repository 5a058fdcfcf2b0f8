package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get [app-id]",
	Short: "Show one cached app record",
	Long: `Show the cached record for one app within the selected scope,
including the locally cached payload and timestamps.

App ids are matched byte-exact; no case folding is applied.`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

var getJSON bool

func init() {
	getCmd.Flags().BoolVar(&getJSON, "json", false, "output result as JSON")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	if err := requireScope(); err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	rec, found, err := client.GetAppData(context.Background(), tenantURL, userID, args[0])
	if err != nil {
		return err
	}
	if !found {
		fmt.Printf("app %q is not cached\n", args[0])
		return nil
	}

	if getJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	fmt.Printf("App:        %s (%s)\n", rec.Name, rec.AppID)
	if rec.SpaceID != "" {
		fmt.Printf("Space:      %s\n", rec.SpaceID)
	}
	fmt.Printf("Updated:    %s\n", orNone(rec.RemoteUpdatedAt))
	fmt.Printf("Cached at:  %s\n", rec.CachedAt)
	fmt.Printf("Payload:    %d bytes\n", len(rec.Payload))
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

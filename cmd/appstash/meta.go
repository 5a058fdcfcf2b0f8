package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var metaCmd = &cobra.Command{
	Use:   "meta",
	Short: "Show the scope's sync metadata and cache validity",
	RunE:  runMeta,
}

var metaMaxAge time.Duration

func init() {
	metaCmd.Flags().DurationVar(&metaMaxAge, "max-age", 0, "staleness threshold (default 24h)")
	rootCmd.AddCommand(metaCmd)
}

func runMeta(cmd *cobra.Command, args []string) error {
	if err := requireScope(); err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	meta, found, err := client.GetMetadata(context.Background(), tenantURL, userID)
	if err != nil {
		return err
	}
	if !found {
		fmt.Println("No sync metadata for this scope; the cache needs a full resync.")
		return nil
	}

	fmt.Printf("Scope:      %s\n", meta.Scope)
	fmt.Printf("Last sync:  %s\n", meta.LastSyncAt)
	fmt.Printf("App ids:    %d\n", len(meta.AppIDs))
	fmt.Printf("Valid:      %v\n", client.IsCacheValid(meta, metaMaxAge))
	return nil
}

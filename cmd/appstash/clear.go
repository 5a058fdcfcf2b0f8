package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the scope's entire cache",
	Long: `Remove every cached app record for the selected scope and its sync
metadata. The next sync for the scope starts from a cold cache.`,
	RunE: runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	if err := requireScope(); err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.ClearCache(context.Background(), tenantURL, userID); err != nil {
		return err
	}

	fmt.Println("cache cleared")
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all cached apps for the scope",
	RunE:  runList,
}

var listJSON bool

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output result as JSON")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	if err := requireScope(); err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	recs, err := client.GetAllCachedApps(context.Background(), tenantURL, userID)
	if err != nil {
		return err
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].AppID < recs[j].AppID })

	if listJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}

	if len(recs) == 0 {
		fmt.Println("No cached apps for this scope.")
		return nil
	}
	for _, rec := range recs {
		fmt.Printf("%-24s  %-32s  updated=%s\n", rec.AppID, rec.Name, orNone(rec.RemoteUpdatedAt))
	}
	fmt.Printf("\n%d cached app(s)\n", len(recs))
	return nil
}

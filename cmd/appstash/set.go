package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/appstash/appstash"
)

var setCmd = &cobra.Command{
	Use:   "set [app-id]",
	Short: "Store or overwrite one cached app record",
	Long: `Store a record for one app within the selected scope, overwriting
any prior record for the same app id.

The payload is read from the file given with --payload-file, or left
empty when the flag is omitted.`,
	Args: cobra.ExactArgs(1),
	RunE: runSet,
}

var (
	setName        string
	setSpaceID     string
	setUpdatedAt   string
	setPayloadFile string
)

func init() {
	setCmd.Flags().StringVar(&setName, "name", "", "display name of the app")
	setCmd.Flags().StringVar(&setSpaceID, "space", "", "grouping space id")
	setCmd.Flags().StringVar(&setUpdatedAt, "updated-at", "", "remote update timestamp")
	setCmd.Flags().StringVar(&setPayloadFile, "payload-file", "", "file containing the JSON payload")
	rootCmd.AddCommand(setCmd)
}

func runSet(cmd *cobra.Command, args []string) error {
	if err := requireScope(); err != nil {
		return err
	}

	var payload []byte
	if setPayloadFile != "" {
		var err error
		payload, err = os.ReadFile(setPayloadFile)
		if err != nil {
			return fmt.Errorf("reading payload file: %w", err)
		}
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	app := appstash.RemoteApp{
		ID:        args[0],
		Name:      setName,
		SpaceID:   setSpaceID,
		UpdatedAt: setUpdatedAt,
	}
	if err := client.SetAppData(context.Background(), tenantURL, userID, app, payload); err != nil {
		return err
	}

	fmt.Printf("stored app %q (%d payload bytes)\n", args[0], len(payload))
	return nil
}

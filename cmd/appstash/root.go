package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/appstash/appstash"
	"github.com/appstash/appstash/internal/codec/zstdcodec"
	"github.com/appstash/appstash/internal/store"
	"github.com/appstash/appstash/internal/store/boltstore"
	"github.com/appstash/appstash/internal/store/loggedstore"
)

var (
	// Global flags.
	dbPath    string
	tenantURL string
	userID    string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "appstash",
	Short: "Inspect and maintain the local multi-tenant app cache",
	Long: `Appstash is a CLI tool for inspecting and maintaining the local
cache of remote app records.

All commands operate within one tenant-user scope, selected with the
--tenant and --user flags.

Examples:
  # List cached apps for a scope
  appstash list --tenant https://acme.example.com --user u1

  # Show one cached app
  appstash get app-1 --tenant https://acme.example.com --user u1

  # Reconcile against a remote listing
  appstash reconcile remote.json --tenant https://acme.example.com --user u1`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "./appstash.db", "path of the cache database file")
	rootCmd.PersistentFlags().StringVarP(&tenantURL, "tenant", "t", "", "tenant URL of the scope")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "user id of the scope")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// requireScope validates the scope-selecting flags shared by all
// commands.
func requireScope() error {
	if tenantURL == "" {
		return fmt.Errorf("--tenant is required")
	}
	if userID == "" {
		return fmt.Errorf("--user is required")
	}
	return nil
}

// newClient builds a client against the configured database file.
func newClient() (*appstash.Client, error) {
	logger := zap.NewNop()
	if verbose {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("creating logger: %w", err)
		}
	}

	var st store.Store = boltstore.New(logger.Named("store"), dbPath, zstdcodec.New())
	if verbose {
		st = loggedstore.New(logger.Named("store.ops"), st)
	}

	client, err := appstash.New(
		appstash.WithStore(st),
		appstash.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	return client, nil
}

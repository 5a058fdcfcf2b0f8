// Package main provides the appstash CLI tool for inspecting and
// maintaining the local app cache.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package main is the entry point for the Bumbeez CLI.
// Bumbeez CLI signs in to the Bumbeez API and sends authenticated requests,
// refreshing the access token transparently when it expires.
package main

import (
	"os"

	"github.com/bumbeez/bumbeez-cli/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

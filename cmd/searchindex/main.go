// Package main provides the entry point for the searchindex CLI.
package main

import (
	"os"

	"github.com/sharethrift/searchindex/cmd/searchindex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package main is the entry point for the agrimarket CLI.
package main

import (
	"os"

	"agrimarket/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

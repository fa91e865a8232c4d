// Package main provides the entry point for the leapexpose CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/leapexpose/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

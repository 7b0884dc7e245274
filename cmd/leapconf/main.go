// Package main provides the leapconf CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/leapconf/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package main provides the fieldkit CLI.
package main

import (
	"os"

	"github.com/gridfire-labs/fieldkit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

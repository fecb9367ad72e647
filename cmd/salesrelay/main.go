// Package main is the entry point for the salesrelay CLI.
package main

import (
	"os"

	"github.com/salesrelay/salesrelay/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

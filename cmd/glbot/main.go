// Package main is the entry point for the glbot CLI.
package main

import (
	"os"

	"github.com/glbot/glbot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package main provides the entry point for the geocache CLI.
package main

import (
	"os"

	"github.com/mapknit/geocache/cmd/geocache/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

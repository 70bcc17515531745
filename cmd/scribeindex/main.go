// Package main provides the entry point for the scribeindex CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/scribeindex/cmd/scribeindex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

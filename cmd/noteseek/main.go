// Package main provides the entry point for the noteseek CLI.
package main

import (
	"os"

	"github.com/dkrall/noteseek/cmd/noteseek/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

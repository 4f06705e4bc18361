// Package main provides the entry point for the wscompile CLI.
package main

import (
	"os"

	"github.com/contextdb/wscompile/cmd/wscompile/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

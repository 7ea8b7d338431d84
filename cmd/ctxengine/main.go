// Package main provides the entry point for the ctxengine CLI.
package main

import (
	"os"

	"github.com/ctxengine/ctxengine/cmd/ctxengine/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

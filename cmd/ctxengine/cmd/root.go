// Package cmd provides the CLI commands for ctxengine.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ctxengine/ctxengine/pkg/version"
)

// NewRootCmd creates the root command for the ctxengine CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ctxengine",
		Short: "Local content indexing and retrieval engine for AI assistants",
		Long: `ctxengine indexes a project's code and documents and serves search
over the Model Context Protocol for AI coding assistants.

Run 'ctxengine serve' in a project directory to start the MCP server,
or 'ctxengine index' to build the index ahead of time.`,
		Version: version.Version,
	}

	cmd.SetVersionTemplate("ctxengine version {{.Version}}\n")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ctxengine/ctxengine/internal/toolserver"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP stdio server for the current project",
		Long: `Serve starts ctxengine's Model Context Protocol server, speaking
newline-delimited JSON-RPC over stdio.

Nothing is written to stdout before or during the MCP session; all
diagnostic output goes to stderr.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
	return cmd
}

func runServe(cmd *cobra.Command) error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	cfg, err := loadConfigAndLogger(root)
	if err != nil {
		return err
	}

	mgr, err := buildManager(cfg)
	if err != nil {
		return err
	}
	defer mgr.Shutdown()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting ctxengine", "project_root", root, "embedding_model", cfg.Embedding.Model)
	return toolserver.New(mgr).Run(ctx)
}

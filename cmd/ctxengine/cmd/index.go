package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Build or rebuild the index for a project",
		Long: `Index walks the project tree, parses and chunks every supported
file, embeds the chunks and persists the result, replacing any prior
index for that project.

When stdout is a terminal, a start line and a summary line with the
file and chunk counts are printed; otherwise the start and the
completion are written to the log, suitable for piping to a file or
CI log.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runIndex(ctx, cmd, path)
		},
	}
	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, path string) error {
	root, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path %s: %w", path, err)
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

	interactive := isatty.IsTerminal(os.Stdout.Fd())
	out := cmd.OutOrStdout()

	if interactive {
		fmt.Fprintf(out, "indexing %s...\n", root)
	} else {
		slog.Info("indexing started", "path", root)
	}

	start := time.Now()
	idx, err := mgr.ReindexProject(ctx, root)
	if err != nil {
		return fmt.Errorf("index %s: %w", root, err)
	}
	elapsed := time.Since(start)

	if interactive {
		fmt.Fprintf(out, "indexed %d files, %d chunks in %s\n", idx.TotalFiles, idx.TotalChunks, elapsed.Round(time.Millisecond))
	} else {
		slog.Info("indexing complete",
			"path", root, "total_files", idx.TotalFiles, "total_chunks", idx.TotalChunks, "duration", elapsed.String())
	}
	return nil
}

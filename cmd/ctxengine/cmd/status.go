package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ctxengine/ctxengine/internal/model"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status [path]",
		Short: "Show whether a project is indexed, loaded and watched",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runStatus(cmd, path, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runStatus(cmd *cobra.Command, path string, jsonOutput bool) error {
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

	status, err := mgr.GetProjectStatus(root)
	if err != nil {
		return fmt.Errorf("get status for %s: %w", root, err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	styled := isatty.IsTerminal(os.Stdout.Fd())
	renderStatus(out, filepath.Base(root), status, styled)
	return nil
}

var (
	statusHeader = lipgloss.NewStyle().Bold(true)
	statusOK     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	statusWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	statusBad    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusLabel  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func renderStatus(out io.Writer, name string, s *model.ProjectStatus, styled bool) {
	header := "Project: " + name
	if styled {
		header = statusHeader.Render(header)
	}
	fmt.Fprintln(out, header)
	fmt.Fprintln(out)

	fmt.Fprintf(out, "  %s %v\n", label("Indexed:", styled), s.Indexed)
	fmt.Fprintf(out, "  %s %v\n", label("Loaded:", styled), s.Loaded)
	if s.Indexed {
		fmt.Fprintf(out, "  %s %d\n", label("Files:", styled), s.TotalFiles)
		fmt.Fprintf(out, "  %s %d\n", label("Chunks:", styled), s.TotalChunks)
		fmt.Fprintf(out, "  %s %s\n", label("Model:", styled), s.EmbeddingModel)
		fmt.Fprintf(out, "  %s %s\n", label("Mode:", styled), s.IndexMode)
		fmt.Fprintf(out, "  %s %s\n", label("Updated:", styled), s.UpdatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "  %s %d bytes\n", label("Size:", styled), s.IndexSizeBytes)
	}
	fmt.Fprintf(out, "  %s %s\n", label("Watcher:", styled), watcherText(s.WatcherStatus, styled))
}

func label(s string, styled bool) string {
	if !styled {
		return s
	}
	return statusLabel.Render(s)
}

func watcherText(w model.WatcherStatus, styled bool) string {
	if !styled {
		return string(w)
	}
	switch w {
	case model.WatcherStatusRunning:
		return statusOK.Render(string(w))
	case model.WatcherStatusStopped:
		return statusWarn.Render(string(w))
	case model.WatcherStatusCircuitBroken:
		return statusBad.Render(string(w))
	default:
		return string(w)
	}
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every project with a stored index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runList(cmd *cobra.Command, jsonOutput bool) error {
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

	ids, err := mgr.ListProjects()
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(ids)
	}

	if len(ids) == 0 {
		fmt.Fprintln(out, "no indexed projects")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(out, id)
	}
	return nil
}

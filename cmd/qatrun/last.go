package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Cloudsky01/qatrun/internal/paths"
	"github.com/Cloudsky01/qatrun/internal/state"
)

var (
	clearRecord bool

	lastCmd = &cobra.Command{
		Use:   "last",
		Short: "Show the outcome of the previous test run",
		Long: `Show the record 'qatrun run' saved for the current configuration: the
build, the artifact, the reported status and whether the run passed.`,
		Args: cobra.NoArgs,
		RunE: runLast,
	}
)

func init() {
	lastCmd.Flags().BoolVar(&clearRecord, "clear", false, "Remove the saved record")
	rootCmd.AddCommand(lastCmd)
}

func runLast(cmd *cobra.Command, args []string) error {
	p, err := paths.New()
	if err != nil {
		return fmt.Errorf("failed to initialize paths: %w", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	path, err := state.RecordPath(p, cfg.ConfigPath())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if clearRecord {
		if err := state.Clear(path); err != nil {
			return fmt.Errorf("failed to remove run record: %w", err)
		}
		fmt.Fprintln(out, successStyle.Render("✓ Run record removed: "+path))
		return nil
	}

	record, err := state.Load(path)
	if errors.Is(err, state.ErrNoRecord) {
		fmt.Fprintln(out, warnStyle.Render("No test run recorded yet. Run 'qatrun run' first."))
		return nil
	}
	if err != nil {
		return err
	}

	printRunRecord(out, path, record)
	return nil
}

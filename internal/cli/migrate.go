package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chkd/chkd/internal/clock"
	"github.com/chkd/chkd/internal/engine"
	"github.com/chkd/chkd/internal/git"
	"github.com/chkd/chkd/internal/store"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	RepoPath string
	File     string
	DryRun   bool
}

// NewMigrateCmd creates the migrate command. It works directly against
// the data directory, so it does not need a running server.
func NewMigrateCmd(app *App) *cobra.Command {
	var opts MigrateOptions

	cmd := &cobra.Command{
		Use:   "migrate <repo-path>",
		Short: "Import a markdown checklist into the item store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.RepoPath = args[0]
			return app.runMigrate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "checklist path relative to the repo (default docs/SPEC.md)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "parse and report without writing")
	return cmd
}

func (a *App) runMigrate(cmd *cobra.Command, opts MigrateOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	log := a.newLogger(cfg)

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	eng := engine.New(cfg, st, git.NewDriver(git.NewRunner(cfg.GitConcurrency)), clock.System{}, log)

	repoPath, err := filepath.Abs(opts.RepoPath)
	if err != nil {
		return err
	}

	if opts.DryRun {
		parsed, err := eng.MigratePreview(repoPath, opts.File)
		if err != nil {
			return err
		}
		total := 0
		for _, area := range parsed.Areas {
			fmt.Fprintf(cmd.OutOrStdout(), "%s - %s: %d entries\n", area.Code, area.Name, len(area.Items))
			total += len(area.Items)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d top-level entries, %d parse errors\n", total, len(parsed.Errors))
		for _, e := range parsed.Errors {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", e)
		}
		return nil
	}

	// Register the repo on first migration.
	if _, err := eng.RepoByPath(repoPath); store.IsNotFound(err) {
		if _, err := eng.AddRepo(repoPath, "", ""); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	result, err := eng.MigrateRun(repoPath, opts.File)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d, updated %d, skipped %d\n",
		result.ItemsImported, result.ItemsUpdated, result.ItemsSkipped)
	for _, e := range result.Errors {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", e)
	}
	return nil
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chkd/chkd/internal/client"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	RepoPath string
	JSON     bool
}

// NewStatusCmd creates the status command.
func NewStatusCmd(app *App) *cobra.Command {
	var opts StatusOptions

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show one repo's coordination state",
		Long:  `Fetch the session, workers, and active signals from the running server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.showStatus(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.RepoPath, "repo", "", "repository path (default current directory)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "output as JSON instead of formatted text")
	return cmd
}

// fetchBoard gathers one snapshot of a repo's state from the server.
func (a *App) fetchBoard(ctx context.Context, c *client.Client, repoPath string) (*Board, error) {
	session, err := c.Session(ctx, repoPath)
	if err != nil {
		return nil, err
	}
	workers, err := c.Workers(ctx, repoPath)
	if err != nil {
		return nil, err
	}
	signals, err := c.Signals(ctx, repoPath)
	if err != nil {
		return nil, err
	}
	progress, err := c.Progress(ctx, repoPath)
	if err != nil {
		return nil, err
	}
	return &Board{
		RepoPath: repoPath,
		Session:  session,
		Workers:  workers,
		Signals:  signals,
		Progress: progress,
	}, nil
}

func (a *App) showStatus(cmd *cobra.Command, opts StatusOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	repoPath := opts.RepoPath
	if repoPath == "" {
		if repoPath, err = os.Getwd(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	board, err := a.fetchBoard(ctx, client.New(a.serverAddr(cfg)), repoPath)
	if err != nil {
		return err
	}

	if opts.JSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(board)
	}
	fmt.Fprint(cmd.OutOrStdout(), DefaultStyles().Render(board))
	return nil
}

package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/chkd/chkd/internal/cli/tui"
	"github.com/chkd/chkd/internal/client"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd(app *App) *cobra.Command {
	var repoPath string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live view of one repo's coordination state",
		Long:  `Poll the running server and render the session, workers, and signals as they change.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("watch needs a terminal; use `chkd status` for one-shot output")
			}
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			if repoPath == "" {
				if repoPath, err = os.Getwd(); err != nil {
					return err
				}
			}

			c := client.New(app.serverAddr(cfg))
			model := tui.NewModel(repoPath, func() (*tui.Snapshot, error) {
				board, err := app.fetchBoard(cmd.Context(), c, repoPath)
				if err != nil {
					return nil, err
				}
				return &tui.Snapshot{
					Session:  board.Session,
					Workers:  board.Workers,
					Signals:  board.Signals,
					Progress: board.Progress,
				}, nil
			})

			program := tea.NewProgram(model, tea.WithAltScreen())
			_, err = program.Run()
			return err
		},
	}

	cmd.Flags().StringVar(&repoPath, "repo", "", "repository path (default current directory)")
	return cmd
}

// Package cli wires the chkd commands.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/chkd/chkd/internal/config"
)

// App is the CLI application with its wired dependencies.
type App struct {
	rootCmd *cobra.Command

	addr    string
	verbose bool

	version string
	commit  string
	date    string
}

// New creates the CLI application.
func New() *App {
	app := &App{}
	app.setupRootCmd()
	return app
}

// Execute runs the CLI.
func (a *App) Execute() error {
	return a.rootCmd.Execute()
}

// SetVersion records build-time version information.
func (a *App) SetVersion(version, commit, date string) {
	a.version = version
	a.commit = commit
	a.date = date
}

func (a *App) setupRootCmd() {
	a.rootCmd = &cobra.Command{
		Use:   "chkd",
		Short: "Local multi-agent coordination service",
		Long: `chkd coordinates concurrent worker assistants: isolated git
worktrees per task, heartbeat liveness, and arbitrated merges back to
the default branch.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	a.rootCmd.PersistentFlags().StringVar(&a.addr, "addr", "",
		"chkd server address (default from config)")
	a.rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false,
		"verbose output")

	a.rootCmd.AddCommand(NewServeCmd(a))
	a.rootCmd.AddCommand(NewStatusCmd(a))
	a.rootCmd.AddCommand(NewWatchCmd(a))
	a.rootCmd.AddCommand(NewMigrateCmd(a))
	a.rootCmd.AddCommand(NewVersionCmd(a))
}

// loadConfig reads the configuration, honoring CHKD_* overrides.
func (a *App) loadConfig() (*config.Config, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// serverAddr is the address commands dial, --addr beating config.
func (a *App) serverAddr(cfg *config.Config) string {
	if a.addr != "" {
		return a.addr
	}
	return cfg.ListenAddr
}

// newLogger builds the process logger at the configured level.
func (a *App) newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if a.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

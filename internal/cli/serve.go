package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chkd/chkd/internal/clock"
	"github.com/chkd/chkd/internal/engine"
	"github.com/chkd/chkd/internal/git"
	"github.com/chkd/chkd/internal/store"
	"github.com/chkd/chkd/internal/web"
)

// NewServeCmd creates the serve command.
func NewServeCmd(app *App) *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the coordination server",
		Long: `Open the data directory, start the heartbeat sweeper, and serve
the HTTP API until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runServe(listenAddr)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (default from config)")
	return cmd
}

func (a *App) runServe(listenAddr string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if listenAddr == "" {
		listenAddr = cfg.ListenAddr
	}
	log := a.newLogger(cfg)

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	driver := git.NewDriver(git.NewRunner(cfg.GitConcurrency))
	eng := engine.New(cfg, st, driver, clock.System{}, log)
	srv := web.New(listenAddr, eng, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go eng.Sweeper().Run(ctx)

	if err := srv.Start(); err != nil {
		return err
	}
	log.Info().Str("dataDir", cfg.DataDir).Msg("chkd serving")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

// Package engine composes the store, registry, session manager, arbiter,
// and signal bus into the coordinator API the transports call.
package engine

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/chkd/chkd/internal/arbiter"
	"github.com/chkd/chkd/internal/clock"
	"github.com/chkd/chkd/internal/config"
	"github.com/chkd/chkd/internal/git"
	"github.com/chkd/chkd/internal/migrate"
	"github.com/chkd/chkd/internal/registry"
	"github.com/chkd/chkd/internal/session"
	"github.com/chkd/chkd/internal/signal"
	"github.com/chkd/chkd/internal/store"
)

// ioRetryDelay is the pause before the single retry of a transient
// store I/O failure.
const ioRetryDelay = 50 * time.Millisecond

// Engine is the coordinator facade. One value is built at startup and
// shared by every transport; it holds no per-request state.
type Engine struct {
	cfg      *config.Config
	store    *store.Store
	driver   git.Driver
	clock    clock.Clock
	bus      *signal.Bus
	registry *registry.Registry
	sessions *session.Manager
	queue    *session.Queue
	arbiter  *arbiter.Arbiter
	importer *migrate.Importer
	sweeper  *registry.Sweeper
	log      zerolog.Logger
}

// New wires the engine. Callers pass the driver and clock so tests can
// substitute fakes; production uses git.NewDriver(git.NewRunner(n)) and
// clock.System.
func New(cfg *config.Config, st *store.Store, drv git.Driver, clk clock.Clock, log zerolog.Logger) *Engine {
	st.SetClock(clk)
	bus := signal.NewBus(st, clk, log)
	return &Engine{
		cfg:      cfg,
		store:    st,
		driver:   drv,
		clock:    clk,
		bus:      bus,
		registry: registry.NewRegistry(st, clk, bus, log),
		sessions: session.NewManager(st, clk, log),
		queue:    session.NewQueue(),
		arbiter:  arbiter.New(st, drv, bus, clk, cfg.MergeLockTimeout(), log),
		importer: migrate.NewImporter(st, log),
		sweeper:  registry.NewSweeper(st, clk, bus, cfg.HeartbeatThreshold(), cfg.HeartbeatSweep(), log),
		log:      log,
	}
}

// Sweeper exposes the heartbeat sweeper for the serve command to run.
func (e *Engine) Sweeper() *registry.Sweeper {
	return e.sweeper
}

// retryIO runs fn and retries it once after a short pause when the
// store reports a transient I/O failure. Anything else passes through.
func retryIO[T any](fn func() (T, error)) (T, error) {
	v, err := fn()
	if err != nil && store.IsIO(err) {
		time.Sleep(ioRetryDelay)
		return fn()
	}
	return v, err
}

package engine

import "github.com/chkd/chkd/internal/store"

// Signals lists a repo's signals, all or active-only.
func (e *Engine) Signals(repoID string, activeOnly bool) ([]*store.Signal, error) {
	return retryIO(func() ([]*store.Signal, error) {
		if activeOnly {
			return e.bus.Active(repoID)
		}
		return e.bus.All(repoID)
	})
}

// DismissSignal marks one signal handled. Repeats are no-ops.
func (e *Engine) DismissSignal(id string) error {
	return e.bus.Dismiss(id)
}

// DismissAllSignals clears every active signal for a repo and reports
// how many were dismissed.
func (e *Engine) DismissAllSignals(repoID string) (int, error) {
	return e.bus.DismissAll(repoID)
}

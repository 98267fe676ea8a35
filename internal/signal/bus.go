// Package signal is the asynchronous channel between the coordination
// engine and the operator. Signals are durable rows; emitting never
// blocks on a consumer and dismissal is idempotent.
package signal

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/chkd/chkd/internal/clock"
	"github.com/chkd/chkd/internal/store"
)

// Input describes a signal to emit.
type Input struct {
	RepoID         string
	WorkerID       *string
	Type           store.SignalType
	Message        string
	Details        map[string]any
	ActionRequired bool
	ActionOptions  []string
}

// Bus emits and manages manager signals.
type Bus struct {
	store *store.Store
	clock clock.Clock
	log   zerolog.Logger
}

// NewBus builds a Bus over the given store.
func NewBus(st *store.Store, clk clock.Clock, log zerolog.Logger) *Bus {
	return &Bus{store: st, clock: clk, log: log}
}

func validType(t store.SignalType) bool {
	switch t {
	case store.SignalDecision, store.SignalHelp, store.SignalWarning, store.SignalInfo:
		return true
	}
	return false
}

// Emit persists a new signal and returns it.
func (b *Bus) Emit(in Input) (*store.Signal, error) {
	if !validType(in.Type) {
		return nil, fmt.Errorf("invalid signal type %q", in.Type)
	}
	if in.Message == "" {
		return nil, fmt.Errorf("signal message must not be empty")
	}

	now := b.clock.Now()
	sig := &store.Signal{
		ID:             store.NewSignalID(now),
		RepoID:         in.RepoID,
		WorkerID:       in.WorkerID,
		Type:           in.Type,
		Message:        in.Message,
		Details:        in.Details,
		ActionRequired: in.ActionRequired,
		ActionOptions:  in.ActionOptions,
		CreatedAt:      now,
	}
	if err := b.store.CreateSignal(sig); err != nil {
		return nil, fmt.Errorf("emit signal: %w", err)
	}

	b.log.Info().
		Str("signal", sig.ID).
		Str("type", string(sig.Type)).
		Str("repo", sig.RepoID).
		Msg(sig.Message)
	return sig, nil
}

// Active lists a repo's undismissed signals, newest first.
func (b *Bus) Active(repoID string) ([]*store.Signal, error) {
	return b.store.ActiveSignals(repoID)
}

// All lists every signal for a repo, dismissed included.
func (b *Bus) All(repoID string) ([]*store.Signal, error) {
	return b.store.AllSignals(repoID)
}

// Get returns one signal by id.
func (b *Bus) Get(id string) (*store.Signal, error) {
	return b.store.GetSignal(id)
}

// Dismiss marks a signal handled. Repeat calls are no-ops.
func (b *Bus) Dismiss(id string) error {
	return b.store.DismissSignal(id, b.clock.Now())
}

// DismissAll clears every active signal for a repo and returns the count.
func (b *Bus) DismissAll(repoID string) (int, error) {
	return b.store.DismissAllSignals(repoID, b.clock.Now())
}

// HasActive reports whether a worker already has an undismissed signal of
// the given type.
func (b *Bus) HasActive(workerID string, typ store.SignalType) (bool, error) {
	return b.store.HasActiveSignal(workerID, typ)
}

package registry

import (
	"fmt"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/chkd/chkd/internal/store"
)

var allStatuses = []store.WorkerStatus{
	store.WorkerPending, store.WorkerWaiting, store.WorkerWorking,
	store.WorkerPaused, store.WorkerMerging, store.WorkerMerged,
	store.WorkerError, store.WorkerCancelled,
}

// A random walk of caller-driven updates can only ever follow the state
// graph, never reach an arbiter-only state, and never move the
// heartbeat backwards.
func TestUpdateWalkRespectsStateGraph(t *testing.T) {
	f := newFixture(t)
	run := 0

	rapid.Check(t, func(rt *rapid.T) {
		run++
		// A fresh worker per run, on its own task and millisecond.
		f.clock.Advance(time.Millisecond)
		w, err := f.registry.Create(SpawnInput{
			Repo:      f.repo,
			Username:  "alex",
			TaskID:    fmt.Sprintf("SD.%d", run),
			TaskTitle: "walk",
		})
		if err != nil {
			rt.Fatalf("create: %v", err)
		}
		if _, err := f.registry.Activate(w.ID, "/wt", "feature/alex/walk"); err != nil {
			rt.Fatalf("activate: %v", err)
		}

		current := store.WorkerWaiting
		var lastHeartbeat time.Time

		steps := rapid.IntRange(1, 25).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			target := rapid.SampledFrom(allStatuses).Draw(rt, "target")
			f.clock.Advance(time.Second)

			updated, err := f.registry.Update(w.ID, UpdateInput{Status: &target})
			if CanTransition(current, target) && !arbiterOnly[target] {
				if err != nil {
					rt.Fatalf("transition %s -> %s rejected: %v", current, target, err)
				}
				current = target
			} else {
				if err == nil {
					rt.Fatalf("transition %s -> %s accepted", current, target)
				}
				if !store.IsConflict(err) {
					rt.Fatalf("transition %s -> %s failed with %v, want conflict", current, target, err)
				}
				continue
			}

			if updated.HeartbeatAt != nil {
				if updated.HeartbeatAt.Before(lastHeartbeat) {
					rt.Fatalf("heartbeat moved backwards: %v -> %v", lastHeartbeat, updated.HeartbeatAt)
				}
				lastHeartbeat = *updated.HeartbeatAt
			}
		}

		got, err := f.registry.Get(w.ID)
		if err != nil {
			rt.Fatalf("get: %v", err)
		}
		if got.Status != current {
			rt.Fatalf("stored status %s, model says %s", got.Status, current)
		}
	})
}

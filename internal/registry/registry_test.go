package registry

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chkd/chkd/internal/clock"
	"github.com/chkd/chkd/internal/signal"
	"github.com/chkd/chkd/internal/store"
)

type fixture struct {
	registry *Registry
	sweeper  *Sweeper
	store    *store.Store
	bus      *signal.Bus
	clock    *clock.Fake
	repo     *store.Repo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clk := clock.NewFake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	bus := signal.NewBus(st, clk, zerolog.Nop())
	repo, err := st.CreateRepo("/tmp/"+t.Name(), t.Name(), "main")
	require.NoError(t, err)

	return &fixture{
		registry: NewRegistry(st, clk, bus, zerolog.Nop()),
		sweeper:  NewSweeper(st, clk, bus, 2*time.Minute, 15*time.Second, zerolog.Nop()),
		store:    st,
		bus:      bus,
		clock:    clk,
		repo:     repo,
	}
}

func (f *fixture) spawn(t *testing.T, taskID string) *store.Worker {
	t.Helper()
	w, err := f.registry.Create(SpawnInput{
		Repo: f.repo, Username: "alex", TaskID: taskID, TaskTitle: "task " + taskID,
	})
	require.NoError(t, err)
	return w
}

func (f *fixture) setStatus(t *testing.T, id string, status store.WorkerStatus) *store.Worker {
	t.Helper()
	w, err := f.registry.Update(id, UpdateInput{Status: &status})
	require.NoError(t, err)
	return w
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]store.WorkerStatus{
		{store.WorkerPending, store.WorkerWaiting},
		{store.WorkerWaiting, store.WorkerWorking},
		{store.WorkerWorking, store.WorkerPaused},
		{store.WorkerPaused, store.WorkerWorking},
		{store.WorkerWorking, store.WorkerMerging},
		{store.WorkerPaused, store.WorkerMerging},
		{store.WorkerMerging, store.WorkerMerged},
		{store.WorkerMerging, store.WorkerPaused},
		{store.WorkerWorking, store.WorkerCancelled},
		{store.WorkerWorking, store.WorkerError},
	}
	for _, pair := range allowed {
		assert.True(t, CanTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}

	denied := [][2]store.WorkerStatus{
		{store.WorkerPending, store.WorkerWorking},
		{store.WorkerWaiting, store.WorkerMerging},
		{store.WorkerWaiting, store.WorkerPaused},
		{store.WorkerMerged, store.WorkerWorking},
		{store.WorkerError, store.WorkerWaiting},
		{store.WorkerCancelled, store.WorkerPending},
		{store.WorkerMerging, store.WorkerWorking},
	}
	for _, pair := range denied {
		assert.False(t, CanTransition(pair[0], pair[1]), "%s -> %s", pair[0], pair[1])
	}
}

func TestCreateWorker(t *testing.T) {
	f := newFixture(t)

	w := f.spawn(t, "SD.1")
	assert.Equal(t, store.WorkerPending, w.Status)
	assert.Contains(t, w.ID, "worker-alex-")
	require.NotNil(t, w.TaskID)
	assert.Equal(t, "SD.1", *w.TaskID)
}

func TestCreateRejectsDuplicateActiveTask(t *testing.T) {
	f := newFixture(t)

	f.spawn(t, "SD.1")
	_, err := f.registry.Create(SpawnInput{
		Repo: f.repo, Username: "sam", TaskID: "SD.1", TaskTitle: "same task",
	})
	require.Error(t, err)
	assert.True(t, store.IsConflict(err))
}

func TestCreateAllowsRespawnAfterTerminal(t *testing.T) {
	f := newFixture(t)

	w := f.spawn(t, "SD.1")
	_, err := f.registry.Activate(w.ID, "/tmp/wt", "feature/alex/sd1")
	require.NoError(t, err)
	f.setStatus(t, w.ID, store.WorkerWorking)
	f.setStatus(t, w.ID, store.WorkerCancelled)

	// Terminal worker no longer blocks the task.
	w2 := f.spawn(t, "SD.1")
	assert.NotEqual(t, w.ID, w2.ID)
}

func TestActivate(t *testing.T) {
	f := newFixture(t)
	w := f.spawn(t, "SD.1")

	activated, err := f.registry.Activate(w.ID, "/tmp/app-alex-1", "feature/alex/sd1-x")
	require.NoError(t, err)
	assert.Equal(t, store.WorkerWaiting, activated.Status)
	require.NotNil(t, activated.WorktreePath)
	assert.Equal(t, "/tmp/app-alex-1", *activated.WorktreePath)
	require.NotNil(t, activated.BranchName)

	// Activating twice misses the pending guard.
	_, err = f.registry.Activate(w.ID, "/tmp/other", "feature/alex/sd1-x")
	require.Error(t, err)
	assert.True(t, store.IsConflict(err))
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newFixture(t)
	w := f.spawn(t, "SD.1")
	_, err := f.registry.Activate(w.ID, "/tmp/wt", "feature/alex/sd1")
	require.NoError(t, err)

	// waiting -> working -> paused -> working
	updated := f.setStatus(t, w.ID, store.WorkerWorking)
	assert.Equal(t, store.WorkerWorking, updated.Status)
	updated = f.setStatus(t, w.ID, store.WorkerPaused)
	assert.Equal(t, store.WorkerPaused, updated.Status)
	updated = f.setStatus(t, w.ID, store.WorkerWorking)
	assert.Equal(t, store.WorkerWorking, updated.Status)

	// waiting -> paused is not in the graph.
	w2 := f.spawn(t, "SD.2")
	_, err = f.registry.Activate(w2.ID, "/tmp/wt2", "feature/alex/sd2")
	require.NoError(t, err)
	paused := store.WorkerPaused
	_, err = f.registry.Update(w2.ID, UpdateInput{Status: &paused})
	require.Error(t, err)
	assert.True(t, store.IsConflict(err))
}

func TestUpdateRejectsArbiterOnlyStatuses(t *testing.T) {
	f := newFixture(t)
	w := f.spawn(t, "SD.1")
	_, err := f.registry.Activate(w.ID, "/tmp/wt", "feature/alex/sd1")
	require.NoError(t, err)
	f.setStatus(t, w.ID, store.WorkerWorking)

	for _, status := range []store.WorkerStatus{store.WorkerMerging, store.WorkerMerged, store.WorkerError} {
		s := status
		_, err := f.registry.Update(w.ID, UpdateInput{Status: &s})
		require.Error(t, err, string(status))
		assert.True(t, store.IsConflict(err), string(status))
	}
}

func TestUpdateRejectsPendingTarget(t *testing.T) {
	f := newFixture(t)
	w := f.spawn(t, "SD.1")
	_, err := f.registry.Activate(w.ID, "/tmp/wt", "feature/alex/sd1")
	require.NoError(t, err)

	// No edge leads back to pending, from any status.
	pending := store.WorkerPending
	_, err = f.registry.Update(w.ID, UpdateInput{Status: &pending})
	require.Error(t, err)
	assert.True(t, store.IsConflict(err))

	f.setStatus(t, w.ID, store.WorkerWorking)
	cancelled := store.WorkerCancelled
	_, err = f.registry.Update(w.ID, UpdateInput{Status: &cancelled})
	require.NoError(t, err)

	// Terminal workers stay terminal.
	_, err = f.registry.Update(w.ID, UpdateInput{Status: &pending})
	require.Error(t, err)
	assert.True(t, store.IsConflict(err))

	got, err := f.registry.Get(w.ID)
	require.NoError(t, err)
	assert.Equal(t, store.WorkerCancelled, got.Status)
}

func TestUpdateValidatesInput(t *testing.T) {
	f := newFixture(t)
	w := f.spawn(t, "SD.1")

	over := 101
	_, err := f.registry.Update(w.ID, UpdateInput{Progress: &over})
	require.Error(t, err)

	bogus := store.WorkerStatus("sleeping")
	_, err = f.registry.Update(w.ID, UpdateInput{Status: &bogus})
	require.Error(t, err)
}

func TestWorkingStampsStartedAtOnce(t *testing.T) {
	f := newFixture(t)
	w := f.spawn(t, "SD.1")
	_, err := f.registry.Activate(w.ID, "/tmp/wt", "feature/alex/sd1")
	require.NoError(t, err)

	updated := f.setStatus(t, w.ID, store.WorkerWorking)
	require.NotNil(t, updated.StartedAt)
	firstStart := *updated.StartedAt

	// Pausing and resuming keeps the original startedAt.
	f.clock.Advance(time.Hour)
	f.setStatus(t, w.ID, store.WorkerPaused)
	updated = f.setStatus(t, w.ID, store.WorkerWorking)
	require.NotNil(t, updated.StartedAt)
	assert.Equal(t, firstStart, *updated.StartedAt)
}

func TestHeartbeatRefreshes(t *testing.T) {
	f := newFixture(t)
	w := f.spawn(t, "SD.1")

	beat1, err := f.registry.Heartbeat(w.ID)
	require.NoError(t, err)
	require.NotNil(t, beat1.HeartbeatAt)

	f.clock.Advance(time.Minute)
	beat2, err := f.registry.Heartbeat(w.ID)
	require.NoError(t, err)
	assert.True(t, beat2.HeartbeatAt.After(*beat1.HeartbeatAt))
	assert.Equal(t, store.WorkerPending, beat2.Status)
}

func TestSweepFlagsStaleWorkers(t *testing.T) {
	f := newFixture(t)
	w := f.spawn(t, "SD.1")
	_, err := f.registry.Activate(w.ID, "/tmp/wt", "feature/alex/sd1")
	require.NoError(t, err)
	f.setStatus(t, w.ID, store.WorkerWorking)

	// Fresh heartbeat: nothing to flag.
	require.NoError(t, f.sweeper.Sweep())
	active, err := f.bus.Active(f.repo.ID)
	require.NoError(t, err)
	assert.Empty(t, active)

	// Past the threshold the sweeper emits one warning.
	f.clock.Advance(3 * time.Minute)
	require.NoError(t, f.sweeper.Sweep())
	active, err = f.bus.Active(f.repo.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	sig := active[0]
	assert.Equal(t, store.SignalWarning, sig.Type)
	assert.True(t, sig.ActionRequired)
	assert.Equal(t, []string{"resume", "stop"}, sig.ActionOptions)
	require.NotNil(t, sig.WorkerID)
	assert.Equal(t, w.ID, *sig.WorkerID)

	// Repeat sweeps do not duplicate the warning.
	f.clock.Advance(time.Minute)
	require.NoError(t, f.sweeper.Sweep())
	active, err = f.bus.Active(f.repo.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	// Dismissing the warning re-arms the sweeper.
	require.NoError(t, f.bus.Dismiss(sig.ID))
	require.NoError(t, f.sweeper.Sweep())
	active, err = f.bus.Active(f.repo.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestSweepIgnoresNonRunningStatuses(t *testing.T) {
	f := newFixture(t)
	w := f.spawn(t, "SD.1")
	_, err := f.registry.Activate(w.ID, "/tmp/wt", "feature/alex/sd1")
	require.NoError(t, err)

	// Waiting workers are not swept however stale they are.
	f.clock.Advance(time.Hour)
	require.NoError(t, f.sweeper.Sweep())
	active, err := f.bus.Active(f.repo.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestDeleteWorker(t *testing.T) {
	f := newFixture(t)
	w := f.spawn(t, "SD.1")

	err := f.registry.Delete(w.ID, false)
	require.Error(t, err)
	assert.True(t, store.IsConflict(err))

	require.NoError(t, f.registry.Delete(w.ID, true))
	_, err = f.registry.Get(w.ID)
	assert.True(t, store.IsNotFound(err))
}

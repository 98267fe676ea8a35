package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chkd/chkd/internal/clock"
	"github.com/chkd/chkd/internal/config"
	"github.com/chkd/chkd/internal/git"
	"github.com/chkd/chkd/internal/item"
	"github.com/chkd/chkd/internal/registry"
	"github.com/chkd/chkd/internal/store"
)

// fakeDriver provisions scripted worktrees and records cleanup calls.
type fakeDriver struct {
	createErr error
	created   []git.Worktree
	removed   []string
	deleted   []string
	nextN     int
}

func (d *fakeDriver) CreateWorktree(_ context.Context, repoPath, defaultBranch, username, displayID, title string) (*git.Worktree, error) {
	if d.createErr != nil {
		return nil, d.createErr
	}
	d.nextN++
	wt := git.Worktree{
		Path:   git.WorktreePath(repoPath, username, d.nextN),
		Branch: git.BranchName(username, displayID, title),
	}
	d.created = append(d.created, wt)
	return &wt, nil
}

func (d *fakeDriver) RemoveWorktree(_ context.Context, _, worktreePath string, _ bool) error {
	d.removed = append(d.removed, worktreePath)
	return nil
}

func (d *fakeDriver) DeleteBranch(_ context.Context, _, branch string) error {
	d.deleted = append(d.deleted, branch)
	return nil
}

func (d *fakeDriver) DryRunMerge(context.Context, string, string, string) (*git.MergeCheck, error) {
	return &git.MergeCheck{Clean: true}, nil
}

func (d *fakeDriver) ApplyMerge(context.Context, string, string, string, git.Strategy) error {
	return nil
}

func (d *fakeDriver) AbortMerge(context.Context, string) error { return nil }

func (d *fakeDriver) Stats(context.Context, string, string, string) (*git.Stats, error) {
	return &git.Stats{}, nil
}

type fixture struct {
	engine *Engine
	store  *store.Store
	driver *fakeDriver
	clock  *clock.Fake
	repo   *store.Repo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := config.DefaultConfig()
	drv := &fakeDriver{}
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	eng := New(cfg, st, drv, clk, zerolog.Nop())

	repo, err := eng.AddRepo(t.TempDir(), "app", "main")
	require.NoError(t, err)

	return &fixture{engine: eng, store: st, driver: drv, clock: clk, repo: repo}
}

func (f *fixture) createItem(t *testing.T, area, title string) *ItemDetail {
	t.Helper()
	it, err := f.engine.CreateItem(CreateItemInput{RepoID: f.repo.ID, Area: area, Title: title})
	require.NoError(t, err)
	return it
}

func TestAddRepoDefaults(t *testing.T) {
	f := newFixture(t)

	dir := t.TempDir()
	repo, err := f.engine.AddRepo(dir, "", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(dir), repo.DisplayName)
	assert.Equal(t, "main", repo.DefaultBranch)

	_, err = f.engine.AddRepo(dir, "again", "main")
	assert.True(t, store.IsConflict(err))

	_, err = f.engine.AddRepo(filepath.Join(dir, "missing"), "", "")
	require.Error(t, err)

	got, err := f.engine.RepoByPath(dir)
	require.NoError(t, err)
	assert.Equal(t, repo.ID, got.ID)
}

func TestCreateItemAssignsDisplayID(t *testing.T) {
	f := newFixture(t)

	first := f.createItem(t, "SD", "Feature A")
	second := f.createItem(t, "SD", "Feature B")
	assert.Equal(t, "SD.1", first.DisplayID)
	assert.Equal(t, "SD.2", second.DisplayID)

	_, err := f.engine.CreateItem(CreateItemInput{RepoID: f.repo.ID, Area: "QA", Title: "x"})
	require.Error(t, err)
	_, err = f.engine.CreateItem(CreateItemInput{RepoID: f.repo.ID, Area: "SD"})
	require.Error(t, err)
}

func TestItemLookupNormalizes(t *testing.T) {
	f := newFixture(t)
	f.createItem(t, "SD", "Feature A")

	got, err := f.engine.Item(f.repo.ID, "sd1")
	require.NoError(t, err)
	assert.Equal(t, "SD.1", got.DisplayID)

	_, err = f.engine.Item(f.repo.ID, "doesnotexist")
	assert.True(t, store.IsNotFound(err))
}

func TestAddChildNumbersPastGaps(t *testing.T) {
	f := newFixture(t)
	parent := f.createItem(t, "SD", "Parent")

	c1, err := f.engine.AddChild(parent.ID, "one", nil)
	require.NoError(t, err)
	c2, err := f.engine.AddChild(parent.ID, "two", nil)
	require.NoError(t, err)
	assert.Equal(t, "SD.1.1", c1.DisplayID)
	assert.Equal(t, "SD.1.2", c2.DisplayID)

	// Removing the first child leaves SD.1.2 occupied; the next child
	// must skip past it instead of colliding.
	require.NoError(t, f.engine.DeleteItem(c1.ID))
	c3, err := f.engine.AddChild(parent.ID, "three", nil)
	require.NoError(t, err)
	assert.Equal(t, "SD.1.3", c3.DisplayID)
}

func TestTBCCheck(t *testing.T) {
	f := newFixture(t)

	bare := f.createItem(t, "SD", "bare")
	missing, err := f.engine.TBCCheck(bare.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"keyRequirements", "filesToChange", "testing"}, missing)

	full, err := f.engine.CreateItem(CreateItemInput{
		RepoID:          f.repo.ID,
		Area:            "SD",
		Title:           "full",
		KeyRequirements: []string{"do the thing"},
		FilesToChange:   []string{"main.go"},
		Testing:         []string{"unit"},
	})
	require.NoError(t, err)
	missing, err = f.engine.TBCCheck(full.ID)
	require.NoError(t, err)
	assert.Empty(t, missing)

	placeholder, err := f.engine.CreateItem(CreateItemInput{
		RepoID:          f.repo.ID,
		Area:            "SD",
		Title:           "tbc",
		KeyRequirements: []string{"TBC"},
		FilesToChange:   []string{"main.go"},
		Testing:         []string{"unit"},
	})
	require.NoError(t, err)
	missing, err = f.engine.TBCCheck(placeholder.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"keyRequirements"}, missing)
}

func TestSpawnWorker(t *testing.T) {
	f := newFixture(t)
	f.createItem(t, "SD", "Feature A")

	w, err := f.engine.SpawnWorker(context.Background(), SpawnRequest{
		RepoPath: f.repo.AbsolutePath,
		TaskID:   "sd1",
		Username: "alex",
	})
	require.NoError(t, err)
	assert.Equal(t, store.WorkerWaiting, w.Status)
	require.NotNil(t, w.TaskID)
	assert.Equal(t, "SD.1", *w.TaskID)
	require.NotNil(t, w.BranchName)
	assert.Equal(t, "feature/alex/sd1-feature-a", *w.BranchName)
	require.NotNil(t, w.WorktreePath)

	signals, err := f.engine.Signals(f.repo.ID, true)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, store.SignalInfo, signals[0].Type)
	assert.Equal(t, "SD.1", signals[0].Details["taskId"])

	// The task already has an active worker.
	_, err = f.engine.SpawnWorker(context.Background(), SpawnRequest{
		RepoPath: f.repo.AbsolutePath,
		TaskID:   "SD.1",
		Username: "sam",
	})
	assert.True(t, store.IsConflict(err))
}

func TestSpawnWorkerCleansUpOnProvisionFailure(t *testing.T) {
	f := newFixture(t)
	f.createItem(t, "SD", "Feature A")
	f.driver.createErr = fmt.Errorf("disk full")

	_, err := f.engine.SpawnWorker(context.Background(), SpawnRequest{
		RepoPath: f.repo.AbsolutePath,
		TaskID:   "SD.1",
		Username: "alex",
	})
	require.Error(t, err)

	workers, err := f.engine.Workers(f.repo.ID)
	require.NoError(t, err)
	assert.Empty(t, workers)

	// The task is free again once the driver recovers.
	f.driver.createErr = nil
	_, err = f.engine.SpawnWorker(context.Background(), SpawnRequest{
		RepoPath: f.repo.AbsolutePath,
		TaskID:   "SD.1",
		Username: "alex",
	})
	require.NoError(t, err)
}

func TestDeleteWorkerCleansUpProvisioning(t *testing.T) {
	f := newFixture(t)
	f.createItem(t, "SD", "Feature A")
	w, err := f.engine.SpawnWorker(context.Background(), SpawnRequest{
		RepoPath: f.repo.AbsolutePath,
		TaskID:   "SD.1",
		Username: "alex",
	})
	require.NoError(t, err)

	require.NoError(t, f.engine.DeleteWorker(context.Background(), w.ID, true))
	assert.Equal(t, []string{*w.WorktreePath}, f.driver.removed)
	assert.Equal(t, []string{*w.BranchName}, f.driver.deleted)
	_, err = f.engine.Worker(w.ID)
	assert.True(t, store.IsNotFound(err))
}

func TestDeadWorkersUsesConfiguredThreshold(t *testing.T) {
	f := newFixture(t)
	f.createItem(t, "SD", "Feature A")
	w, err := f.engine.SpawnWorker(context.Background(), SpawnRequest{
		RepoPath: f.repo.AbsolutePath,
		TaskID:   "SD.1",
		Username: "alex",
	})
	require.NoError(t, err)
	working := store.WorkerWorking
	_, err = f.engine.UpdateWorker(w.ID, registry.UpdateInput{Status: &working})
	require.NoError(t, err)

	dead, err := f.engine.DeadWorkers(f.repo.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, dead)

	f.clock.Advance(3 * time.Minute)
	dead, err = f.engine.DeadWorkers(f.repo.ID, 0)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, w.ID, dead[0].ID)
}

func TestWorkingOnResolvesItem(t *testing.T) {
	f := newFixture(t)
	f.createItem(t, "SD", "Feature A")
	_, err := f.engine.StartSession(f.repo.ID, "SD.1", "Feature A")
	require.NoError(t, err)

	view, err := f.engine.WorkingOn(f.repo.ID, "sd1")
	require.NoError(t, err)
	require.NotNil(t, view.CurrentItem)
	assert.Equal(t, "SD.1", *view.CurrentItem)
	// The task pointer holds the display id, never the title.
	require.NotNil(t, view.CurrentTask)
	assert.Equal(t, "SD.1", *view.CurrentTask)

	_, err = f.engine.WorkingOn(f.repo.ID, "sd99")
	assert.True(t, store.IsNotFound(err))
}

func TestDoneItemRecordsDuration(t *testing.T) {
	f := newFixture(t)
	it := f.createItem(t, "SD", "Feature A")
	_, err := f.engine.StartSession(f.repo.ID, "SD.1", "Feature A")
	require.NoError(t, err)
	_, err = f.engine.WorkingOn(f.repo.ID, "SD.1")
	require.NoError(t, err)

	f.clock.Advance(90 * time.Second)
	done := item.StatusDone
	_, err = f.engine.UpdateItem(it.ID, store.ItemUpdate{Status: &done})
	require.NoError(t, err)

	d, err := f.store.GetItemDuration(it.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(90_000), d.DurationMs)
}

func TestDoneItemWithoutSessionSkipsDuration(t *testing.T) {
	f := newFixture(t)
	it := f.createItem(t, "SD", "Feature A")

	done := item.StatusDone
	_, err := f.engine.UpdateItem(it.ID, store.ItemUpdate{Status: &done})
	require.NoError(t, err)

	_, err = f.store.GetItemDuration(it.ID)
	assert.True(t, store.IsNotFound(err))
}

func TestAnchorTracking(t *testing.T) {
	f := newFixture(t)
	f.createItem(t, "SD", "Feature A")
	f.createItem(t, "SD", "Feature B")

	_, err := f.engine.StartSession(f.repo.ID, "SD.1", "Feature A")
	require.NoError(t, err)
	_, err = f.engine.SetAnchor(f.repo.ID, "sd2", "ui")
	require.NoError(t, err)

	track, err := f.engine.Anchor(f.repo.ID)
	require.NoError(t, err)
	assert.False(t, track.OnTrack)

	_, err = f.engine.WorkingOn(f.repo.ID, "SD.2")
	require.NoError(t, err)
	track, err = f.engine.Anchor(f.repo.ID)
	require.NoError(t, err)
	assert.True(t, track.OnTrack)
}

func TestQueueLifecycle(t *testing.T) {
	f := newFixture(t)

	qi, err := f.engine.QueueAdd(f.repo.ID, "polish the readme")
	require.NoError(t, err)
	require.Len(t, f.engine.QueueList(f.repo.ID), 1)

	require.NoError(t, f.engine.QueueRemove(f.repo.ID, qi.ID))
	assert.Empty(t, f.engine.QueueList(f.repo.ID))
	assert.Error(t, f.engine.QueueRemove(f.repo.ID, qi.ID))
}

func TestMigrateThroughEngine(t *testing.T) {
	f := newFixture(t)
	docs := filepath.Join(f.repo.AbsolutePath, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "SPEC.md"),
		[]byte("## SD - x\n\n- [ ] **Feature A**\n"), 0o644))

	parsed, err := f.engine.MigratePreview(f.repo.AbsolutePath, "")
	require.NoError(t, err)
	require.Len(t, parsed.Areas, 1)

	result, err := f.engine.MigrateRun(f.repo.AbsolutePath, "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsImported)

	it, err := f.engine.Item(f.repo.ID, "SD.1")
	require.NoError(t, err)
	assert.Equal(t, "Feature A", it.Title)
}

func TestProgressIgnoresSkipped(t *testing.T) {
	f := newFixture(t)
	a := f.createItem(t, "SD", "a")
	f.createItem(t, "SD", "b")
	c := f.createItem(t, "SD", "c")

	done := item.StatusDone
	_, err := f.engine.UpdateItem(a.ID, store.ItemUpdate{Status: &done})
	require.NoError(t, err)
	skipped := item.StatusSkipped
	_, err = f.engine.UpdateItem(c.ID, store.ItemUpdate{Status: &skipped})
	require.NoError(t, err)

	progress, err := f.engine.Progress(f.repo.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, progress.Total)
	assert.Equal(t, 1, progress.Done)
}

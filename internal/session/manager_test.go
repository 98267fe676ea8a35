package session

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chkd/chkd/internal/clock"
	"github.com/chkd/chkd/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *store.Store, *clock.Fake) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clk := clock.NewFake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	return NewManager(st, clk, zerolog.Nop()), st, clk
}

func newRepo(t *testing.T, st *store.Store) *store.Repo {
	t.Helper()
	repo, err := st.CreateRepo("/tmp/"+t.Name(), t.Name(), "main")
	require.NoError(t, err)
	return repo
}

func TestGetSynthesizesIdleSession(t *testing.T) {
	m, st, _ := newTestManager(t)
	repo := newRepo(t, st)

	sess, err := m.Get(repo.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SessionIdle, sess.Status)
	assert.Nil(t, sess.CurrentTask)
	assert.Nil(t, sess.Anchor)
	assert.Empty(t, sess.AlsoDid)
}

func TestStartResetsSession(t *testing.T) {
	m, st, clk := newTestManager(t)
	repo := newRepo(t, st)

	_, err := m.AddAlsoDid(repo.ID, "unrelated fix")
	require.NoError(t, err)

	sess, err := m.Start(repo.ID, "SD.1", "feature A")
	require.NoError(t, err)
	assert.Equal(t, store.SessionBuilding, sess.Status)
	require.NotNil(t, sess.CurrentTask)
	assert.Equal(t, "SD.1", *sess.CurrentTask)
	require.NotNil(t, sess.Mode)
	assert.Equal(t, store.ModeBuilding, *sess.Mode)
	require.NotNil(t, sess.StartTime)
	assert.Equal(t, clk.Now(), *sess.StartTime)
	assert.Equal(t, 1, sess.Iteration)
	assert.Empty(t, sess.AlsoDid)
}

func TestStartPreservesAnchor(t *testing.T) {
	m, st, _ := newTestManager(t)
	repo := newRepo(t, st)

	_, err := m.SetAnchor(repo.ID, "SD.2", "other work", "ui")
	require.NoError(t, err)

	sess, err := m.Start(repo.ID, "SD.1", "feature A")
	require.NoError(t, err)
	require.NotNil(t, sess.Anchor)
	assert.Equal(t, "SD.2", sess.Anchor.TaskID)
}

func TestClearResetsToIdle(t *testing.T) {
	m, st, _ := newTestManager(t)
	repo := newRepo(t, st)

	_, err := m.Start(repo.ID, "SD.1", "feature A")
	require.NoError(t, err)
	_, err = m.SetAnchor(repo.ID, "SD.1", "feature A", "cli")
	require.NoError(t, err)

	sess, err := m.Clear(repo.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SessionIdle, sess.Status)
	assert.Nil(t, sess.CurrentTask)
	assert.Nil(t, sess.Anchor)

	// The cleared state is persisted.
	got, err := m.Get(repo.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SessionIdle, got.Status)
	assert.Nil(t, got.Anchor)
}

func TestApplyRefreshesActivityAndItemStart(t *testing.T) {
	m, st, clk := newTestManager(t)
	repo := newRepo(t, st)

	_, err := m.Start(repo.ID, "SD.1", "feature A")
	require.NoError(t, err)

	clk.Advance(5 * time.Minute)
	item := "SD.1.2"
	sess, err := m.Apply(repo.ID, Update{CurrentItem: &item})
	require.NoError(t, err)
	require.NotNil(t, sess.CurrentItem)
	assert.Equal(t, "SD.1.2", *sess.CurrentItem)
	require.NotNil(t, sess.CurrentItemStartTime)
	assert.Equal(t, clk.Now(), *sess.CurrentItemStartTime)
	assert.Equal(t, clk.Now(), sess.LastActivity)
}

func TestApplyIdleClearsCurrentTask(t *testing.T) {
	m, st, _ := newTestManager(t)
	repo := newRepo(t, st)

	_, err := m.Start(repo.ID, "SD.1", "feature A")
	require.NoError(t, err)

	idle := store.SessionIdle
	sess, err := m.Apply(repo.ID, Update{Status: &idle})
	require.NoError(t, err)
	assert.Nil(t, sess.CurrentTask)
}

func TestApplyLeavingIdleSetsStartTime(t *testing.T) {
	m, st, clk := newTestManager(t)
	repo := newRepo(t, st)

	building := store.SessionBuilding
	sess, err := m.Apply(repo.ID, Update{Status: &building})
	require.NoError(t, err)
	require.NotNil(t, sess.StartTime)
	assert.Equal(t, clk.Now(), *sess.StartTime)
}

func TestApplyRejectsInvalidValues(t *testing.T) {
	m, st, _ := newTestManager(t)
	repo := newRepo(t, st)

	bad := store.SessionStatus("melting")
	_, err := m.Apply(repo.ID, Update{Status: &bad})
	require.Error(t, err)

	badMode := store.SessionMode("panicking")
	_, err = m.Apply(repo.ID, Update{Mode: &badMode})
	require.Error(t, err)
}

func TestAddAlsoDid(t *testing.T) {
	m, st, _ := newTestManager(t)
	repo := newRepo(t, st)

	_, err := m.AddAlsoDid(repo.ID, "  ")
	require.Error(t, err)

	sess, err := m.AddAlsoDid(repo.ID, "fixed flaky test")
	require.NoError(t, err)
	sess, err = m.AddAlsoDid(repo.ID, "bumped linter")
	require.NoError(t, err)
	assert.Equal(t, []string{"fixed flaky test", "bumped linter"}, sess.AlsoDid)
}

func TestOnTrack(t *testing.T) {
	m, st, _ := newTestManager(t)
	repo := newRepo(t, st)

	// No anchor: always on-track.
	report, err := m.OnTrack(repo.ID)
	require.NoError(t, err)
	assert.True(t, report.OnTrack)

	// Idle with an anchor: off-track.
	_, err = m.SetAnchor(repo.ID, "SD.37", "big feature", "ui")
	require.NoError(t, err)
	report, err = m.OnTrack(repo.ID)
	require.NoError(t, err)
	assert.False(t, report.OnTrack)
	require.NotNil(t, report.Anchor)
	assert.Equal(t, "SD.37", report.Anchor.TaskID)

	// Working the anchored task: on-track.
	_, err = m.Start(repo.ID, "SD.37", "big feature")
	require.NoError(t, err)
	report, err = m.OnTrack(repo.ID)
	require.NoError(t, err)
	assert.True(t, report.OnTrack)

	// A descendant by display id is on-track.
	task := "SD.37.2"
	_, err = m.Apply(repo.ID, Update{CurrentTask: &task})
	require.NoError(t, err)
	report, err = m.OnTrack(repo.ID)
	require.NoError(t, err)
	assert.True(t, report.OnTrack)

	// A lookalike prefix is not a descendant.
	task = "SD.370"
	_, err = m.Apply(repo.ID, Update{CurrentTask: &task})
	require.NoError(t, err)
	report, err = m.OnTrack(repo.ID)
	require.NoError(t, err)
	assert.False(t, report.OnTrack)

	// Clearing the anchor restores on-track.
	_, err = m.ClearAnchor(repo.ID)
	require.NoError(t, err)
	report, err = m.OnTrack(repo.ID)
	require.NoError(t, err)
	assert.True(t, report.OnTrack)
}

func TestSetAnchorValidatesSource(t *testing.T) {
	m, st, _ := newTestManager(t)
	repo := newRepo(t, st)

	_, err := m.SetAnchor(repo.ID, "SD.1", "t", "email")
	require.Error(t, err)
}

func TestElapsedMs(t *testing.T) {
	m, st, clk := newTestManager(t)
	repo := newRepo(t, st)

	sess, err := m.Get(repo.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.ElapsedMs(sess))

	sess, err = m.Start(repo.ID, "SD.1", "feature A")
	require.NoError(t, err)
	clk.Advance(90 * time.Second)
	assert.Equal(t, int64(90_000), m.ElapsedMs(sess))
}

func TestQueue(t *testing.T) {
	q := NewQueue()

	_, err := q.Add("r1", " ")
	require.Error(t, err)

	a, err := q.Add("r1", "check the logs")
	require.NoError(t, err)
	b, err := q.Add("r1", "tidy naming")
	require.NoError(t, err)
	_, err = q.Add("r2", "other repo entry")
	require.NoError(t, err)

	items := q.List("r1")
	require.Len(t, items, 2)
	assert.Equal(t, []string{a.Title, b.Title}, []string{items[0].Title, items[1].Title})
	assert.NotEqual(t, a.ID, b.ID)

	require.NoError(t, q.Remove("r1", a.ID))
	require.Error(t, q.Remove("r1", a.ID))
	assert.Len(t, q.List("r1"), 1)

	q.Clear("r1")
	assert.Empty(t, q.List("r1"))
	assert.Len(t, q.List("r2"), 1)
}

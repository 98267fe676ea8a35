package tui

import (
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chkd/chkd/internal/engine"
	"github.com/chkd/chkd/internal/store"
)

func snapshot() *Snapshot {
	taskID := "SD.1"
	return &Snapshot{
		Session: &engine.SessionView{
			Session: &store.Session{Status: store.SessionBuilding, CurrentTask: &taskID},
			OnTrack: true,
		},
		Workers: []*store.Worker{
			{ID: "worker-alex-1-abcd", Status: store.WorkerWorking, TaskID: &taskID, Progress: 40},
		},
		Signals:  []*store.Signal{{Type: store.SignalHelp, Message: "merge conflicts"}},
		Progress: &store.Progress{Total: 3, Done: 1, Percent: 33},
	}
}

func TestViewStates(t *testing.T) {
	m := NewModel("/r", func() (*Snapshot, error) { return snapshot(), nil })

	assert.Contains(t, m.View(), "loading")

	updated, _ := m.Update(SnapshotMsg{Snapshot: snapshot()})
	m = updated.(*Model)
	out := m.View()
	assert.Contains(t, out, "worker-alex-1-abcd")
	assert.Contains(t, out, "merge conflicts")
	assert.Contains(t, out, "1/3 done")

	updated, _ = m.Update(ErrMsg{Err: fmt.Errorf("server unreachable")})
	m = updated.(*Model)
	assert.Contains(t, m.View(), "server unreachable")
}

func TestQuitKeys(t *testing.T) {
	m := NewModel("/r", func() (*Snapshot, error) { return nil, nil })

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = updated.(*Model)
	assert.True(t, m.Quitting)
	require.NotNil(t, cmd)
	assert.Equal(t, "", m.View())
}

func TestPollDeliversSnapshot(t *testing.T) {
	m := NewModel("/r", func() (*Snapshot, error) { return snapshot(), nil })
	msg := m.pollCmd()()
	snap, ok := msg.(SnapshotMsg)
	require.True(t, ok)
	assert.NotNil(t, snap.Snapshot)

	m.fetch = func() (*Snapshot, error) { return nil, fmt.Errorf("boom") }
	msg = m.pollCmd()()
	_, ok = msg.(ErrMsg)
	assert.True(t, ok)
}

// Package tui renders the live watch view over the chkd API.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chkd/chkd/internal/engine"
	"github.com/chkd/chkd/internal/store"
)

// pollInterval is how often the watch view refreshes.
const pollInterval = 2 * time.Second

// Snapshot is one fetched view of a repo's coordination state.
type Snapshot struct {
	Session  *engine.SessionView
	Workers  []*store.Worker
	Signals  []*store.Signal
	Progress *store.Progress
}

// Fetch retrieves the next snapshot.
type Fetch func() (*Snapshot, error)

// Model is the bubbletea model for the watch view.
type Model struct {
	RepoPath string
	Styles   Styles

	fetch    Fetch
	Snapshot *Snapshot
	Err      error

	FetchedAt time.Time
	Width     int
	Height    int
	Quitting  bool
}

// NewModel creates the watch model.
func NewModel(repoPath string, fetch Fetch) *Model {
	return &Model{
		RepoPath: repoPath,
		Styles:   DefaultStyles(),
		fetch:    fetch,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.pollCmd()
}

// SnapshotMsg delivers a fresh snapshot.
type SnapshotMsg struct {
	Snapshot *Snapshot
	At       time.Time
}

// ErrMsg delivers a failed poll.
type ErrMsg struct {
	Err error
}

// TickMsg schedules the next poll.
type TickMsg time.Time

func (m *Model) pollCmd() tea.Cmd {
	return func() tea.Msg {
		snapshot, err := m.fetch()
		if err != nil {
			return ErrMsg{Err: err}
		}
		return SnapshotMsg{Snapshot: snapshot, At: time.Now()}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

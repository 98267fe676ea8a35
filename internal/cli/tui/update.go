package tui

import tea "github.com/charmbracelet/bubbletea"

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.Quitting = true
			return m, tea.Quit
		case "r":
			return m, m.pollCmd()
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case SnapshotMsg:
		m.Snapshot = msg.Snapshot
		m.Err = nil
		m.FetchedAt = msg.At
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tickCmd()

	case TickMsg:
		return m, m.pollCmd()
	}
	return m, nil
}

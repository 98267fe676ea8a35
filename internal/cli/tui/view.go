package tui

import (
	"fmt"
	"strings"

	"github.com/chkd/chkd/internal/store"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.Quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	if m.Err != nil {
		b.WriteString(m.Styles.Error.Render("  " + m.Err.Error()))
		b.WriteString("\n")
	} else if m.Snapshot == nil {
		b.WriteString(m.Styles.Muted.Render("  loading..."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.renderSession())
		b.WriteString(m.renderWorkers())
		b.WriteString(m.renderSignals())
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m *Model) renderHeader() string {
	header := fmt.Sprintf("%s  %s",
		m.Styles.Title.Render("chkd watch"),
		m.Styles.Muted.Render(m.RepoPath))
	if m.Snapshot != nil && m.Snapshot.Progress != nil && m.Snapshot.Progress.Total > 0 {
		p := m.Snapshot.Progress
		header += "  " + m.Styles.Muted.Render(fmt.Sprintf("%d/%d done", p.Done, p.Total))
	}
	return header
}

func (m *Model) renderSession() string {
	var b strings.Builder
	b.WriteString(m.Styles.Section.Render("Session"))
	b.WriteString("\n")

	view := m.Snapshot.Session
	if view == nil || view.Status == store.SessionIdle {
		b.WriteString(m.Styles.Muted.Render("  idle"))
		b.WriteString("\n\n")
		return b.String()
	}

	task := ""
	if view.CurrentTask != nil {
		task = *view.CurrentTask
	}
	fmt.Fprintf(&b, "  %s  %s\n", view.Status, task)
	if view.Anchor != nil {
		marker := m.Styles.OnTrack.Render("on track")
		if !view.OnTrack {
			marker = m.Styles.OffTrack.Render("OFF TRACK")
		}
		fmt.Fprintf(&b, "  anchor %s  %s\n", view.Anchor.TaskID, marker)
	}
	b.WriteString("\n")
	return b.String()
}

func (m *Model) renderWorkers() string {
	var b strings.Builder
	b.WriteString(m.Styles.Section.Render("Workers"))
	b.WriteString("\n")

	if len(m.Snapshot.Workers) == 0 {
		b.WriteString(m.Styles.Muted.Render("  none"))
		b.WriteString("\n\n")
		return b.String()
	}
	for _, w := range m.Snapshot.Workers {
		style := m.Styles.WorkerActive
		switch w.Status {
		case store.WorkerMerged:
			style = m.Styles.WorkerMerged
		case store.WorkerError, store.WorkerCancelled:
			style = m.Styles.WorkerTrouble
		}
		task := ""
		if w.TaskID != nil {
			task = *w.TaskID
		}
		fmt.Fprintf(&b, "  %-8s %s %s %s %d%%\n",
			style.Render(string(w.Status)), w.ID,
			m.Styles.Muted.Render(task), m.progressBar(w.Progress, 12), w.Progress)
	}
	b.WriteString("\n")
	return b.String()
}

func (m *Model) renderSignals() string {
	var b strings.Builder
	b.WriteString(m.Styles.Section.Render("Signals"))
	b.WriteString("\n")

	if len(m.Snapshot.Signals) == 0 {
		b.WriteString(m.Styles.Muted.Render("  none"))
		b.WriteString("\n")
		return b.String()
	}
	for _, sig := range m.Snapshot.Signals {
		style := m.Styles.SignalInfo
		switch sig.Type {
		case store.SignalWarning:
			style = m.Styles.SignalWarning
		case store.SignalHelp, store.SignalDecision:
			style = m.Styles.SignalHelp
		}
		fmt.Fprintf(&b, "  %s %s", style.Render(string(sig.Type)), sig.Message)
		if len(sig.ActionOptions) > 0 {
			fmt.Fprintf(&b, " %s", m.Styles.Muted.Render("["+strings.Join(sig.ActionOptions, "|")+"]"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderFooter() string {
	refreshed := ""
	if !m.FetchedAt.IsZero() {
		refreshed = "refreshed " + m.FetchedAt.Format("15:04:05") + "  "
	}
	return m.Styles.Footer.Render(
		fmt.Sprintf("  %s%s refresh  %s quit", refreshed,
			m.Styles.FooterKey.Render("r"), m.Styles.FooterKey.Render("q")))
}

func (m *Model) progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	return m.Styles.ProgressFilled.Render(strings.Repeat("█", filled)) +
		m.Styles.ProgressEmpty.Render(strings.Repeat("░", width-filled))
}

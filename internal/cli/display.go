package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/chkd/chkd/internal/engine"
	"github.com/chkd/chkd/internal/store"
)

// Styles holds the lipgloss styles shared by status output.
type Styles struct {
	Title    lipgloss.Style
	Section  lipgloss.Style
	OnTrack  lipgloss.Style
	OffTrack lipgloss.Style
	Muted    lipgloss.Style

	WorkerActive   lipgloss.Style
	WorkerMerged   lipgloss.Style
	WorkerTrouble  lipgloss.Style
	ProgressFilled lipgloss.Style
	ProgressEmpty  lipgloss.Style

	SignalWarning lipgloss.Style
	SignalHelp    lipgloss.Style
	SignalInfo    lipgloss.Style
}

// DefaultStyles returns the standard color scheme.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Section:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245")),
		OnTrack:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		OffTrack: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),

		WorkerActive:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		WorkerMerged:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		WorkerTrouble:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		ProgressFilled: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		ProgressEmpty:  lipgloss.NewStyle().Foreground(lipgloss.Color("238")),

		SignalWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		SignalHelp:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		SignalInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// Board is one snapshot of a repo's coordination state.
type Board struct {
	RepoPath string
	Session  *engine.SessionView
	Workers  []*store.Worker
	Signals  []*store.Signal
	Progress *store.Progress
}

// Render draws the one-shot status board.
func (s Styles) Render(b *Board) string {
	var out strings.Builder

	out.WriteString(s.Title.Render("chkd"))
	out.WriteString("  ")
	out.WriteString(s.Muted.Render(b.RepoPath))
	out.WriteString("\n\n")

	out.WriteString(s.renderSession(b.Session))
	out.WriteString(s.renderProgress(b.Progress))
	out.WriteString(s.renderWorkers(b.Workers))
	out.WriteString(s.renderSignals(b.Signals))

	return out.String()
}

func (s Styles) renderSession(view *engine.SessionView) string {
	var out strings.Builder
	out.WriteString(s.Section.Render("Session"))
	out.WriteString("\n")

	if view == nil || view.Status == store.SessionIdle {
		out.WriteString(s.Muted.Render("  idle"))
		out.WriteString("\n\n")
		return out.String()
	}

	task := "(no task)"
	if view.CurrentTask != nil {
		task = *view.CurrentTask
	}
	fmt.Fprintf(&out, "  %s  %s\n", view.Status, task)

	if view.Anchor != nil {
		marker := s.OnTrack.Render("on track")
		if !view.OnTrack {
			marker = s.OffTrack.Render("OFF TRACK")
		}
		fmt.Fprintf(&out, "  anchor %s %s  %s\n", view.Anchor.TaskID, s.Muted.Render(view.Anchor.TaskTitle), marker)
	}
	out.WriteString("\n")
	return out.String()
}

func (s Styles) renderProgress(p *store.Progress) string {
	if p == nil || p.Total == 0 {
		return ""
	}
	return fmt.Sprintf("%s\n  %s %d/%d (%d%%)\n\n",
		s.Section.Render("Progress"),
		s.progressBar(p.Percent, 20), p.Done, p.Total, p.Percent)
}

func (s Styles) renderWorkers(workers []*store.Worker) string {
	var out strings.Builder
	out.WriteString(s.Section.Render("Workers"))
	out.WriteString("\n")

	if len(workers) == 0 {
		out.WriteString(s.Muted.Render("  none"))
		out.WriteString("\n\n")
		return out.String()
	}
	for _, w := range workers {
		style := s.WorkerActive
		switch w.Status {
		case store.WorkerMerged:
			style = s.WorkerMerged
		case store.WorkerError, store.WorkerCancelled:
			style = s.WorkerTrouble
		}
		task := ""
		if w.TaskID != nil {
			task = *w.TaskID
		}
		fmt.Fprintf(&out, "  %s %s %s %s %d%%",
			style.Render(string(w.Status)), w.ID, s.Muted.Render(task),
			s.progressBar(w.Progress, 10), w.Progress)
		if w.Message != nil {
			fmt.Fprintf(&out, "  %s", s.Muted.Render(*w.Message))
		}
		out.WriteString("\n")
	}
	out.WriteString("\n")
	return out.String()
}

func (s Styles) renderSignals(signals []*store.Signal) string {
	var out strings.Builder
	out.WriteString(s.Section.Render("Signals"))
	out.WriteString("\n")

	if len(signals) == 0 {
		out.WriteString(s.Muted.Render("  none"))
		out.WriteString("\n")
		return out.String()
	}
	for _, sig := range signals {
		style := s.SignalInfo
		switch sig.Type {
		case store.SignalWarning:
			style = s.SignalWarning
		case store.SignalHelp, store.SignalDecision:
			style = s.SignalHelp
		}
		fmt.Fprintf(&out, "  %s %s", style.Render(string(sig.Type)), sig.Message)
		if len(sig.ActionOptions) > 0 {
			fmt.Fprintf(&out, "  %s", s.Muted.Render("["+strings.Join(sig.ActionOptions, "|")+"]"))
		}
		out.WriteString("\n")
	}
	return out.String()
}

// progressBar renders a fixed-width bar for a 0-100 percentage.
func (s Styles) progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	return s.ProgressFilled.Render(strings.Repeat("█", filled)) +
		s.ProgressEmpty.Render(strings.Repeat("░", width-filled))
}

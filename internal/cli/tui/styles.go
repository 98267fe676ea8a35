package tui

import "github.com/charmbracelet/lipgloss"

// Styles contains the lipgloss styles for the watch view.
type Styles struct {
	Title   lipgloss.Style
	Section lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style

	OnTrack  lipgloss.Style
	OffTrack lipgloss.Style

	WorkerActive  lipgloss.Style
	WorkerMerged  lipgloss.Style
	WorkerTrouble lipgloss.Style

	ProgressFilled lipgloss.Style
	ProgressEmpty  lipgloss.Style

	SignalWarning lipgloss.Style
	SignalHelp    lipgloss.Style
	SignalInfo    lipgloss.Style

	Footer    lipgloss.Style
	FooterKey lipgloss.Style
}

// DefaultStyles returns the default watch styles.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Section: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),

		OnTrack:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		OffTrack: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),

		WorkerActive:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		WorkerMerged:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		WorkerTrouble: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),

		ProgressFilled: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		ProgressEmpty:  lipgloss.NewStyle().Foreground(lipgloss.Color("238")),

		SignalWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		SignalHelp:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		SignalInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),

		Footer:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		FooterKey: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245")),
	}
}

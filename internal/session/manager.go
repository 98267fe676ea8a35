// Package session tracks the per-repository operator session: what is
// being worked on right now, the declared anchor, and whether the two
// agree.
package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/chkd/chkd/internal/clock"
	"github.com/chkd/chkd/internal/store"
)

// Manager owns session state for all repos. Sessions are singletons per
// repo; a missing row reads as an idle session.
type Manager struct {
	store *store.Store
	clock clock.Clock
	log   zerolog.Logger
}

// NewManager builds a session manager over the store.
func NewManager(st *store.Store, clk clock.Clock, log zerolog.Logger) *Manager {
	return &Manager{store: st, clock: clk, log: log}
}

// Update is a partial mutation of session state. Nil fields are left
// untouched; ClearMode distinguishes "set mode to null" from "leave it".
type Update struct {
	CurrentTask *string
	CurrentItem *string
	Status      *store.SessionStatus
	Mode        *store.SessionMode
	ClearMode   bool
	Iteration   *int
	StartTime   *time.Time
}

// Get returns the session for a repo, synthesizing an idle one when no
// row exists yet.
func (m *Manager) Get(repoID string) (*store.Session, error) {
	sess, err := m.store.GetSession(repoID)
	if store.IsNotFound(err) {
		return m.idle(repoID), nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (m *Manager) idle(repoID string) *store.Session {
	now := m.clock.Now()
	return &store.Session{
		RepoID:       repoID,
		Status:       store.SessionIdle,
		LastActivity: now,
		FilesTouched: []string{},
		BugFixes:     []string{},
		ScopeChanges: []string{},
		Deviations:   []string{},
		AlsoDid:      []string{},
		UpdatedAt:    now,
	}
}

// Start begins (or restarts) a building session on a task. Ad-hoc arrays
// reset; the anchor is preserved so a drifting start is visible.
func (m *Manager) Start(repoID, taskID, taskTitle string) (*store.Session, error) {
	sess, err := m.Get(repoID)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	mode := store.ModeBuilding
	sess.CurrentTask = &taskID
	sess.CurrentItem = nil
	sess.CurrentItemStartTime = nil
	sess.Status = store.SessionBuilding
	sess.Mode = &mode
	sess.StartTime = &now
	sess.Iteration = 1
	sess.LastActivity = now
	sess.FilesTouched = []string{}
	sess.BugFixes = []string{}
	sess.ScopeChanges = []string{}
	sess.Deviations = []string{}
	sess.AlsoDid = []string{}
	sess.UpdatedAt = now

	if err := m.store.SaveSession(sess); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	m.log.Info().Str("repo", repoID).Str("task", taskID).Str("title", taskTitle).Msg("session started")
	return sess, nil
}

// Complete marks the session finished without clearing what was done.
func (m *Manager) Complete(repoID string) (*store.Session, error) {
	status := store.SessionComplete
	return m.Apply(repoID, Update{Status: &status})
}

// Clear resets the session to idle and drops the anchor.
func (m *Manager) Clear(repoID string) (*store.Session, error) {
	idle := m.idle(repoID)
	if err := m.store.SaveSession(idle); err != nil {
		return nil, fmt.Errorf("clear session: %w", err)
	}
	m.log.Info().Str("repo", repoID).Msg("session cleared")
	return idle, nil
}

// Apply mutates the session. Every mutation refreshes lastActivity and
// updatedAt; setting currentItem also stamps currentItemStartTime.
func (m *Manager) Apply(repoID string, upd Update) (*store.Session, error) {
	sess, err := m.Get(repoID)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	if upd.Status != nil {
		if !store.ValidSessionStatus(string(*upd.Status)) {
			return nil, fmt.Errorf("invalid session status %q", *upd.Status)
		}
		sess.Status = *upd.Status
		if *upd.Status == store.SessionIdle {
			sess.CurrentTask = nil
		} else if sess.StartTime == nil {
			sess.StartTime = &now
		}
	}
	if upd.CurrentTask != nil {
		sess.CurrentTask = upd.CurrentTask
	}
	if upd.CurrentItem != nil {
		sess.CurrentItem = upd.CurrentItem
		sess.CurrentItemStartTime = &now
	}
	if upd.ClearMode {
		sess.Mode = nil
	} else if upd.Mode != nil {
		if !store.ValidSessionMode(string(*upd.Mode)) {
			return nil, fmt.Errorf("invalid session mode %q", *upd.Mode)
		}
		sess.Mode = upd.Mode
	}
	if upd.Iteration != nil {
		sess.Iteration = *upd.Iteration
	}
	if upd.StartTime != nil {
		sess.StartTime = upd.StartTime
	}
	sess.LastActivity = now
	sess.UpdatedAt = now

	if err := m.store.SaveSession(sess); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return sess, nil
}

// AddAlsoDid appends one entry to the ad-hoc log.
func (m *Manager) AddAlsoDid(repoID, text string) (*store.Session, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("also-did entry must not be empty")
	}
	sess, err := m.Get(repoID)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	sess.AlsoDid = append(sess.AlsoDid, text)
	sess.LastActivity = now
	sess.UpdatedAt = now

	if err := m.store.SaveSession(sess); err != nil {
		return nil, fmt.Errorf("add also-did: %w", err)
	}
	return sess, nil
}

// SetAnchor declares what should be worked on.
func (m *Manager) SetAnchor(repoID, taskID, taskTitle, setBy string) (*store.Session, error) {
	if setBy != "ui" && setBy != "cli" {
		return nil, fmt.Errorf("invalid anchor source %q", setBy)
	}
	sess, err := m.Get(repoID)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	sess.Anchor = &store.Anchor{TaskID: taskID, TaskTitle: taskTitle, SetAt: now, SetBy: setBy}
	sess.LastActivity = now
	sess.UpdatedAt = now

	if err := m.store.SaveSession(sess); err != nil {
		return nil, fmt.Errorf("set anchor: %w", err)
	}
	m.log.Info().Str("repo", repoID).Str("anchor", taskID).Str("by", setBy).Msg("anchor set")
	return sess, nil
}

// ClearAnchor removes the anchor without touching the rest of the session.
func (m *Manager) ClearAnchor(repoID string) (*store.Session, error) {
	sess, err := m.Get(repoID)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	sess.Anchor = nil
	sess.LastActivity = now
	sess.UpdatedAt = now

	if err := m.store.SaveSession(sess); err != nil {
		return nil, fmt.Errorf("clear anchor: %w", err)
	}
	return sess, nil
}

// TrackReport is the result of an on-track evaluation.
type TrackReport struct {
	OnTrack bool          `json:"onTrack"`
	Anchor  *store.Anchor `json:"anchor,omitempty"`
	Current *string       `json:"current,omitempty"`
}

// OnTrack evaluates the anchor rule: on-track iff no anchor, or the
// current task equals the anchor, or descends from it by display id.
// An idle session with an anchor is never on-track.
func (m *Manager) OnTrack(repoID string) (*TrackReport, error) {
	sess, err := m.Get(repoID)
	if err != nil {
		return nil, err
	}

	report := &TrackReport{Anchor: sess.Anchor, Current: sess.CurrentTask}
	if sess.Anchor == nil {
		report.OnTrack = true
		return report, nil
	}
	if sess.Status == store.SessionIdle || sess.CurrentTask == nil {
		report.OnTrack = false
		return report, nil
	}

	current, anchor := *sess.CurrentTask, sess.Anchor.TaskID
	report.OnTrack = current == anchor || strings.HasPrefix(current, anchor+".")
	return report, nil
}

// ElapsedMs derives how long the session has been running. Zero when no
// start time is set.
func (m *Manager) ElapsedMs(sess *store.Session) int64 {
	if sess.StartTime == nil {
		return 0
	}
	elapsed := m.clock.Now().Sub(*sess.StartTime).Milliseconds()
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

package engine

import (
	"fmt"

	"github.com/chkd/chkd/internal/session"
	"github.com/chkd/chkd/internal/store"
)

// SessionView is a session decorated with the derived fields the
// transports report alongside it.
type SessionView struct {
	*store.Session
	ElapsedMs int64 `json:"elapsedMs"`
	OnTrack   bool  `json:"onTrack"`
}

func (e *Engine) sessionView(sess *store.Session) (*SessionView, error) {
	track, err := e.sessions.OnTrack(sess.RepoID)
	if err != nil {
		return nil, err
	}
	return &SessionView{
		Session:   sess,
		ElapsedMs: e.sessions.ElapsedMs(sess),
		OnTrack:   track.OnTrack,
	}, nil
}

// Session returns the repo's session, idle when none was ever started.
func (e *Engine) Session(repoID string) (*SessionView, error) {
	sess, err := retryIO(func() (*store.Session, error) { return e.sessions.Get(repoID) })
	if err != nil {
		return nil, err
	}
	return e.sessionView(sess)
}

// StartSession begins a building session on a task.
func (e *Engine) StartSession(repoID, taskID, taskTitle string) (*SessionView, error) {
	sess, err := e.sessions.Start(repoID, taskID, taskTitle)
	if err != nil {
		return nil, err
	}
	return e.sessionView(sess)
}

// CompleteSession marks the current session complete.
func (e *Engine) CompleteSession(repoID string) (*SessionView, error) {
	sess, err := e.sessions.Complete(repoID)
	if err != nil {
		return nil, err
	}
	return e.sessionView(sess)
}

// ClearSession resets the repo's session to idle.
func (e *Engine) ClearSession(repoID string) (*SessionView, error) {
	sess, err := e.sessions.Clear(repoID)
	if err != nil {
		return nil, err
	}
	return e.sessionView(sess)
}

// UpdateSession applies a partial session update.
func (e *Engine) UpdateSession(repoID string, upd session.Update) (*SessionView, error) {
	sess, err := e.sessions.Apply(repoID, upd)
	if err != nil {
		return nil, err
	}
	return e.sessionView(sess)
}

// WorkingOn resolves a display id (any spelling) and points the session
// at that item.
func (e *Engine) WorkingOn(repoID, query string) (*SessionView, error) {
	it, err := e.store.FindOneItem(repoID, query)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, store.NewNotFound("working on", fmt.Sprintf("item %q", query))
	}
	// currentTask carries the display id; the anchor comparison is
	// id-against-id.
	sess, err := e.sessions.Apply(repoID, session.Update{
		CurrentItem: &it.DisplayID,
		CurrentTask: &it.DisplayID,
	})
	if err != nil {
		return nil, err
	}
	return e.sessionView(sess)
}

// AlsoDid records an out-of-scope thing done during the session.
func (e *Engine) AlsoDid(repoID, text string) (*SessionView, error) {
	sess, err := e.sessions.AddAlsoDid(repoID, text)
	if err != nil {
		return nil, err
	}
	return e.sessionView(sess)
}

// Anchor reports the anchor and whether the session is on track.
func (e *Engine) Anchor(repoID string) (*session.TrackReport, error) {
	return e.sessions.OnTrack(repoID)
}

// SetAnchor pins the session to a task. Drift away from the anchor's
// subtree flips onTrack to false.
func (e *Engine) SetAnchor(repoID, query, setBy string) (*SessionView, error) {
	it, err := e.store.FindOneItem(repoID, query)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, store.NewNotFound("set anchor", fmt.Sprintf("item %q", query))
	}
	sess, err := e.sessions.SetAnchor(repoID, it.DisplayID, it.Title, setBy)
	if err != nil {
		return nil, err
	}
	return e.sessionView(sess)
}

// ClearAnchor removes the session anchor.
func (e *Engine) ClearAnchor(repoID string) (*SessionView, error) {
	sess, err := e.sessions.ClearAnchor(repoID)
	if err != nil {
		return nil, err
	}
	return e.sessionView(sess)
}

// QueueList returns the ephemeral up-next titles for a repo.
func (e *Engine) QueueList(repoID string) []session.QueueItem {
	return e.queue.List(repoID)
}

// QueueAdd appends a title to the repo's up-next queue.
func (e *Engine) QueueAdd(repoID, title string) (session.QueueItem, error) {
	return e.queue.Add(repoID, title)
}

// QueueRemove drops one queued title by id.
func (e *Engine) QueueRemove(repoID, id string) error {
	return e.queue.Remove(repoID, id)
}

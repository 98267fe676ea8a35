package store

import (
	"time"

	"github.com/chkd/chkd/internal/item"
)

// Repo is a tracked git checkout.
type Repo struct {
	ID            string    `json:"id"`
	AbsolutePath  string    `json:"absolutePath"`
	DisplayName   string    `json:"displayName"`
	DefaultBranch string    `json:"defaultBranch"`
	Enabled       bool      `json:"enabled"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Item is a hierarchical task item.
type Item struct {
	ID              string        `json:"id"`
	RepoID          string        `json:"repoId"`
	DisplayID       string        `json:"displayId"`
	Title           string        `json:"title"`
	Description     *string       `json:"description,omitempty"`
	Story           *string       `json:"story,omitempty"`
	KeyRequirements []string      `json:"keyRequirements"`
	FilesToChange   []string      `json:"filesToChange"`
	Testing         []string      `json:"testing"`
	AreaCode        item.Area     `json:"areaCode"`
	SectionNumber   int           `json:"sectionNumber"`
	WorkflowType    *string       `json:"workflowType,omitempty"`
	ParentID        *string       `json:"parentId,omitempty"`
	SortOrder       int           `json:"sortOrder"`
	Status          item.Status   `json:"status"`
	Priority        item.Priority `json:"priority"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// SessionStatus is the operator session's lifecycle state.
type SessionStatus string

const (
	SessionIdle            SessionStatus = "idle"
	SessionBuilding        SessionStatus = "building"
	SessionReadyForTesting SessionStatus = "ready_for_testing"
	SessionRework          SessionStatus = "rework"
	SessionComplete        SessionStatus = "complete"
)

// ValidSessionStatus reports whether s is a recognized session status.
func ValidSessionStatus(s string) bool {
	switch SessionStatus(s) {
	case SessionIdle, SessionBuilding, SessionReadyForTesting, SessionRework, SessionComplete:
		return true
	}
	return false
}

// SessionMode is the operator's declared working mode.
type SessionMode string

const (
	ModeBuilding  SessionMode = "building"
	ModeDebugging SessionMode = "debugging"
	ModeStory     SessionMode = "story"
	ModeReviewing SessionMode = "reviewing"
)

// ValidSessionMode reports whether m is a recognized session mode.
func ValidSessionMode(m string) bool {
	switch SessionMode(m) {
	case ModeBuilding, ModeDebugging, ModeStory, ModeReviewing:
		return true
	}
	return false
}

// Anchor is the operator's declared "what should be worked on".
type Anchor struct {
	TaskID    string    `json:"taskId"`
	TaskTitle string    `json:"taskTitle"`
	SetAt     time.Time `json:"setAt"`
	SetBy     string    `json:"setBy"`
}

// Session is the per-repository operator session.
type Session struct {
	RepoID               string        `json:"repoId"`
	CurrentTask          *string       `json:"currentTask,omitempty"`
	CurrentItem          *string       `json:"currentItem,omitempty"`
	CurrentItemStartTime *time.Time    `json:"currentItemStartTime,omitempty"`
	Status               SessionStatus `json:"status"`
	Mode                 *SessionMode  `json:"mode,omitempty"`
	StartTime            *time.Time    `json:"startTime,omitempty"`
	Iteration            int           `json:"iteration"`
	LastActivity         time.Time     `json:"lastActivity"`
	FilesTouched         []string      `json:"filesTouched"`
	BugFixes             []string      `json:"bugFixes"`
	ScopeChanges         []string      `json:"scopeChanges"`
	Deviations           []string      `json:"deviations"`
	AlsoDid              []string      `json:"alsoDid"`
	Anchor               *Anchor       `json:"anchor,omitempty"`
	UpdatedAt            time.Time     `json:"updatedAt"`
}

// WorkerStatus is a worker's lifecycle state.
type WorkerStatus string

const (
	WorkerPending   WorkerStatus = "pending"
	WorkerWaiting   WorkerStatus = "waiting"
	WorkerWorking   WorkerStatus = "working"
	WorkerPaused    WorkerStatus = "paused"
	WorkerMerging   WorkerStatus = "merging"
	WorkerMerged    WorkerStatus = "merged"
	WorkerError     WorkerStatus = "error"
	WorkerCancelled WorkerStatus = "cancelled"
)

// IsTerminal reports whether the status admits no further transitions.
func (s WorkerStatus) IsTerminal() bool {
	return s == WorkerMerged || s == WorkerError || s == WorkerCancelled
}

// ValidWorkerStatus reports whether s is a recognized worker status.
func ValidWorkerStatus(s string) bool {
	switch WorkerStatus(s) {
	case WorkerPending, WorkerWaiting, WorkerWorking, WorkerPaused,
		WorkerMerging, WorkerMerged, WorkerError, WorkerCancelled:
		return true
	}
	return false
}

// Worker is an isolated concurrent executor bound to one task in one
// git worktree.
type Worker struct {
	ID            string       `json:"id"`
	RepoID        string       `json:"repoId"`
	Username      string       `json:"username"`
	TaskID        *string      `json:"taskId,omitempty"`
	TaskTitle     *string      `json:"taskTitle,omitempty"`
	Status        WorkerStatus `json:"status"`
	Message       *string      `json:"message,omitempty"`
	Progress      int          `json:"progress"`
	WorktreePath  *string      `json:"worktreePath,omitempty"`
	BranchName    *string      `json:"branchName,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	StartedAt     *time.Time   `json:"startedAt,omitempty"`
	CompletedAt   *time.Time   `json:"completedAt,omitempty"`
	HeartbeatAt   *time.Time   `json:"heartbeatAt,omitempty"`
	NextTaskID    *string      `json:"nextTaskId,omitempty"`
	NextTaskTitle *string      `json:"nextTaskTitle,omitempty"`
}

// HistoryOutcome records how a worker ended.
type HistoryOutcome string

const (
	OutcomeMerged  HistoryOutcome = "merged"
	OutcomeAborted HistoryOutcome = "aborted"
	OutcomeError   HistoryOutcome = "error"
)

// WorkerHistory is the durable record of a finished (or aborted) worker.
type WorkerHistory struct {
	ID             string         `json:"id"`
	RepoID         string         `json:"repoId"`
	WorkerID       string         `json:"workerId"`
	TaskID         *string        `json:"taskId,omitempty"`
	TaskTitle      *string        `json:"taskTitle,omitempty"`
	BranchName     *string        `json:"branchName,omitempty"`
	Outcome        HistoryOutcome `json:"outcome"`
	MergeConflicts int            `json:"mergeConflicts"`
	FilesChanged   int            `json:"filesChanged"`
	Insertions     int            `json:"insertions"`
	Deletions      int            `json:"deletions"`
	StartedAt      *time.Time     `json:"startedAt,omitempty"`
	CompletedAt    time.Time      `json:"completedAt"`
	DurationMs     *int64         `json:"durationMs,omitempty"`
}

// SignalType classifies manager signals.
type SignalType string

const (
	SignalDecision SignalType = "decision"
	SignalHelp     SignalType = "help"
	SignalWarning  SignalType = "warning"
	SignalInfo     SignalType = "info"
)

// Signal is an advisory message from the engine to the operator.
type Signal struct {
	ID             string         `json:"id"`
	RepoID         string         `json:"repoId"`
	WorkerID       *string        `json:"workerId,omitempty"`
	Type           SignalType     `json:"type"`
	Message        string         `json:"message"`
	Details        map[string]any `json:"details,omitempty"`
	ActionRequired bool           `json:"actionRequired"`
	ActionOptions  []string       `json:"actionOptions,omitempty"`
	Dismissed      bool           `json:"dismissed"`
	CreatedAt      time.Time      `json:"createdAt"`
	DismissedAt    *time.Time     `json:"dismissedAt,omitempty"`
}

// ItemDuration records how long a completed item took.
type ItemDuration struct {
	ItemID      string    `json:"itemId"`
	RepoID      string    `json:"repoId"`
	DurationMs  int64     `json:"durationMs"`
	CompletedAt time.Time `json:"completedAt"`
}

// Bug is a lightweight defect record.
type Bug struct {
	ID        string    `json:"id"`
	RepoID    string    `json:"repoId"`
	ItemID    *string   `json:"itemId,omitempty"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// QuickWin is a lightweight small-task record.
type QuickWin struct {
	ID        string    `json:"id"`
	RepoID    string    `json:"repoId"`
	Title     string    `json:"title"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"createdAt"`
}

// Progress summarizes completion for a repo or area.
type Progress struct {
	Total   int `json:"total"`
	Done    int `json:"done"`
	Percent int `json:"percent"`
}

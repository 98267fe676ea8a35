package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies store failures so callers can decide whether to retry,
// surface, or abort.
type Kind string

const (
	KindNotFound   Kind = "notFound"
	KindConflict   Kind = "conflict"
	KindConstraint Kind = "constraint"
	KindIO         Kind = "io"
	KindCorruption Kind = "corruption"
)

// Error is the typed failure returned by all store operations.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("store: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a store not-found failure.
func IsNotFound(err error) bool {
	return kindOf(err) == KindNotFound
}

// IsConflict reports whether err is a store conflict failure.
func IsConflict(err error) bool {
	return kindOf(err) == KindConflict
}

// IsCorruption reports whether err is a fatal corruption failure.
func IsCorruption(err error) bool {
	return kindOf(err) == KindCorruption
}

// IsIO reports whether err is a retryable I/O failure.
func IsIO(err error) bool {
	return kindOf(err) == KindIO
}

func kindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

func notFound(op, what string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Err: fmt.Errorf("%s not found", what)}
}

func conflict(op string, err error) *Error {
	return &Error{Kind: KindConflict, Op: op, Err: err}
}

// NewConflict lets callers above the store report conflicts in the same
// taxonomy, so transport code maps them uniformly.
func NewConflict(op string, err error) *Error {
	return conflict(op, err)
}

// NewNotFound is the caller-facing counterpart of notFound.
func NewNotFound(op, what string) *Error {
	return notFound(op, what)
}

// classify maps a database/sql failure onto the store error taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &Error{Kind: KindNotFound, Op: op, Err: err}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return &Error{Kind: KindConflict, Op: op, Err: err}
	case strings.Contains(msg, "constraint failed"),
		strings.Contains(msg, "FOREIGN KEY constraint"),
		strings.Contains(msg, "NOT NULL constraint"),
		strings.Contains(msg, "CHECK constraint"):
		return &Error{Kind: KindConstraint, Op: op, Err: err}
	case strings.Contains(msg, "database disk image is malformed"),
		strings.Contains(msg, "file is not a database"):
		return &Error{Kind: KindCorruption, Op: op, Err: err}
	}
	return &Error{Kind: KindIO, Op: op, Err: err}
}

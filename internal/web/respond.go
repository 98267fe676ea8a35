package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/chkd/chkd/internal/arbiter"
	"github.com/chkd/chkd/internal/git"
	"github.com/chkd/chkd/internal/store"
)

// envelope is the uniform JSON response shape.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func respondErr(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(err))
	json.NewEncoder(w).Encode(envelope{Success: false, Error: err.Error()})
}

// statusFor maps engine failures onto HTTP statuses. Unrecognized
// errors are treated as client mistakes; the engine validates inputs
// before touching anything that can fail internally.
func statusFor(err error) int {
	switch {
	case store.IsNotFound(err):
		return http.StatusNotFound
	case store.IsConflict(err):
		return http.StatusConflict
	case store.IsIO(err), store.IsCorruption(err):
		return http.StatusInternalServerError
	case errors.Is(err, arbiter.ErrMergeLockTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	var cmdErr *git.CommandError
	if errors.As(err, &cmdErr) {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// decode parses a JSON request body, rejecting unknown keys. An empty
// body reads as the zero value, so optional-bodied endpoints work with
// no payload at all.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

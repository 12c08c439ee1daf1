package relation

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrClosed is returned when submitting to an editor that was cancelled
	// or has already been submitted.
	ErrClosed = errors.New("editor is closed")
	// ErrBusy is returned when a submit is already in flight.
	ErrBusy = errors.New("editor is already submitting")
)

// SubmitFunc writes a draft back to the server.
type SubmitFunc[D any] func(ctx context.Context, draft *D) error

// Editor owns one draft for the lifetime of a single form. A successful
// submit closes it and discards the draft; a failed one keeps both and
// records the error for inline display. A result arriving after Cancel is
// dropped.
type Editor[D any] struct {
	mu         sync.Mutex
	draft      *D
	open       bool
	submitting bool
	err        error
}

// NewEditor opens an editor over draft.
func NewEditor[D any](draft *D) *Editor[D] {
	return &Editor[D]{draft: draft, open: true}
}

// Draft returns the staged draft, or nil once the editor is closed.
func (e *Editor[D]) Draft() *D {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

// Open reports whether the editor still accepts edits.
func (e *Editor[D]) Open() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open
}

// Err returns the last submit error.
func (e *Editor[D]) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Cancel closes the editor and discards the draft.
func (e *Editor[D]) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.open = false
	e.draft = nil
	e.err = nil
}

// Submit hands the draft to fn. It returns fn's error; if the editor was
// cancelled while fn ran, the outcome is not applied.
func (e *Editor[D]) Submit(ctx context.Context, fn SubmitFunc[D]) error {
	e.mu.Lock()
	if !e.open {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.submitting {
		e.mu.Unlock()
		return ErrBusy
	}
	e.submitting = true
	draft := e.draft
	e.mu.Unlock()

	err := fn(ctx, draft)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.submitting = false
	if !e.open {
		return err
	}
	if err != nil {
		e.err = err
		return err
	}
	e.open = false
	e.draft = nil
	e.err = nil
	return nil
}

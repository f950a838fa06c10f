package todoist

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by the sync engine.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, todoist.ErrUnsupportedRecurrence) {
//	    // Skip the recurrence and keep the task.
//	}
var (
	// ErrUnsupportedRecurrence is returned when a date string looks
	// recurring but matches none of the supported phrase forms.
	ErrUnsupportedRecurrence = errors.New("unsupported recurrence phrase")

	// ErrInvalidRepeatType is returned when a repeat rule carries a type
	// outside day/week/month/year. This indicates a programming error,
	// not bad user data.
	ErrInvalidRepeatType = errors.New("invalid repeat type")

	// ErrTransport is returned when the sync endpoint cannot be reached
	// or answers with a retryable failure.
	ErrTransport = errors.New("sync transport failure")

	// ErrUnresolvedID is returned when an entity's temp id is missing from
	// the server's temp_id_mapping after a dispatch.
	ErrUnresolvedID = errors.New("remote id was not reconciled")

	// ErrUnknownTaskReference is returned when an ingested note points at
	// an item that was never built into a task.
	ErrUnknownTaskReference = errors.New("note references unknown task")
)

// DispatchError is returned when a dispatch exhausts its retry budget. It
// carries the commands that were in flight so callers can log or replay them.
type DispatchError struct {
	// Attempts is how many times the failing unit was submitted.
	Attempts int
	// Commands are the commands of the failing unit.
	Commands []Command
	// Err is the final transport error.
	Err error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch failed after %d attempts (%d commands in flight): %v",
		e.Attempts, len(e.Commands), e.Err)
}

func (e *DispatchError) Unwrap() error { return ErrTransport }

// UnresolvedError reports the entities a reconciliation pass could not
// resolve. Entities that did resolve have already been updated; this error
// covers only the leftovers.
type UnresolvedError struct {
	// TempIDs are the client ids missing from the server mapping.
	TempIDs []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("%d entities missing from temp_id_mapping: %s",
		len(e.TempIDs), strings.Join(e.TempIDs, ", "))
}

func (e *UnresolvedError) Unwrap() error { return ErrUnresolvedID }

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when no user context is available.
	ErrUnauthenticated = errors.New("user not authenticated")
	// ErrEmptyPhase indicates the question bank has nothing for the requested phase.
	ErrEmptyPhase = errors.New("no questions available for phase")
	// ErrUnknownPhase indicates a phase identifier outside the fixed set.
	ErrUnknownPhase = errors.New("unknown phase")
	// ErrPhaseLocked is returned when the previous phase has not been cleared.
	ErrPhaseLocked = errors.New("phase is locked")
	// ErrSessionActive is returned when the user already holds a live session.
	ErrSessionActive = errors.New("user already has an active session")
	// ErrNoSession is returned when an operation needs a session that does not exist.
	ErrNoSession = errors.New("no active quiz session")
)

// PersistenceError wraps any storage-layer fault raised while saving results.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

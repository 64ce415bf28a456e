// internal/errors/errors.go
package appErrors

import "fmt"

// ErrSessionNotFound is a sentinel error
type ErrSessionNotFound struct {
    SessionID string
}

func (e *ErrSessionNotFound) Error() string {
    return fmt.Sprintf("campaign session %s not found", e.SessionID)
}

// Helper constructor
func NewSessionNotFound(id string) error {
    return &ErrSessionNotFound{SessionID: id}
}

// ErrInvalidTransition is returned when a control call asks for a status
// change the state machine does not allow.
type ErrInvalidTransition struct {
    SessionID string
    From      string
    To        string
}

func (e *ErrInvalidTransition) Error() string {
    return fmt.Sprintf("session %s cannot move from %s to %s", e.SessionID, e.From, e.To)
}

func NewInvalidTransition(id, from, to string) error {
    return &ErrInvalidTransition{SessionID: id, From: from, To: to}
}

// ErrNothingToRetry is returned when a retry call finds no transient failures.
type ErrNothingToRetry struct {
    SessionID string
}

func (e *ErrNothingToRetry) Error() string {
    return fmt.Sprintf("session %s has no transient failures to retry", e.SessionID)
}

func NewNothingToRetry(id string) error {
    return &ErrNothingToRetry{SessionID: id}
}

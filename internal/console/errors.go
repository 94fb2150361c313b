package console

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput            = errors.New("input is empty")
	ErrAwaitingDecision      = errors.New("an action is awaiting a decision")
	ErrBusy                  = errors.New("a turn is already in flight")
	ErrSessionClosed         = errors.New("session is closed")
	ErrNoPendingInvocation   = errors.New("no action is awaiting a decision")
	ErrInvocationOutstanding = errors.New("an action is already awaiting a decision")
	ErrStaleTurn             = errors.New("turn does not belong to the in-flight request")
	ErrTransportRequired     = errors.New("transport is required")
)

// TransportError reports a turn that never produced a usable response, either
// because the backend was unreachable or because it answered with an error.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// FailureText is the system message shown for a failed turn.
func (e *TransportError) FailureText() string {
	return fmt.Sprintf("Error: could not reach the backend (%v). Check that the server is running.", e.Err)
}

func asTransportError(err error) *TransportError {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	return &TransportError{Err: err}
}

package board

import (
	"errors"
	"fmt"
)

// ErrNoChange reports an operation that would write nothing.
var ErrNoChange = errors.New("board: no change")

var ErrTaskNotFound = errors.New("board: task not visible")
var ErrIndexOutOfRange = errors.New("board: destination index out of range")
var ErrTransitionDenied = errors.New("board: status transition not allowed")
var ErrForbidden = errors.New("board: actor may not modify task")
var ErrInvalidState = errors.New("board: task is not in the required state")
var ErrClosed = errors.New("board: closed")

// ValidationError rejects input before any write is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("board: invalid %s: %s", e.Field, e.Reason)
}

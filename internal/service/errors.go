package service

import (
	"errors"
	"fmt"

	"taskwise/internal/board"
	repo "taskwise/internal/repository"
)

const (
	CodeNotFound         = "NOT_FOUND"
	CodeValidation       = "VALIDATION_ERROR"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeTransitionDenied = "TRANSITION_DENIED"
	CodeInvalidState     = "INVALID_STATE"
	CodeConflict         = "CONFLICT"
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeOperationFailed  = "OPERATION_FAILED"
	CodeNoChange         = "NO_CHANGE"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

func NewNotFound(resource, id string) *BusinessError {
	return &BusinessError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %s not found", resource, id),
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func NewValidationError(field, reason string) *BusinessError {
	return &BusinessError{
		Code:    CodeValidation,
		Message: fmt.Sprintf("invalid value of '%s': %s", field, reason),
		Details: map[string]any{
			"field":  field,
			"reason": reason,
		},
	}
}

func NewPermissionDenied(message string) *BusinessError {
	return NewBusinessError(CodePermissionDenied, message)
}

// toBusinessError classifies errors coming out of the board and the store.
// Errors that already are business errors pass through.
func toBusinessError(resource, id string, err error) error {
	if err == nil {
		return nil
	}

	var be *BusinessError
	if errors.As(err, &be) {
		return be
	}

	var verr *board.ValidationError
	switch {
	case errors.As(err, &verr):
		return NewValidationError(verr.Field, verr.Reason)
	case errors.Is(err, board.ErrNoChange):
		return &BusinessError{Code: CodeNoChange, Message: "nothing to change", Err: err}
	case errors.Is(err, board.ErrTaskNotFound), errors.Is(err, repo.ErrNotFound):
		nf := NewNotFound(resource, id)
		nf.Err = err
		return nf
	case errors.Is(err, board.ErrIndexOutOfRange):
		return &BusinessError{Code: CodeValidation, Message: "destination index out of range", Err: err,
			Details: map[string]any{"field": "index"}}
	case errors.Is(err, board.ErrTransitionDenied):
		return &BusinessError{Code: CodeTransitionDenied, Message: "status change not allowed", Err: err}
	case errors.Is(err, board.ErrInvalidState):
		return &BusinessError{Code: CodeInvalidState, Message: "task is not in the required state", Err: err}
	case errors.Is(err, board.ErrForbidden), errors.Is(err, repo.ErrPermissionDenied):
		return &BusinessError{Code: CodePermissionDenied, Message: "permission denied", Err: err}
	case errors.Is(err, repo.ErrConflict):
		return &BusinessError{Code: CodeConflict, Message: fmt.Sprintf("%s already exists", resource), Err: err}
	}

	return &BusinessError{Code: CodeOperationFailed, Message: "operation failed", Err: err}
}

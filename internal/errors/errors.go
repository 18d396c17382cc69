package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a fastnote error code.
type ErrorCode string

const (
	ErrAuthInvalid        ErrorCode = "AUTH_INVALID"        // 401
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"     // 400
	ErrImportFailure      ErrorCode = "IMPORT_FAILURE"      // 400
	ErrNotFound           ErrorCode = "NOT_FOUND"           // 404
	ErrNotActive          ErrorCode = "NOT_ACTIVE"          // 409
	ErrContentCorrupt     ErrorCode = "CONTENT_CORRUPT"     // 422
	ErrInternal           ErrorCode = "INTERNAL"            // 500
	ErrPersistenceFailure ErrorCode = "PERSISTENCE_FAILURE" // 502 unless the store answered with its own status
)

// NoteError represents a structured error with code, status, and details.
type NoteError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *NoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *NoteError) Unwrap() error {
	return e.Err
}

// NewAuthInvalid creates a 401 error for a missing, malformed, or expired token.
func NewAuthInvalid(reason string) *NoteError {
	return &NoteError{
		Code:    ErrAuthInvalid,
		Status:  401,
		Message: reason,
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *NoteError {
	return &NoteError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewImportFailure creates a 400 error for a rejected bulk-import payload.
// Index is the offending record, or -1 when the payload as a whole is malformed.
func NewImportFailure(index int, reason string) *NoteError {
	msg := fmt.Sprintf("import rejected: %s", reason)
	if index >= 0 {
		msg = fmt.Sprintf("import rejected at record %d: %s", index, reason)
	}
	return &NoteError{
		Code:    ErrImportFailure,
		Status:  400,
		Message: msg,
		Details: map[string]any{"index": index},
	}
}

// NewNotFound creates a 404 error for when a note cannot be found.
func NewNotFound(id string) *NoteError {
	return &NoteError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("note not found: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *NoteError {
	return &NoteError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewNotActive creates a 409 error for edits that arrive while no note is loaded.
func NewNotActive(state string) *NoteError {
	return &NoteError{
		Code:    ErrNotActive,
		Status:  409,
		Message: fmt.Sprintf("editor is not accepting edits (state %s)", state),
		Details: map[string]any{"state": state},
	}
}

// NewContentCorrupt creates a 422 error for persisted content that does not decode.
func NewContentCorrupt(noteType string, err error) *NoteError {
	msg := fmt.Sprintf("%s content is corrupt", noteType)
	if err != nil {
		msg = fmt.Sprintf("%s content is corrupt: %v", noteType, err)
	}
	return &NoteError{
		Code:    ErrContentCorrupt,
		Status:  422,
		Message: msg,
		Details: map[string]any{"type": noteType},
		Err:     err,
	}
}

// NewPersistenceFailure creates an error for a failed call to the note store.
// A status of 0 means the request never got an answer.
func NewPersistenceFailure(op string, status int, err error) *NoteError {
	if status == 0 {
		status = 502
	}
	msg := fmt.Sprintf("%s failed", op)
	if err != nil {
		msg = fmt.Sprintf("%s failed: %v", op, err)
	}
	return &NoteError{
		Code:    ErrPersistenceFailure,
		Status:  status,
		Message: msg,
		Details: map[string]any{"op": op},
		Err:     err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *NoteError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &NoteError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// Is checks if an error (or anything it wraps) is a NoteError with the given code.
func Is(err error, code ErrorCode) bool {
	var nErr *NoteError
	if stderrors.As(err, &nErr) {
		return nErr.Code == code
	}
	return false
}

// CodeOf returns the code of the first NoteError in err's chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var nErr *NoteError
	if stderrors.As(err, &nErr) {
		return nErr.Code
	}
	return ErrInternal
}

package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindNotFound       ErrorKind = "not_found"
	KindConflict       ErrorKind = "conflict"
	KindPartialFailure ErrorKind = "partial_failure"
	KindStore          ErrorKind = "store"
	KindForbidden      ErrorKind = "forbidden"
)

// ErrNotOnboarded is returned when the request carries no tenant.
var ErrNotOnboarded = &AppError{Kind: KindForbidden, Message: "not onboarded"}

// AppError is the structured error every engine operation returns.
// Compensation is set when a rollback step failed after the original error.
type AppError struct {
	Kind         ErrorKind
	Message      string
	Err          error
	Compensation error
}

func (e *AppError) Error() string {
	msg := e.Message
	if e.Err != nil && e.Err.Error() != msg {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Compensation != nil {
		msg = msg + "; compensation failed: " + e.Compensation.Error()
	}
	return msg
}

func (e *AppError) Unwrap() []error {
	var errs []error
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Compensation != nil {
		errs = append(errs, e.Compensation)
	}
	return errs
}

// Is lets errors.Is(err, ErrorRecordNotFound) match not-found errors.
func (e *AppError) Is(target error) bool {
	return target == ErrorRecordNotFound && e.Kind == KindNotFound
}

func ValidationError(format string, args ...any) error {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundError(resource string) error {
	return &AppError{Kind: KindNotFound, Message: resource + " not found"}
}

func ConflictError(format string, args ...any) error {
	return &AppError{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func PartialFailureError(message string, err error, compensation error) error {
	return &AppError{Kind: KindPartialFailure, Message: message, Err: err, Compensation: compensation}
}

func StoreError(message string, err error) error {
	// keep already classified errors as they are
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return &AppError{Kind: KindStore, Message: message, Err: err}
}

// KindOf reports the taxonomy kind of err. Unclassified errors count as store errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStore
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

package models

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per failure kind
var (
	ErrNotFound       = errors.New("resource not found")
	ErrValidation     = errors.New("business rule violation")
	ErrConflict       = errors.New("resource already exists")
	ErrStaleWrite     = errors.New("record changed by a concurrent request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternalServer = errors.New("internal server error")
)

// CodedError is a named business failure. Code is the machine-readable message code
// returned to clients; Kind is one of the sentinel errors above.
type CodedError struct {
	Kind error
	Code string
}

func (e *CodedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Code)
}

func (e *CodedError) Unwrap() error {
	return e.Kind
}

// Validation returns a business-rule failure carrying code.
func Validation(code string) error {
	return &CodedError{Kind: ErrValidation, Code: code}
}

// NotFound returns an entity-absent failure carrying code.
func NotFound(code string) error {
	return &CodedError{Kind: ErrNotFound, Code: code}
}

// Conflict returns a duplicate-entity failure carrying code.
func Conflict(code string) error {
	return &CodedError{Kind: ErrConflict, Code: code}
}

// CodeOf extracts the message code from err, or "" when err is not a CodedError.
func CodeOf(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// StaleWrite returns the failure reported when a guarded update lost a race.
func StaleWrite() error {
	return &CodedError{Kind: ErrStaleWrite, Code: MsgConcurrentUpdate}
}

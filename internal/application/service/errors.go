package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a rejected request
type ErrorKind int

const (
	// KindInvalid is a malformed, missing or out-of-range field
	KindInvalid ErrorKind = iota
	// KindDuplicate is an id that is already taken
	KindDuplicate
	// KindNotFound is a reference to a missing entity
	KindNotFound
	// KindConflict is a lost race against a concurrent writer
	KindConflict
	// KindForbidden is a missing or expired access grant
	KindForbidden
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindDuplicate:
		return "duplicate"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ValidationError is a business rule rejection. Detail is shown to the caller
// verbatim; no state was changed when it is returned.
type ValidationError struct {
	Kind   ErrorKind
	Detail string
	Fields []string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

func invalid(detail string, fields ...string) *ValidationError {
	return &ValidationError{Kind: KindInvalid, Detail: detail, Fields: fields}
}

// AsValidationError unwraps err into a ValidationError
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

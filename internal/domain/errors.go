package domain

import (
	"errors"
	"fmt"
)

// Kind is the machine-checkable category of a domain error.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindCollaborator
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindCollaborator:
		return "collaborator"
	case KindStorage:
		return "storage"
	}
	return "unknown"
}

// Error carries a category alongside a human-readable message so
// callers can branch on the failure class without string matching.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func CollaboratorErr(msg string, err error) error {
	return &Error{Kind: KindCollaborator, Msg: msg, Err: err}
}

func StorageErr(msg string, err error) error {
	return &Error{Kind: KindStorage, Msg: msg, Err: err}
}

// KindOf extracts the category from an error chain, KindUnknown when
// the chain carries no *Error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

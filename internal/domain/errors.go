package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can decide between skipping an
// item and aborting a run.
type ErrorKind string

const (
	KindFetch          ErrorKind = "fetch"           // page or media unreachable, non-2xx status
	KindNotFound       ErrorKind = "not_found"       // page does not encode a recognizable media path
	KindTransfer       ErrorKind = "transfer"        // remote stream or local write failed
	KindListRead       ErrorKind = "list_read"       // batch list missing or unreadable
	KindInvalidOptions ErrorKind = "invalid_options" // run options are inconsistent
)

// Sentinels for errors.Is. Only the kind is compared.
var (
	ErrFetch          = &Error{Kind: KindFetch}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrTransfer       = &Error{Kind: KindTransfer}
	ErrListRead       = &Error{Kind: KindListRead}
	ErrInvalidOptions = &Error{Kind: KindInvalidOptions}
)

// ErrVideoNotFound is the cause attached to KindNotFound errors raised by the resolver.
var ErrVideoNotFound = errors.New("Video not found")

// Error is a tagged failure raised by the resolver, the transfer engine or
// the batch coordinator.
type Error struct {
	Kind    ErrorKind
	Op      string // operation that failed: resolve, transfer, read list...
	Subject string // URL or path the operation worked on
	Err     error
}

// NewError creates a tagged error
func NewError(kind ErrorKind, op, subject string, err error) *Error {
	return &Error{Kind: kind, Op: op, Subject: subject, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Op != "" && e.Subject != "":
		return fmt.Sprintf("%s %s: %s", e.Op, e.Subject, msg)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	default:
		return msg
	}
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the outermost tagged error in err's chain, or
// an empty kind when there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

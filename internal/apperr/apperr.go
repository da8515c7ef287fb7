package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies errors raised by the accounting core.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConceptNotRecognized
	KindStorageRead
	KindStorageWrite
	KindAuthRequired
	KindDataRepairCandidate
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConceptNotRecognized:
		return "concept not recognized"
	case KindStorageRead:
		return "storage read"
	case KindStorageWrite:
		return "storage write"
	case KindAuthRequired:
		return "authorization required"
	case KindDataRepairCandidate:
		return "data repair candidate"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Any error carrying the same Kind matches.
var (
	ErrValidation           = &Error{Kind: KindValidation}
	ErrConceptNotRecognized = &Error{Kind: KindConceptNotRecognized}
	ErrStorageRead          = &Error{Kind: KindStorageRead}
	ErrStorageWrite         = &Error{Kind: KindStorageWrite}
	ErrAuthRequired         = &Error{Kind: KindAuthRequired}
	ErrDataRepairCandidate  = &Error{Kind: KindDataRepairCandidate}
)

// Error is a kinded error. Op names the failing operation, Msg describes it.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

// New returns an Error of the given kind.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap returns an Error of the given kind wrapping err.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first kinded error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

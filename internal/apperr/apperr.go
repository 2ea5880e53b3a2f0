// Package apperr classifies failures at module boundaries so that the HTTP
// layer can distinguish caller faults from internal ones. Lower-level errors
// (pgx, image codecs) are wrapped here and never cross a boundary raw.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindTranscode
	KindNotFound
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTranscode:
		return "transcode"
	case KindNotFound:
		return "not_found"
	case KindStore:
		return "store"
	default:
		return "internal"
	}
}

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

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func Transcode(msg string, err error) *Error {
	return &Error{Kind: KindTranscode, Msg: msg, Err: err}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

func Store(msg string, err error) *Error {
	return &Error{Kind: KindStore, Msg: msg, Err: err}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf reports the classification of err. Unclassified errors are treated
// as internal faults.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

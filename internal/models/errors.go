package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of the cycle engine and its collaborators.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindUpstreamFetch ErrorKind = "upstream_fetch"
	KindDataIntegrity ErrorKind = "data_integrity"
	KindNotFound      ErrorKind = "not_found"
)

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrUpstreamFetch = &Error{Kind: KindUpstreamFetch}
	ErrDataIntegrity = &Error{Kind: KindDataIntegrity}
	ErrNotFound      = &Error{Kind: KindNotFound}
)

// Error carries an error kind plus the operation and account it happened on.
// Code is a short machine-readable reason stored on the account for upstream
// failures.
type Error struct {
	Kind      ErrorKind
	Op        string
	AccountID string
	Code      string
	Err       error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.AccountID != "" {
		msg += " (account " + e.AccountID + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NewError builds an *Error of the given kind.
func NewError(kind ErrorKind, op, accountID string, err error) *Error {
	return &Error{Kind: kind, Op: op, AccountID: accountID, Err: err}
}

// Validationf builds a validation error with a formatted message.
func Validationf(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the error code of the first *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

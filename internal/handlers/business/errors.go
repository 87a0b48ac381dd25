package business

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies ledger failures
type Kind string

const (
	KindNotFound          Kind = "NotFound"
	KindInvalidState      Kind = "InvalidState"
	KindInvalidAmount     Kind = "InvalidAmount"
	KindInsufficientFunds Kind = "InsufficientFunds"
	KindConflict          Kind = "Conflict"
	KindForbidden         Kind = "Forbidden"
	KindInvalidInput      Kind = "InvalidInput"
)

// Sentinels for errors.Is matching against a LedgerError kind
var (
	ErrNotFound          = &LedgerError{Kind: KindNotFound}
	ErrInvalidState      = &LedgerError{Kind: KindInvalidState}
	ErrInvalidAmount     = &LedgerError{Kind: KindInvalidAmount}
	ErrInsufficientFunds = &LedgerError{Kind: KindInsufficientFunds}
	ErrConflict          = &LedgerError{Kind: KindConflict}
	ErrForbidden         = &LedgerError{Kind: KindForbidden}
	ErrInvalidInput      = &LedgerError{Kind: KindInvalidInput}
)

// Reasons attached to InvalidState failures of profit claims
const (
	ReasonNotYetMatured  = "NotYetMatured"
	ReasonAlreadyClaimed = "AlreadyClaimed"
	ReasonEarlyWithdrawn = "EarlyWithdrawn"
)

// LedgerError is the typed failure returned by every ledger store
type LedgerError struct {
	Kind    Kind
	Reason  string
	Allowed []string
}

func (e *LedgerError) Error() string {
	if e.Reason == "" {
		return string(e.Kind)
	}
	if len(e.Allowed) > 0 {
		return fmt.Sprintf("%s: %s (allowed: %s)", e.Kind, e.Reason, strings.Join(e.Allowed, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Is matches any LedgerError of the same kind
func (e *LedgerError) Is(target error) bool {
	t, ok := target.(*LedgerError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, format string, args ...interface{}) *LedgerError {
	return &LedgerError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...interface{}) error {
	return newError(KindNotFound, format, args...)
}

func invalidState(format string, args ...interface{}) error {
	return newError(KindInvalidState, format, args...)
}

func invalidAmount(format string, args ...interface{}) error {
	return newError(KindInvalidAmount, format, args...)
}

func conflict(format string, args ...interface{}) error {
	return newError(KindConflict, format, args...)
}

func forbidden(format string, args ...interface{}) error {
	return newError(KindForbidden, format, args...)
}

func invalidInput(format string, args ...interface{}) error {
	return newError(KindInvalidInput, format, args...)
}

// KindOf returns the ledger kind of err, or "" for infrastructure failures
func KindOf(err error) Kind {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

// AllowedOf returns the allowed target values carried by err, if any
func AllowedOf(err error) []string {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Allowed
	}
	return nil
}

package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can react without string matching.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindConflict     Kind = "conflict"
	KindInvalidInput Kind = "invalid_input"
	KindIneligible   Kind = "ineligible"
	KindTransient    Kind = "transient"
)

// Reason codes reported by the appeal lifecycle and the authorization gate.
const (
	ReasonNotFound         = "not_found"
	ReasonUnauthorized     = "unauthorized"
	ReasonIneligibleStatus = "ineligible_status"
	ReasonDuplicate        = "duplicate"
	ReasonWindowClosed     = "window_closed"
	ReasonForbidden        = "forbidden"
	ReasonImmutable        = "immutable"
	ReasonInvalidStatus    = "invalid_status"
	ReasonReadOnly         = "read_only"
	ReasonOtherInstitution = "other_institution"
	ReasonNotOwner         = "not_owner"
	ReasonNotLecturer      = "not_class_lecturer"
	ReasonAdminTarget      = "admin_target"
)

// Error is the single error type surfaced by services.
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Reason)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, reason, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return newError(KindNotFound, ReasonNotFound, format, args...)
}

func Forbidden(reason, format string, args ...any) error {
	return newError(KindForbidden, reason, format, args...)
}

func Conflict(reason, format string, args ...any) error {
	return newError(KindConflict, reason, format, args...)
}

func Invalid(format string, args ...any) error {
	return newError(KindInvalidInput, "", format, args...)
}

func Ineligible(reason, format string, args ...any) error {
	return newError(KindIneligible, reason, format, args...)
}

// Transient wraps a data store failure that may succeed on retry.
func Transient(err error) error {
	return &Error{Kind: KindTransient, Message: "data store unavailable", Err: err}
}

// WithReason returns a copy of err carrying reason when err is an *Error.
func WithReason(err error, reason string) error {
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	cp := *e
	cp.Reason = reason
	return &cp
}

// KindOf returns the kind of the first *Error in the chain, or "" for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ReasonOf returns the reason code of the first *Error in the chain.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

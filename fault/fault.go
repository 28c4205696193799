// Package fault defines the structured error type shared by the manifest
// patcher, the certificate capture and the instruction encoder.
//
// Kinds are stable categories for programmatic handling. RuleID names the
// violated invariant (e.g. AXML-HDR-002, DEX-OP-001). Callers should branch on
// Kind/RuleID and use errors.As to extract *Error; Error() strings are meant
// for humans and may change.
package fault

import (
	"errors"
	"fmt"
)

// Kind is a stable category for programmatic error handling.
type Kind string

const (
	// KindMalformedInput reports inconsistent size fields or a missing
	// element, attribute or anchor in the input.
	KindMalformedInput Kind = "MalformedInput"
	// KindUnsupportedOperand reports an opcode missing from the active
	// instruction-set profile or an unrecognized reference kind.
	KindUnsupportedOperand Kind = "UnsupportedOperand"
	// KindCapacityExceeded reports a count that does not fit its field.
	KindCapacityExceeded Kind = "CapacityExceeded"
	// KindOperandRange reports a register, literal or index that does not
	// fit the encoding slot of its instruction format.
	KindOperandRange Kind = "OperandRange"
	KindInternal     Kind = "Internal"
)

// NoOffset marks errors that do not refer to a position in the input.
const NoOffset = -1

// Error is the structured error type.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	// Offset is the byte offset in the input the error refers to,
	// or NoOffset.
	Offset int
	Cause  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Offset >= 0 {
		return fmt.Sprintf("%s (offset 0x%x)", e.Message, e.Offset)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func New(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Offset: NoOffset}
}

func Newf(kind Kind, ruleID, format string, args ...any) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: fmt.Sprintf(format, args...), Offset: NoOffset}
}

// At is like Newf but records the input offset the failure was detected at.
func At(kind Kind, ruleID string, offset int, format string, args ...any) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: fmt.Sprintf(format, args...), Offset: offset}
}

func Wrap(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return New(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg + ": " + cause.Error(), Offset: NoOffset, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the Kind of a structured error, or "" if err is not one.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}

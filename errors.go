package rrule

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind distinguishes the three orthogonal failure modes a recurrence
// rule can produce: a syntactic problem reading text, a structural problem
// with an otherwise well-formed rule, or a runtime problem producing
// occurrences from an already-validated rule.
type ErrorKind int

const (
	// KindParse marks a syntactic or lexical failure in text input.
	KindParse ErrorKind = iota
	// KindValidation marks a structural rule violation (RFC or safety limit).
	KindValidation
	// KindIteration marks a runtime failure while producing occurrences.
	KindIteration
)

func (k ErrorKind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindValidation:
		return "validation"
	case KindIteration:
		return "iteration"
	default:
		return "unknown"
	}
}

// ParseError reports a syntactic failure while reading RFC 5545 content
// lines. Pos, when non-empty, is the text being parsed when the error
// arose: a content line, or the part of one (a rule value or a date-time
// value) that failed.
type ParseError struct {
	Pos   string
	Token string
	cause error
}

func (e *ParseError) Error() string {
	if e.Pos != "" {
		return fmt.Sprintf("rrule: parse error at %q: %s", e.Pos, e.cause)
	}
	return fmt.Sprintf("rrule: parse error: %s", e.cause)
}

func (e *ParseError) Unwrap() error { return e.cause }

func newParseError(pos, token string, cause error) *ParseError {
	return &ParseError{Pos: pos, Token: token, cause: errors.WithStack(cause)}
}

func parseErrorf(pos, format string, args ...interface{}) *ParseError {
	return newParseError(pos, "", fmt.Errorf(format, args...))
}

// ValidationError reports a structural violation of an RFC constraint or a
// library safety limit, naming the offending field and value.
type ValidationError struct {
	Field string
	Value interface{}
	cause error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("rrule: validation error: field %s (value %v): %s", e.Field, e.Value, e.cause)
}

func (e *ValidationError) Unwrap() error { return e.cause }

func newValidationError(field string, value interface{}, cause error) *ValidationError {
	return &ValidationError{Field: field, Value: value, cause: errors.WithStack(cause)}
}

func validationErrorf(field string, value interface{}, format string, args ...interface{}) *ValidationError {
	return newValidationError(field, value, fmt.Errorf(format, args...))
}

// IterationErrorKind enumerates the distinct runtime failures an iterator
// can raise so callers can tell a safety-limit trip from genuine
// end-of-sequence or an unresolved local time.
type IterationErrorKind int

const (
	// IterationOverflow marks an advance that would carry the counter
	// outside the supported year range.
	IterationOverflow IterationErrorKind = iota
	// IterationLoopLimit marks the inner-loop iteration cap tripping.
	IterationLoopLimit
	// IterationUnresolvedLocalTime marks a civil time that could not be
	// resolved against its zone and for which no synthesis policy applied.
	IterationUnresolvedLocalTime
)

// IterationError is a sticky runtime failure: once an iterator raises one,
// every subsequent call of its Next function returns (zero, false) and the
// error accessor from IteratorWithError (or the AllWithError result)
// reports this same error. A partial prefix of already-emitted results
// remains valid.
type IterationError struct {
	Kind  IterationErrorKind
	cause error
}

func (e *IterationError) Error() string {
	return fmt.Sprintf("rrule: iteration error: %s", e.cause)
}

func (e *IterationError) Unwrap() error { return e.cause }

func newIterationError(kind IterationErrorKind, format string, args ...interface{}) *IterationError {
	return &IterationError{Kind: kind, cause: errors.WithStack(fmt.Errorf(format, args...))}
}

var errIndexOutOfRange = errors.New("rrule: index out of range")

// Package xerr defines the engine's error taxonomy. Every failure the core
// raises is one of the kinds below; callers type-switch (or errors.As) on
// these instead of matching error strings.
package xerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// ParseError signals malformed YAML, bad reference syntax, or a bad rule
// shape discovered while parsing a rule document.
type ParseError struct {
	Rule     string
	Location string
	Reason   string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("parse error in %s at %s: %s", e.Rule, e.Location, e.Reason)
}

func ErrParse(rule, location, reason string) error {
	return ParseError{Rule: rule, Location: location, Reason: reason}
}

// ValidationError signals a static rule violation: a missing field, two
// exclusive fields both set, an unknown op name, or a cycle in the rule
// graph.
type ValidationError struct {
	Rule     string
	Location string
	Reason   string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s at %s: %s", e.Rule, e.Location, e.Reason)
}

func ErrValidation(rule, location, reason string) error {
	return ValidationError{Rule: rule, Location: location, Reason: reason}
}

// ReferenceMissing is raised when a mapping marked required resolves to
// missing.
type ReferenceMissing struct {
	Target string
	Source string
}

func (e ReferenceMissing) Error() string {
	return fmt.Sprintf("required reference missing: target %q from %q", e.Target, e.Source)
}

func ErrReferenceMissing(target, source string) error {
	return ReferenceMissing{Target: target, Source: source}
}

// TypeMismatch is raised when an operation receives a pipe value or
// argument of the wrong variant, a cast fails, or map/flatten receive a
// non-array.
type TypeMismatch struct {
	Op       string
	Got      string
	Expected string
}

func (e TypeMismatch) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("type mismatch: got %s, expected %s", e.Got, e.Expected)
	}
	return fmt.Sprintf("type mismatch in %q: got %s, expected %s", e.Op, e.Got, e.Expected)
}

func ErrTypeMismatch(op, got, expected string) error {
	return TypeMismatch{Op: op, Got: got, Expected: expected}
}

// ArithmeticError covers divide-by-zero and integer overflow.
type ArithmeticError struct {
	Reason string
}

func (e ArithmeticError) Error() string { return "arithmetic error: " + e.Reason }

func ErrArithmetic(reason string) error {
	return ArithmeticError{Reason: reason}
}

// ExternalError covers transport failure, a non-JSON response body, or an
// absent `select` path on a network rule's response.
type ExternalError struct {
	Reason string
}

func (e ExternalError) Error() string { return "external error: " + e.Reason }

func ErrExternal(reason string) error {
	return ExternalError{Reason: reason}
}

func ErrExternalf(format string, args ...any) error {
	return errors.Wrap(ExternalError{Reason: fmt.Sprintf(format, args...)}, "external")
}

// Timeout is raised by a transport when a network rule's deadline elapses.
type Timeout struct {
	Reason string
}

func (e Timeout) Error() string { return "timeout: " + e.Reason }

func ErrTimeout(reason string) error {
	return Timeout{Reason: reason}
}

// UserAssert carries the user-supplied code/message of a triggered
// `asserts` entry.
type UserAssert struct {
	Code    string
	Message string
}

func (e UserAssert) Error() string {
	return fmt.Sprintf("assertion failed [%s]: %s", e.Code, e.Message)
}

func ErrUserAssert(code, message string) error {
	return UserAssert{Code: code, Message: message}
}

// CycleError reports a cycle detected in the rule graph during loading.
type CycleError struct {
	Path []string
}

func (e CycleError) Error() string {
	return fmt.Sprintf("cycle detected in rule graph: %v", e.Path)
}

func ErrCycle(path []string) error {
	return CycleError{Path: path}
}

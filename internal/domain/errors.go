// Package domain defines core types, interfaces, and errors for the query service.
package domain

import (
	"fmt"
	"strings"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// PermissionDeniedError indicates the user lacks membership in every group
// that would grant access. Required carries the union of database and query
// tags so operators can diagnose denials.
type PermissionDeniedError struct {
	Required []string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied: requires membership in at least one of: %s",
		strings.Join(e.Required, ", "))
}

// SafetyError indicates a query contained a destructive statement and was
// never executed.
type SafetyError struct {
	Word string
}

func (e *SafetyError) Error() string {
	return fmt.Sprintf("query contained %q and can not be run", e.Word)
}

// RecursionLimitError indicates a precedent chain exceeded the maximum depth.
// This also catches cycles in the precedent graph.
type RecursionLimitError struct {
	Depth int
}

func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("precedent recursion limit reached at depth %d", e.Depth)
}

// EmptyResultError indicates a query returned zero rows. Zero rows is treated
// as a failure, not an empty success.
type EmptyResultError struct {
	QueryID int64
}

func (e *EmptyResultError) Error() string { return "no data returned by query" }

// UnsupportedDialectError indicates an unknown database dialect.
type UnsupportedDialectError struct {
	Dialect string
}

func (e *UnsupportedDialectError) Error() string {
	return fmt.Sprintf("dialect %q is not one of MySQL, Postgres, Hive", e.Dialect)
}

// NotImplementedDialectError indicates a known dialect with no connector yet.
type NotImplementedDialectError struct {
	Dialect string
}

func (e *NotImplementedDialectError) Error() string {
	return fmt.Sprintf("dialect %q is not yet implemented", e.Dialect)
}

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

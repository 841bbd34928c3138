// Package errors defines the failure taxonomy shared by the mapping, persistence and
// migration layers: configuration errors (the model does not match what the engine
// expects), not-found errors (a configuration error for missing field accessors) and
// store errors (the underlying SQLite store rejected a statement).
package errors

import (
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrConfiguration is matched by every ConfigurationError and NotFoundError
	ErrConfiguration = stderrors.New("configuration error")

	// ErrStore is matched by every StoreError
	ErrStore = stderrors.New("store error")

	// ErrNotFound is returned when a row looked up by identifier does not exist
	ErrNotFound = stderrors.New("record not found")

	// ErrUniqueViolation is returned when a unique constraint is violated
	ErrUniqueViolation = stderrors.New("unique constraint violation")

	// ErrNotNullViolation is returned when a NOT NULL constraint is violated
	ErrNotNullViolation = stderrors.New("not null constraint violation")

	// ErrForeignKeyViolation is returned when a foreign key constraint is violated
	ErrForeignKeyViolation = stderrors.New("foreign key constraint violation")

	// ErrNotPersisted is returned when an operation needs an entity that has an identifier
	ErrNotPersisted = stderrors.New("entity has not been persisted")

	// ErrDowngrade is returned when the requested store version is lower than the stored one
	ErrDowngrade = stderrors.New("downgrade is not supported")
)

// ConfigurationError reports a mismatch between model definitions and what the engine
// expects: unmapped types, bad casing policies, ambiguous associations, downgrades.
type ConfigurationError struct {
	Subject string
	Reason  string
	Err     error
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Subject != "" {
		msg += ": " + e.Subject
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the cause, and ErrConfiguration when there is none.
func (e *ConfigurationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrConfiguration, e.Err}
	}
	return []error{ErrConfiguration}
}

// Configuration builds a ConfigurationError
func Configuration(subject, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Subject: subject, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a field accessor that does not exist on a definition or on any
// definition it embeds.
type NotFoundError struct {
	Type  string
	Field string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("configuration error: field %q not found on %s or its embedded definitions", e.Field, e.Type)
}

// Unwrap makes every NotFoundError match ErrConfiguration
func (e *NotFoundError) Unwrap() error {
	return ErrConfiguration
}

// StoreError wraps a failure returned by the underlying store.
type StoreError struct {
	Op    string
	Table string
	Err   error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("store error: %s %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("store error: %s: %v", e.Op, e.Err)
}

// Unwrap exposes ErrStore, the classified sentinel (if any) and the original cause.
func (e *StoreError) Unwrap() []error {
	errs := []error{ErrStore}
	if kind := classify(e.Err); kind != nil {
		errs = append(errs, kind)
	}
	return append(errs, e.Err)
}

// Store wraps err into a StoreError. A nil err yields nil, and errors that already are
// part of the taxonomy are returned unchanged.
func Store(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var storeErr *StoreError
	if stderrors.As(err, &storeErr) || stderrors.Is(err, ErrConfiguration) {
		return err
	}
	return &StoreError{Op: op, Table: table, Err: err}
}

// classify maps driver error codes to sentinel errors
func classify(err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var sqliteErr sqlite3.Error
	if stderrors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return ErrUniqueViolation
		case sqlite3.ErrConstraintNotNull:
			return ErrNotNullViolation
		case sqlite3.ErrConstraintForeignKey:
			return ErrForeignKeyViolation
		}
	}
	return nil
}

// IsConfiguration returns true if err is a ConfigurationError or NotFoundError
func IsConfiguration(err error) bool {
	return stderrors.Is(err, ErrConfiguration)
}

// IsFieldNotFound returns true if err is a NotFoundError
func IsFieldNotFound(err error) bool {
	var nf *NotFoundError
	return stderrors.As(err, &nf)
}

// IsStore returns true if err is a StoreError
func IsStore(err error) bool {
	return stderrors.Is(err, ErrStore)
}

// IsNotFound returns true if a looked up row does not exist
func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}

// IsUniqueViolation returns true if err is a unique constraint violation
func IsUniqueViolation(err error) bool {
	return stderrors.Is(err, ErrUniqueViolation)
}

// IsNotNullViolation returns true if err is a NOT NULL constraint violation
func IsNotNullViolation(err error) bool {
	return stderrors.Is(err, ErrNotNullViolation)
}

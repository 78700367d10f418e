// Package errors provides standardized error types and helpers for the ttldict codebase.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a key is absent from the table
	ErrNotFound = errors.New("key not found")
	// ErrInvalidIdentifier indicates a table name the engine cannot represent
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrIncompatibleFile indicates a database file stamped by another application
	ErrIncompatibleFile = errors.New("incompatible file")
	// ErrUnsupportedSchema indicates an on-disk schema version newer than this build
	ErrUnsupportedSchema = errors.New("unsupported schema version")
	// ErrReadOnly indicates a mutating operation against a read-only session
	ErrReadOnly = errors.New("read-only session")
	// ErrReentrancy indicates a session was entered while already open
	ErrReentrancy = errors.New("session already open")
	// ErrDirectoryNotFound indicates the database path's parent directory is missing
	ErrDirectoryNotFound = errors.New("directory not found")
	// ErrSessionClosed indicates a commit or rollback on an already finished session
	ErrSessionClosed = errors.New("session already closed")
)

// NotFoundError reports the key that was absent on a lookup or delete.
type NotFoundError struct {
	Key string // Key that was requested
	Err error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("key not found: %q", e.Key)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// InvalidIdentifierError reports a table name that cannot be used as an
// engine identifier.
type InvalidIdentifierError struct {
	Name   string // Offending identifier (may contain unprintable bytes)
	Reason string // Why it was rejected
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier %q: %s", e.Name, e.Reason)
}

func (e *InvalidIdentifierError) Unwrap() error {
	return ErrInvalidIdentifier
}

// IncompatibleFileError reports a database file whose application ID belongs
// to a different system.
type IncompatibleFileError struct {
	Path          string // Database file path
	ApplicationID int32  // Stamp found in the file
}

func (e *IncompatibleFileError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: illegal application ID %d", e.Path, e.ApplicationID)
	}
	return fmt.Sprintf("illegal application ID %d", e.ApplicationID)
}

func (e *IncompatibleFileError) Unwrap() error {
	return ErrIncompatibleFile
}

// UnsupportedSchemaError reports an on-disk schema version this build does
// not understand.
type UnsupportedSchemaError struct {
	Version   int // Version found in the file
	Supported int // Highest version this build understands
}

func (e *UnsupportedSchemaError) Error() string {
	return fmt.Sprintf("schema version %d is newer than supported version %d", e.Version, e.Supported)
}

func (e *UnsupportedSchemaError) Unwrap() error {
	return ErrUnsupportedSchema
}

// ReadOnlyError reports a mutating operation attempted on a read-only session.
type ReadOnlyError struct {
	Operation string // Operation that was attempted (e.g., "set", "delete")
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("cannot %s in a read-only session", e.Operation)
}

func (e *ReadOnlyError) Unwrap() error {
	return ErrReadOnly
}

// DirectoryNotFoundError reports a database path whose parent directory does
// not exist at open time.
type DirectoryNotFoundError struct {
	Path string // Missing directory
	Err  error  // Underlying stat error, if any
}

func (e *DirectoryNotFoundError) Error() string {
	return fmt.Sprintf("directory does not exist: %s", e.Path)
}

func (e *DirectoryNotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrDirectoryNotFound
}

// Helper functions for creating common errors

// NewNotFound creates a NotFoundError
func NewNotFound(key string) *NotFoundError {
	return &NotFoundError{Key: key}
}

// NewInvalidIdentifier creates an InvalidIdentifierError
func NewInvalidIdentifier(name, reason string) *InvalidIdentifierError {
	return &InvalidIdentifierError{Name: name, Reason: reason}
}

// NewIncompatibleFile creates an IncompatibleFileError
func NewIncompatibleFile(path string, applicationID int32) *IncompatibleFileError {
	return &IncompatibleFileError{Path: path, ApplicationID: applicationID}
}

// NewUnsupportedSchema creates an UnsupportedSchemaError
func NewUnsupportedSchema(version, supported int) *UnsupportedSchemaError {
	return &UnsupportedSchemaError{Version: version, Supported: supported}
}

// NewReadOnly creates a ReadOnlyError
func NewReadOnly(operation string) *ReadOnlyError {
	return &ReadOnlyError{Operation: operation}
}

// NewDirectoryNotFound creates a DirectoryNotFoundError
func NewDirectoryNotFound(path string, err error) *DirectoryNotFoundError {
	return &DirectoryNotFoundError{Path: path, Err: err}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

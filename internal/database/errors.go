package database

import (
	"errors"
	"fmt"
)

// Standard errors for the access layer
var (
	// ErrInvalidConfiguration is returned for unknown names, missing
	// defaults, and malformed logical database configurations
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrConnectionFailed is returned when a connection attempt fails
	ErrConnectionFailed = errors.New("connection failed")

	// ErrPermissionDenied is returned when a write capability is not granted
	ErrPermissionDenied = errors.New("permission denied")

	// ErrEngineMismatch is returned when a request shape does not match the
	// resolved engine type
	ErrEngineMismatch = errors.New("engine type mismatch")

	// ErrInvalidRequest is returned when a request fails boundary validation
	ErrInvalidRequest = errors.New("invalid request")
)

// ConfigurationError reports a problem with a logical database name or its
// registered configuration. It is deterministic and never worth retrying.
type ConfigurationError struct {
	Database string
	Reason   string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Database != "" {
		return fmt.Sprintf("configuration error for %q: %s", e.Database, e.Reason)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// Is checks if the error is ErrInvalidConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return errors.Is(target, ErrInvalidConfiguration)
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(database string, reason string) *ConfigurationError {
	return &ConfigurationError{Database: database, Reason: reason}
}

// NewUnknownDatabaseError creates the ConfigurationError raised when a
// logical name has no registration.
func NewUnknownDatabaseError(database string) *ConfigurationError {
	return &ConfigurationError{Database: database, Reason: "logical database is not registered"}
}

// ConnectionError wraps a driver-level connect or ping failure. The failed
// handle is never memoized, so a later call retries from scratch.
type ConnectionError struct {
	Database string
	Engine   EngineType
	Cause    error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s database %q: %v", e.Engine, e.Database, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is ErrConnectionFailed.
func (e *ConnectionError) Is(target error) bool {
	if errors.Is(target, ErrConnectionFailed) {
		return true
	}
	return errors.Is(e.Cause, target)
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(database string, engine EngineType, cause error) *ConnectionError {
	return &ConnectionError{Database: database, Engine: engine, Cause: cause}
}

// PermissionDeniedError reports a write attempted without the matching
// capability. The underlying driver is never invoked for a denied write.
type PermissionDeniedError struct {
	Database   string
	Capability Capability
}

// Error implements the error interface.
func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("capability %q is not granted for logical database %q", e.Capability, e.Database)
}

// Is checks if the error is ErrPermissionDenied.
func (e *PermissionDeniedError) Is(target error) bool {
	return errors.Is(target, ErrPermissionDenied)
}

// NewPermissionDeniedError creates a new PermissionDeniedError.
func NewPermissionDeniedError(database string, capability Capability) *PermissionDeniedError {
	return &PermissionDeniedError{Database: database, Capability: capability}
}

// EngineMismatchError reports a request routed to a logical database of the
// wrong engine type, e.g. SQL against a document-typed name.
type EngineMismatchError struct {
	Database string
	Want     EngineType
	Got      EngineType
}

// Error implements the error interface.
func (e *EngineMismatchError) Error() string {
	return fmt.Sprintf("logical database %q is %s, request requires %s", e.Database, e.Got, e.Want)
}

// Is checks if the error is ErrEngineMismatch.
func (e *EngineMismatchError) Is(target error) bool {
	return errors.Is(target, ErrEngineMismatch)
}

// NewEngineMismatchError creates a new EngineMismatchError.
func NewEngineMismatchError(database string, want, got EngineType) *EngineMismatchError {
	return &EngineMismatchError{Database: database, Want: want, Got: got}
}

// IsConfigurationError checks if an error is a configuration error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// IsConnectionError checks if an error is a connection error.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnectionFailed)
}

// IsPermissionDenied checks if an error is a permission denial.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsEngineMismatch checks if an error is an engine type mismatch.
func IsEngineMismatch(err error) bool {
	return errors.Is(err, ErrEngineMismatch)
}

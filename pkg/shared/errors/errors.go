package errors

import (
	"errors"
	"fmt"
)

// NotFoundError indicates that a project, branch or pull request does not
// exist on the server.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q was not found", e.Resource, e.Key)
}

// NewNotFoundError creates a NotFoundError for the given resource kind and key.
func NewNotFoundError(resource, key string) error {
	return &NotFoundError{Resource: resource, Key: key}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// UnsupportedError indicates that the server edition lacks the capability
// behind an API, e.g. branches on a community edition instance.
type UnsupportedError struct {
	Capability string
	Endpoint   string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("capability %q is not supported by %q", e.Capability, e.Endpoint)
}

// NewUnsupportedError creates an UnsupportedError for the given capability.
func NewUnsupportedError(capability, endpoint string) error {
	return &UnsupportedError{Capability: capability, Endpoint: endpoint}
}

// IsUnsupported reports whether err is an UnsupportedError.
func IsUnsupported(err error) bool {
	var ue *UnsupportedError
	return errors.As(err, &ue)
}

// ValidationError represents an invalid command invocation, raised before any
// network call is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError with a formatted message.
func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTrigger tags event source entries whose type has no binder.
// The binder table is a closed set, so an unrecognized tag is a
// declaration error, never something to skip.
var ErrUnknownTrigger = errors.New("unknown trigger type")

// ErrUnknownKind tags resources whose kind has no provisioner.
var ErrUnknownKind = errors.New("unknown resource type")

// ValidationError reports a resource declaration that cannot be
// deployed as written.
type ValidationError struct {
	Resource string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("resource %s: %s", e.Resource, e.Reason)
}

func newMissingFieldsError(resource string, missing []string) *ValidationError {
	return &ValidationError{
		Resource: resource,
		Reason:   fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")),
	}
}

// DependencyError reports a collaborator the declaration references
// (execution role, code artifact, stream, rule) that does not exist at
// the point it is needed.
type DependencyError struct {
	Resource   string
	Dependency string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("resource %s: dependency %s does not exist", e.Resource, e.Dependency)
}

// IsValidation reports whether err is a declaration validation failure.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsDependency reports whether err is a missing-dependency failure.
func IsDependency(err error) bool {
	var e *DependencyError
	return errors.As(err, &e)
}

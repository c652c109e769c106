package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidation(t *testing.T) {
	err := newMissingFieldsError("app", []string{"runtime"})
	assert.True(t, IsValidation(err))
	assert.True(t, IsValidation(fmt.Errorf("deploy: %w", err)))

	assert.False(t, IsValidation(errors.New("boom")))
	assert.False(t, IsValidation(nil))
}

func TestIsDependency(t *testing.T) {
	err := &DependencyError{Resource: "app", Dependency: "execution role app-role"}
	assert.True(t, IsDependency(err))
	assert.True(t, IsDependency(fmt.Errorf("deploy: %w", err)))

	assert.False(t, IsDependency(&ValidationError{Resource: "app", Reason: "bad"}))
	assert.False(t, IsDependency(nil))
}

func TestValidationError_Message(t *testing.T) {
	err := newMissingFieldsError("app", []string{"memory", "runtime"})
	assert.Equal(t, "resource app: missing required fields: memory, runtime", err.Error())
}

func TestDependencyError_Message(t *testing.T) {
	err := &DependencyError{Resource: "app", Dependency: "stream events"}
	assert.Equal(t, "resource app: dependency stream events does not exist", err.Error())
}

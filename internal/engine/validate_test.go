package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picklr-io/relish/internal/meta"
)

func TestValidateParams(t *testing.T) {
	required := []string{"runtime", "memory", "func_name"}

	t.Run("all present", func(t *testing.T) {
		err := validateParams("app", meta.Params{
			"runtime":   "python3.8",
			"memory":    float64(128),
			"func_name": "handler",
		}, required)
		assert.NoError(t, err)
	})

	t.Run("missing fields are listed sorted", func(t *testing.T) {
		err := validateParams("app", meta.Params{"func_name": "handler"}, required)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "app", verr.Resource)
		assert.Contains(t, verr.Reason, "memory, runtime")
	})

	t.Run("zero values count as missing", func(t *testing.T) {
		err := validateParams("app", meta.Params{
			"runtime":   "",
			"memory":    float64(0),
			"func_name": "handler",
		}, required)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Reason, "memory")
		assert.Contains(t, verr.Reason, "runtime")
	})

	t.Run("no required fields", func(t *testing.T) {
		assert.NoError(t, validateParams("app", meta.Params{}, nil))
	})
}

package engine

import (
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/picklr-io/relish/internal/meta"
)

var paramValidator = validator.New()

// validateParams checks that every required field is present and
// non-zero in the resource's meta. Failures list all missing fields at
// once so a broken declaration is fixed in one pass.
func validateParams(resource string, params meta.Params, required []string) error {
	rules := make(map[string]any, len(required))
	for _, field := range required {
		rules[field] = "required"
	}
	failed := paramValidator.ValidateMap(params, rules)
	if len(failed) == 0 {
		return nil
	}

	missing := make([]string, 0, len(failed))
	for field := range failed {
		missing = append(missing, field)
	}
	sort.Strings(missing)
	return newMissingFieldsError(resource, missing)
}

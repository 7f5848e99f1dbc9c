package profileretry

import (
	"fmt"
	"strings"

	"rozgar-signup/internal/common/errors"
	"rozgar-signup/internal/common/validation"
)

// validateVariables checks the raw job variables before decoding.
func validateVariables(raw string) error {
	result, err := validation.ValidateDocument(validation.SchemaProfileRetryJob, []byte(raw))
	if err != nil {
		return errors.NewValidationError("variables", err.Error())
	}
	if !result.Valid {
		return errors.NewValidationError("variables",
			fmt.Sprintf("Validation errors: %s", strings.Join(result.GetErrorMessages(), "; ")))
	}
	return nil
}

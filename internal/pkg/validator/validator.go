// Package validator exposes tag-based struct validation on top of
// go-playground/validator, with field failures flattened into one error chain
// rooted at ErrValidationFailed.
package validator

import (
	"errors"
	"fmt"

	gvalidator "github.com/go-playground/validator/v10"
)

// ErrValidationFailed roots every error chain returned by Validate, so
// callers can detect a validation failure with errors.Is regardless of how
// many fields failed.
var ErrValidationFailed = errors.New("struct validation failed")

var validate *gvalidator.Validate

func init() {
	validate = gvalidator.New(gvalidator.WithRequiredStructEnabled())
}

// fieldErrorFormat renders one field failure, e.g.
// "'Address': value '0x' does not meet the requirements for the 'required' validation".
const fieldErrorFormat = "'%s': value '%v' does not meet the requirements for the '%s' validation"

// formatError flattens a gvalidator.ValidationErrors into a joined chain
// starting with ErrValidationFailed. Other errors pass through untouched.
func formatError(err error) error {
	var fieldErrors gvalidator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	errs := make([]error, 0, len(fieldErrors)+1)
	errs = append(errs, ErrValidationFailed)
	for _, fieldErr := range fieldErrors {
		errs = append(errs, fmt.Errorf(fieldErrorFormat,
			fieldErr.Field(),
			fieldErr.Value(),
			fieldErr.Tag(),
		))
	}

	return errors.Join(errs...)
}

// Validate checks v against its `validate` struct tags. It returns nil when
// all fields pass, or a chain carrying ErrValidationFailed plus one formatted
// message per failing field.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return formatError(err)
	}

	return nil
}

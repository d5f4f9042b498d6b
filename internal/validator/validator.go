package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	ierr "github.com/rongwang/billing-server/internal/errors"
)

var validate = newValidator()

// newValidator reports fields by their json or form name
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	return v
}

// GetValidator returns the shared validator instance
func GetValidator() *validator.Validate {
	return validate
}

// ValidateRequest checks the validate tags of req and returns a validation error
// carrying one detail entry per failing field
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		details := make(map[string]any)
		var validateErrs validator.ValidationErrors
		if ierr.As(err, &validateErrs) {
			for _, err := range validateErrs {
				details[err.Field()] = err.Tag()
			}
		}
		return ierr.WithError(err).
			WithHint("Missing or invalid fields").
			WithReportableDetails(details).
			Mark(ierr.ErrValidation)
	}
	return nil
}

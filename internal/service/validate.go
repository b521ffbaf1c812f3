package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/target/inferq/internal/errors"
)

// validate is shared; validator caches struct metadata per type.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest runs struct tag validation and converts the first failure into a
// Validation AppError naming the offending JSON field.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid request")
	}
	fe := fieldErrs[0]
	return apperrors.ValidationField(fe.Field(), validationMessage(fe))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "uuid":
		return fe.Field() + " must be a UUID"
	case "max":
		if fe.Kind() == reflect.String {
			return fe.Field() + " must be at most " + fe.Param() + " characters"
		}
		return fe.Field() + " must be at most " + fe.Param()
	case "min":
		return fe.Field() + " must be at least " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}

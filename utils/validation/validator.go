package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance. Field names in errors are
// taken from json tags so they match the request body.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	// ids: every element of a []string must be non-blank
	_ = v.RegisterValidation("ids", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.Slice {
			return false
		}
		for i := 0; i < field.Len(); i++ {
			if strings.TrimSpace(field.Index(i).String()) == "" {
				return false
			}
		}
		return true
	})
	return &Validator{validate: v}
}

// ValidateStruct validates a struct using struct tags
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.validate.Struct(s)
}

// FormatValidationErrors converts validation errors to a user-friendly format
func FormatValidationErrors(err error) map[string]string {
	errors := make(map[string]string)

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			field := e.Field()
			switch e.Tag() {
			case "required":
				errors[field] = fmt.Sprintf("%s is required", field)
			case "email":
				errors[field] = "Invalid email format"
			case "min":
				errors[field] = fmt.Sprintf("%s must be at least %s", field, e.Param())
			case "max":
				errors[field] = fmt.Sprintf("%s must be at most %s", field, e.Param())
			case "gte":
				errors[field] = fmt.Sprintf("%s must be greater than or equal to %s", field, e.Param())
			case "gtfield":
				errors[field] = fmt.Sprintf("%s must be after %s", field, e.Param())
			case "ids":
				errors[field] = fmt.Sprintf("%s must not contain blank ids", field)
			default:
				errors[field] = fmt.Sprintf("%s is invalid", field)
			}
		}
	}

	return errors
}

// SanitizeString removes null bytes and surrounding whitespace
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}

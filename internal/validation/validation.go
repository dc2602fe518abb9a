// Package validation runs struct-tag validation and reports failures keyed
// by JSON field name with human-readable messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/ProConnect-Lab/proconnect-backend/internal/apperr"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func engine() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		if err := validate.RegisterValidation("maxbytes", maxBytes); err != nil {
			panic(fmt.Sprintf("validation: %v", err))
		}
	})
	return validate
}

// maxBytes bounds the UTF-8 length of a string field, unlike max which
// counts runes.
func maxBytes(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		panic(fmt.Sprintf("validation: maxbytes=%q", fl.Param()))
	}
	return len(fl.Field().String()) <= n
}

// Struct runs the `validate` struct tags of v and returns an
// *apperr.ValidationError, or nil when every rule passes.
func Struct(v any) error {
	return Check(v).OrNil()
}

// Check is Struct for callers that add their own rules before reporting.
// The result is never nil. v must be a struct or a pointer to one.
func Check(v any) *apperr.ValidationError {
	out := &apperr.ValidationError{}
	err := engine().Struct(v)
	if err == nil {
		return out
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		panic(fmt.Sprintf("validation: %v", err))
	}
	for _, fe := range fieldErrs {
		key := fe.Field()
		if fe.Tag() == "eqfield" {
			key = strings.TrimSuffix(key, "_confirmation")
		}
		out.Add(key, message(fe))
	}
	return out
}

func label(field string) string { return strings.ReplaceAll(field, "_", " ") }

func message(fe validator.FieldError) string {
	f := label(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", f)
	case "required_if":
		return fmt.Sprintf("The %s field is required for professional accounts.", f)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", f)
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", f, fe.Param())
	case "maxbytes":
		return fmt.Sprintf("The %s field must not be greater than %s bytes.", f, fe.Param())
	case "min":
		return fmt.Sprintf("The %s field must be at least %s characters.", f, fe.Param())
	case "eqfield":
		return fmt.Sprintf("The %s field confirmation does not match.", label(strings.TrimSuffix(fe.Field(), "_confirmation")))
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", f)
	case "gt":
		return fmt.Sprintf("The selected %s is invalid.", f)
	}
	return fmt.Sprintf("The %s field is invalid.", f)
}

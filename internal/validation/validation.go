// Package validation checks request payloads with struct tags.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mdouchement/memeswipe/internal/mserror"
	"github.com/pkg/errors"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// A Validator validates structs and reports failures as invalid_input errors.
type Validator struct {
	v *validator.Validate
}

// New returns a new Validator naming fields after their JSON tag.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		switch name {
		case "":
			return fld.Name
		case "-":
			return ""
		}
		return name
	})

	// Registration only fails on an empty tag or a nil func.
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return strongPassword(fl.Field().String())
	})

	return &Validator{v: v}
}

// Validate validates s.
// It fulfills echo.Validator interface.
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return mserror.Wrap(err, mserror.KindInvalidInput, "Invalid payload.")
	}

	details := make(map[string]string, len(verrs))
	for _, e := range verrs {
		details[e.Field()] = message(e)
	}
	return mserror.InvalidInputWithDetails(summary(verrs[0]), details)
}

func summary(e validator.FieldError) string {
	return fmt.Sprintf("%s %s.", e.Field(), message(e))
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", e.Param())
		}
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must not contain more than %s items", e.Param())
		}
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "http_url", "url":
		return "must be a valid HTTP/HTTPS URL"
	case "oneof":
		return "must be one of: " + e.Param()
	case "alphanum":
		return "must only contain letters and digits"
	case "username":
		return "can only contain letters, numbers, and underscores"
	case "password":
		return "must contain at least one lowercase letter, one uppercase letter, and one number"
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	default:
		return "is invalid"
	}
}

func strongPassword(s string) bool {
	var lower, upper, digit bool
	for _, r := range s {
		switch {
		case 'a' <= r && r <= 'z':
			lower = true
		case 'A' <= r && r <= 'Z':
			upper = true
		case '0' <= r && r <= '9':
			digit = true
		}
	}
	return lower && upper && digit
}

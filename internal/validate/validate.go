// Package validate checks request structs with go-playground/validator and reports
// failures as domain.ErrInvalidInput with per-field messages.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kailas-cloud/pieces/internal/domain"
	"github.com/kailas-cloud/pieces/internal/domain/tags"
)

// validate is the singleton validator instance.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = validate.RegisterValidation("piecetag", func(fl validator.FieldLevel) bool {
		return tags.Validate(fl.Field().String()) == nil
	})
}

// Error wraps validation errors with structured details.
type Error struct {
	Fields map[string]string
}

// Error implements the error interface. Fields are listed in name order.
func (e *Error) Error() string {
	names := make([]string, 0, len(e.Fields))
	for n := range e.Fields {
		names = append(names, n)
	}
	sort.Strings(names)

	msgs := make([]string, len(names))
	for i, n := range names {
		msgs[i] = e.Fields[n]
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Unwrap classifies every validation failure as invalid input.
func (e *Error) Unwrap() error { return domain.ErrInvalidInput }

// Struct validates s by its `validate` tags.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		return newError(errs)
	}
	return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
}

func newError(errs validator.ValidationErrors) *Error {
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			fields[field] = field + " is required"
		case "notblank":
			fields[field] = field + " must not be blank"
		case "min":
			fields[field] = fmt.Sprintf("%s must have at least %s items", field, fe.Param())
		case "max":
			fields[field] = fmt.Sprintf("%s must have at most %s items", field, fe.Param())
		case "gte":
			fields[field] = fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
		case "lte":
			fields[field] = fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
		case "piecetag":
			fields[field] = fmt.Sprintf("%s must be non-empty and must not contain %q", field, tags.Delimiter)
		default:
			fields[field] = fmt.Sprintf("%s failed on the '%s' rule", field, fe.Tag())
		}
	}
	return &Error{Fields: fields}
}

// Package validation checks raw request input and reports every failing
// field in one AppError.
package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/employee-attendance/internal"
	"github.com/go-playground/validator/v10"
)

type ValidatorFunc func(value string) *internal.AppError

type FieldValidator struct {
	FieldName  string
	Value      string
	Validators []ValidatorFunc
	required   bool
}

type ValidationBuilder struct {
	fields []*FieldValidator
}

func NewValidator() *ValidationBuilder {
	return &ValidationBuilder{}
}

// Field registers a value. Rules are skipped for an empty value unless the
// field is Required.
func (v *ValidationBuilder) Field(name, value string) *FieldValidator {
	fv := &FieldValidator{FieldName: name, Value: value}
	v.fields = append(v.fields, fv)
	return fv
}

func (fv *FieldValidator) add(fn ValidatorFunc) *FieldValidator {
	fv.Validators = append(fv.Validators, fn)
	return fv
}

func (fv *FieldValidator) fail(message string, code internal.ErrorCode) *internal.AppError {
	return internal.NewValidationFieldError(fv.FieldName, message, code)
}

func (fv *FieldValidator) Required() *FieldValidator {
	fv.required = true
	return fv
}

// Month accepts YYYY-MM.
func (fv *FieldValidator) Month(code internal.ErrorCode) *FieldValidator {
	return fv.add(func(value string) *internal.AppError {
		if _, err := time.Parse("2006-01", value); err != nil {
			return fv.fail(fmt.Sprintf("%s must be formatted as YYYY-MM", fv.FieldName), code)
		}
		return nil
	})
}

// Date accepts YYYY-MM-DD.
func (fv *FieldValidator) Date(code internal.ErrorCode) *FieldValidator {
	return fv.add(func(value string) *internal.AppError {
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return fv.fail(fmt.Sprintf("%s must be formatted as YYYY-MM-DD", fv.FieldName), code)
		}
		return nil
	})
}

func (fv *FieldValidator) IntRange(min, max int) *FieldValidator {
	return fv.add(func(value string) *internal.AppError {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fv.fail(fmt.Sprintf("%s must be a number", fv.FieldName), internal.ErrCodeValidationFailed)
		}
		if n < min || n > max {
			return fv.fail(fmt.Sprintf("%s must be between %d and %d", fv.FieldName, min, max), internal.ErrCodeValidationFailed)
		}
		return nil
	})
}

// OneOf compares case-insensitively.
func (fv *FieldValidator) OneOf(code internal.ErrorCode, allowed ...string) *FieldValidator {
	return fv.add(func(value string) *internal.AppError {
		for _, a := range allowed {
			if strings.EqualFold(value, a) {
				return nil
			}
		}
		return fv.fail(fmt.Sprintf("%s must be one of %s", fv.FieldName, strings.Join(allowed, ", ")), code)
	})
}

func (fv *FieldValidator) MaxLength(max int) *FieldValidator {
	return fv.add(func(value string) *internal.AppError {
		if len(value) > max {
			return fv.fail(fmt.Sprintf("%s must not exceed %d characters", fv.FieldName, max), internal.ErrCodeValidationFailed)
		}
		return nil
	})
}

func (fv *FieldValidator) Custom(fn ValidatorFunc) *FieldValidator {
	return fv.add(fn)
}

// Validate runs every rule; the first failure per field is reported.
func (v *ValidationBuilder) Validate() *internal.AppError {
	var failures []internal.ValidationError

	for _, field := range v.fields {
		if field.Value == "" {
			if field.required {
				failures = append(failures, internal.ValidationError{
					Field:   field.FieldName,
					Message: fmt.Sprintf("%s is required", field.FieldName),
					Code:    string(internal.ErrCodeValidationFailed),
				})
			}
			continue
		}

		for _, rule := range field.Validators {
			if appErr := rule(field.Value); appErr != nil {
				failures = append(failures, details(field.FieldName, appErr)...)
				break
			}
		}
	}

	if len(failures) == 0 {
		return nil
	}

	appErr := internal.NewValidationError(failures[0].Message, internal.ErrorCode(failures[0].Code))
	return appErr.WithDetails(internal.ValidationErrors{Errors: failures})
}

func details(field string, appErr *internal.AppError) []internal.ValidationError {
	if ve, ok := appErr.Details.(internal.ValidationErrors); ok {
		return ve.Errors
	}
	return []internal.ValidationError{{Field: field, Message: appErr.Message, Code: string(appErr.Code)}}
}

// FromValidator converts go-playground validation failures into one AppError.
// It returns nil when err carries none.
func FromValidator(err error) *internal.AppError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return nil
	}

	failures := make([]internal.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		failures = append(failures, internal.ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Message: fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()),
			Code:    string(internal.ErrCodeValidationFailed),
		})
	}

	return internal.NewValidationError("Validation failed", internal.ErrCodeValidationFailed).
		WithDetails(internal.ValidationErrors{Errors: failures})
}

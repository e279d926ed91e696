package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationErrors is returned by Struct and Var.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	messages := make([]string, 0, len(e))
	for _, err := range e {
		messages = append(messages, err.Message)
	}

	return "validation failed: " + strings.Join(messages, "; ")
}

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]

		if name == "-" {
			return ""
		}

		return name
	})

	return &Validator{validate: v}
}

func (v *Validator) Validate(i any) ([]ValidationError, bool) {
	if err := v.validate.Struct(i); err != nil {
		return convert(err), false
	}

	return nil, true
}

// Struct is Validate in error form.
func (v *Validator) Struct(i any) error {
	if errs, ok := v.Validate(i); !ok {
		return ValidationErrors(errs)
	}

	return nil
}

// Var validates a single value against tag, reporting it under field.
func (v *Validator) Var(field string, value any, tag string) error {
	if err := v.validate.Var(value, tag); err != nil {
		errs := convert(err)
		for i := range errs {
			errs[i].Field = field
			errs[i].Message = strings.Replace(errs[i].Message, "value", field, 1)
		}

		return ValidationErrors(errs)
	}

	return nil
}

func convert(err error) []ValidationError {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return []ValidationError{{Code: "INVALID", Message: err.Error()}}
	}

	errors := make([]ValidationError, 0, len(validationErrors))
	for _, err := range validationErrors {
		field := err.Field()
		if field == "" {
			field = "value"
		}

		var message string
		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "min":
			message = fmt.Sprintf("%s must be at least %s", field, err.Param())
		case "max":
			message = fmt.Sprintf("%s must not exceed %s", field, err.Param())
		case "gte":
			message = fmt.Sprintf("%s must be greater than or equal to %s", field, err.Param())
		case "url", "http_url":
			message = fmt.Sprintf("%s must be a valid url", field)
		default:
			message = fmt.Sprintf("%s failed on %s", field, err.Tag())
		}

		errors = append(errors, ValidationError{
			Field:   field,
			Code:    strings.ToUpper(err.Tag()),
			Message: message,
		})
	}

	return errors
}

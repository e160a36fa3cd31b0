// Package validation wraps go-playground/validator with the field error
// format the services return.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	apperrors "gigmarket/pkg/errors"
	"gigmarket/pkg/logger"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Fields lists the offending json field names
func (v ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(v))
	for _, e := range v {
		fields = append(fields, e.Field)
	}
	return fields
}

// Validator is shared by the domain validators
type Validator struct {
	validate *validator.Validate
	log      *logger.Logger
}

func New(log *logger.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{validate: v, log: log}
}

// RegisterValidation adds a custom tag. Registration failures are fatal.
func (v *Validator) RegisterValidation(tag string, fn validator.Func) {
	if err := v.validate.RegisterValidation(tag, fn); err != nil {
		v.log.Fatal("Failed to register validator", "tag", tag, "error", err)
	}
}

// Struct validates s and returns ValidationErrors on failure
func (v *Validator) Struct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
		case "datetime":
			message = fmt.Sprintf("%s must match the layout %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}

// ToAppError converts a validation failure to the 422 application error
func ToAppError(err error) error {
	if err == nil {
		return nil
	}
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Validation failed", map[string]any{"errors": []ValidationError(verrs)})
	}
	return apperrors.Validation("Validation failed", map[string]any{"error": err.Error()})
}

// Missing reports which of the named values are empty. The returned slice
// keeps the given order.
func Missing(fields ...Field) []string {
	var missing []string
	for _, f := range fields {
		if f.Empty {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

type Field struct {
	Name  string
	Empty bool
}

func Required(name string, empty bool) Field {
	return Field{Name: name, Empty: empty}
}

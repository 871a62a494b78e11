package core

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"dashboard/internal/types"
)

// ValidationError describes one failed field rule.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult carries blocking errors and non-blocking warnings.
type ValidationResult struct {
	Errors   []ValidationError `json:"errors,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}

// IsValid reports whether there are no blocking errors.
func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Warner is implemented by request types that can flag valid but
// questionable input, e.g. a freshness override combined with forceRefresh.
type Warner interface {
	ValidationWarnings() []string
}

// Validator wraps go-playground/validator with the dashboard's custom tags
// and renders failures as INVALID_REQUEST errors.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator. Field names in errors follow the json
// tag, falling back to the lower-camel Go field name so query structs without
// json tags report "location" rather than "Location".
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("notblank", validateNotBlank)
	_ = v.RegisterValidation("iso8601", validateISO8601)

	return &Validator{validate: v, logger: logger}
}

func fieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return lowerFirst(fld.Name)
	default:
		return name
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func validateNotBlank(fl validator.FieldLevel) bool {
	f := fl.Field()
	if f.Kind() != reflect.String {
		return true
	}
	return strings.TrimSpace(f.String()) != ""
}

func validateISO8601(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := time.Parse(time.RFC3339Nano, s)
	return err == nil
}

// ValidateStruct validates s and returns an INVALID_REQUEST *types.AppError
// whose details carry every field failure under "validation_errors".
func (v *Validator) ValidateStruct(s any) error {
	errs, err := v.collect(s)
	if err != nil {
		return err
	}
	if len(errs) == 0 {
		return nil
	}
	return types.NewAppErrorWithDetails(types.ErrCodeInvalidRequest, errs[0].Message, nil,
		map[string]any{"validation_errors": errs})
}

// ValidateStructWithWarnings validates s and also gathers warnings from types
// implementing Warner. Warnings are only reported for otherwise valid input.
func (v *Validator) ValidateStructWithWarnings(s any) ValidationResult {
	errs, err := v.collect(s)
	if err != nil {
		return ValidationResult{Errors: []ValidationError{{Code: "invalid", Message: err.Error()}}}
	}
	result := ValidationResult{Errors: errs}
	if w, ok := s.(Warner); ok && result.IsValid() {
		result.Warnings = w.ValidationWarnings()
	}
	return result
}

func (v *Validator) collect(s any) ([]ValidationError, error) {
	err := v.validate.Struct(s)
	if err == nil {
		return nil, nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		v.logger.Error("validator called with a non-struct", "type", fmt.Sprintf("%T", s))
		return nil, types.NewAppError(types.ErrCodeInternal, "invalid validation target", err)
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, types.NewAppError(types.ErrCodeInternal, "validation failed", err)
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fieldPath(fe),
			Code:    fe.Tag(),
			Message: message(fe),
		})
	}
	return out, nil
}

// fieldPath drops the top-level struct name from the namespace, giving
// "timeWindows[0].name" for nested fields.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	field := fieldPath(fe)
	isString := fe.Kind() == reflect.String
	isCollection := fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map

	switch fe.Tag() {
	case "required", "notblank":
		return field + " is required"
	case "min", "gte":
		switch {
		case isString:
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		case isCollection:
			return fmt.Sprintf("%s must contain at least %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		switch {
		case isString:
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		case isCollection:
			return fmt.Sprintf("%s must contain at most %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, strings.Join(strings.Fields(fe.Param()), ", "))
	case "datetime":
		if fe.Param() == "2006-01-02" {
			return field + " must be a date in YYYY-MM-DD format"
		}
		return fmt.Sprintf("%s must match the layout %s", field, fe.Param())
	case "iso8601":
		return field + " must be an ISO-8601 timestamp"
	default:
		return fmt.Sprintf("%s failed the %s rule", field, fe.Tag())
	}
}

// Package validation decodes and validates request bodies.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/flowbit/nlsql/internal/api/response"
)

// validate is safe for concurrent Struct calls. Registrations happen in init only.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names ("question") rather than Go field names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	if err := validate.RegisterValidation("no_null_bytes", validateNoNullBytes); err != nil {
		slog.Error("Failed to register no_null_bytes validator", "error", err)
	}
}

// ErrInvalidBody is returned by DecodeJSON when the body is not a single valid JSON object.
var ErrInvalidBody = errors.New("invalid request body")

// DecodeJSON decodes the request body into dst, rejecting unknown fields and trailing data.
func DecodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}

	if decoder.More() {
		return fmt.Errorf("%w: unexpected data after JSON object", ErrInvalidBody)
	}

	return nil
}

// ValidateStruct validates s against its validate tags.
func ValidateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationErrors(err)
	}

	return nil
}

type fieldErrors struct {
	validator.ValidationErrors
	msg string
}

func (e *fieldErrors) Error() string { return e.msg }

func (e *fieldErrors) Unwrap() error { return e.ValidationErrors }

func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		messages = append(messages, formatFieldError(fieldError))
	}

	return &fieldErrors{
		ValidationErrors: validationErrors,
		msg:              "validation failed: " + strings.Join(messages, "; "),
	}
}

func formatFieldError(fieldError validator.FieldError) string {
	field := fieldError.Field()

	switch fieldError.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fieldError.Param())
	case "no_null_bytes":
		return field + " must not contain NULL bytes"
	default:
		return field + " is invalid"
	}
}

// RespondValidationError writes a 400 problem document with one detail per failing field.
func RespondValidationError(w http.ResponseWriter, err error) {
	var details []response.ErrorDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldError := range validationErrors {
			details = append(details, response.ErrorDetail{
				Location: "body." + fieldError.Field(),
				Message:  formatFieldError(fieldError),
			})
		}
	}

	response.RespondProblem(w, response.ProblemDetails{
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: err.Error(),
		Errors: details,
	})
}

func validateNoNullBytes(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return true
	}

	return !strings.Contains(field.String(), "\x00")
}

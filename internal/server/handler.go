// Package server provides request validation and the WebSocket meter
// protocol for the diary service.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/oszuidwest/diario-bordo/internal/types"
)

// ErrInvalidJSON is returned when a request body cannot be decoded.
var ErrInvalidJSON = errors.New("JSON inválido")

// validate is the shared validator instance for request validation.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names in error messages instead of struct field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})

	// Optional strings validate by value; absent and null values pass omitempty
	validate.RegisterCustomTypeFunc(func(v reflect.Value) any {
		if o, ok := v.Interface().(types.OptionalString); ok && o.Set && !o.Null {
			return o.Value
		}
		return nil
	}, types.OptionalString{})
}

// DecodeAndValidate decodes JSON into data and validates it.
// Validation failures are returned as *types.ValidationError; decode failures
// wrap ErrInvalidJSON.
func DecodeAndValidate[T any](raw []byte, data *T) error {
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, data); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}
	}
	return Validate(data)
}

// Validate validates a struct with validation tags.
func Validate(data any) error {
	if err := validate.Struct(data); err != nil {
		return ValidationErrors(err)
	}
	return nil
}

// ValidationErrors converts validator errors to our format.
func ValidationErrors(err error) *types.ValidationError {
	verr := types.NewValidationError()

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			verr.Add(e.Field(), e.Field()+" "+formatValidationMessage(e), e.Value())
		}
	} else {
		// Fallback for non-validation errors
		verr.Add("", err.Error(), nil)
	}

	return verr
}

// --- WebSocket response helpers ---

// SendSuccess sends a success response for a command.
func SendSuccess(send chan<- any, cmdType string, data any) {
	trySend(send, cmdType, types.WSCommandResult{
		Type:    cmdType + "_result",
		Success: true,
		Data:    data,
	})
}

// SendError sends an error response for a command. Validation errors keep
// their field list.
func SendError(send chan<- any, cmdType string, err error) {
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		verr = types.NewValidationError()
		verr.Add("", err.Error(), nil)
	}
	trySend(send, cmdType, types.WSCommandResult{
		Type:    cmdType + "_result",
		Success: false,
		Error:   verr,
	})
}

// trySend attempts to send a message, logging a warning if the channel is full.
func trySend(send chan<- any, cmdType string, msg any) {
	select {
	case send <- msg:
	default:
		slog.Warn("failed to send response: channel full or closed", "type", cmdType)
	}
}

// formatValidationMessage creates a human-readable message from a validator error.
func formatValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", e.Param())
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}

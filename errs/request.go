package errs

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	Unauthorized = NewUnauthorizedError("missing or invalid bearer token")
)

// Request & Input-Validation Errors
var (
	ErrValidation       = errors.New("validation failed")
	ErrMalformedPayload = errors.New("malformed payload")
)

// Authentication & Authorization Errors
var (
	ErrInvalidToken     = errors.New("invalid access token")
	ErrInsufficientRole = errors.New("insufficient role")
)

// NewValidationError reports a caller error on a single field
func NewValidationError(field, details string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrValidation,
		Details:    details,
		Field:      field,
	}
}

// FromValidation converts ozzo validation.Errors into a validation ApiErr. The first field in
// alphabetical order is reported as Field, every field appears in Details.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return NewValidationError("", err.Error())
	}
	fields := make([]string, 0, len(verrs))
	for f, e := range verrs {
		if e != nil {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, verrs[f].Error()))
	}
	return NewValidationError(fields[0], strings.Join(parts, "; "))
}

func NewMalformedPayloadError(payloadType string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrMalformedPayload,
		Details:    fmt.Sprintf("Malformed %s payload", payloadType),
		Cause:      cause,
		Field:      "payload",
	}
}

func NewInvalidTokenError(cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        fmt.Errorf("%w: %w", ErrInvalidToken, ErrUnauthorized),
		Details:    "Access token could not be verified",
		Cause:      cause,
		Field:      "authorization",
	}
}

func NewInsufficientRoleError(required string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusForbidden,
		err:        fmt.Errorf("%w: %w", ErrInsufficientRole, ErrForbidden),
		Details:    fmt.Sprintf("Role '%s' is required", required),
		Field:      "role",
	}
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

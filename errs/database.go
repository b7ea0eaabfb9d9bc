package errs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// NewNotFound reports that no record of entity matched
func NewNotFound(entity string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusNotFound,
		err:        fmt.Errorf("%s %w", entity, ErrNotFound),
	}
}

// NewConflict reports a uniqueness violation on field of entity
func NewConflict(entity, field, value string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusConflict,
		err:        fmt.Errorf("%s %w", entity, ErrConflict),
		Details:    fmt.Sprintf("%s '%s' is already taken", field, value),
		Field:      field,
	}
}

// NewStorageUnavailable wraps a backing-store failure. Callers may retry with backoff.
func NewStorageUnavailable(operation string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusServiceUnavailable,
		err:        ErrStorageUnavailable,
		Details:    fmt.Sprintf("Failed to %s", operation),
		Cause:      cause,
	}
}

// NewStorageTimeout reports a storage call that ran past its deadline
func NewStorageTimeout(operation string, timeout time.Duration, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusServiceUnavailable,
		err:        ErrStorageUnavailable,
		Details:    fmt.Sprintf("Timed out after %v during %s", timeout, operation),
		Cause:      cause,
	}
}

// NewDatabaseError classifies a raw driver error for operation on entity. Errors that already
// carry a taxonomy status are returned unchanged.
func NewDatabaseError(operation, entity string, cause error) *ApiErr {
	var apiErr *ApiErr
	if errors.As(cause, &apiErr) {
		return apiErr
	}

	details := fmt.Sprintf("%s %s", operation, entity)
	if cause != nil {
		errStr := strings.ToLower(cause.Error())
		switch {
		case strings.Contains(errStr, "duplicate key"), strings.Contains(errStr, "unique constraint"):
			return &ApiErr{
				StatusCode: http.StatusConflict,
				err:        fmt.Errorf("%s %w", entity, ErrConflict),
				Details:    details,
				Cause:      cause,
			}
		case strings.Contains(errStr, "record not found"):
			return NewNotFound(entity)
		}
	}
	return NewStorageUnavailable(details, cause)
}

// IsStorageUnavailable reports whether err is a retryable storage failure
func IsStorageUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// IsTimeout reports whether err came from an expired or cancelled context
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

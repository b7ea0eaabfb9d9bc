package errs_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpupo63/meetup-site-backend/errs"
)

func TestTaxonomyStatusCodes(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
		is     func(error) bool
	}{
		{name: "validation", err: errs.NewValidationError("title", "title is required"), status: http.StatusBadRequest, is: errs.IsValidation},
		{name: "not found", err: errs.NewNotFound("blog post"), status: http.StatusNotFound, is: errs.IsNotFound},
		{name: "conflict", err: errs.NewConflict("blog post", "slug", "dup"), status: http.StatusConflict, is: errs.IsConflict},
		{name: "storage unavailable", err: errs.NewStorageUnavailable("list posts", errors.New("dial tcp")), status: http.StatusServiceUnavailable, is: errs.IsStorageUnavailable},
		{name: "storage timeout", err: errs.NewStorageTimeout("list posts", time.Second, context.DeadlineExceeded), status: http.StatusServiceUnavailable, is: errs.IsStorageUnavailable},
		{name: "invalid token", err: errs.NewInvalidTokenError(errors.New("expired")), status: http.StatusUnauthorized, is: errs.IsUnauthorized},
		{name: "insufficient role", err: errs.NewInsufficientRoleError("admin"), status: http.StatusForbidden, is: errs.IsForbidden},
		{name: "malformed payload", err: errs.NewMalformedPayloadError("blog post", errors.New("eof")), status: http.StatusBadRequest, is: func(err error) bool { return errors.Is(err, errs.ErrMalformedPayload) }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, errs.StatusCode(tc.err))
			assert.True(t, tc.is(tc.err))

			wrapped := fmt.Errorf("handler: %w", tc.err)
			assert.True(t, tc.is(wrapped), "sentinels survive wrapping")
			assert.Equal(t, tc.status, errs.StatusCode(wrapped))
		})
	}
}

func TestStatusCodeOfPlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, errs.StatusCode(errors.New("boom")))
}

func TestConflictDetails(t *testing.T) {
	err := errs.NewConflict("blog post", "slug", "dup")
	assert.Equal(t, "slug", err.Field)
	assert.Contains(t, err.Error(), "'dup' is already taken")
}

func TestGetFullErrorFollowsCauses(t *testing.T) {
	inner := errs.NewStorageUnavailable("ping", errors.New("connection refused"))
	outer := errs.NewInternalErrorWithCause("startup", inner)

	full := outer.GetFullError()
	assert.Contains(t, full, "startup")
	assert.Contains(t, full, "storage unavailable")
	assert.Contains(t, full, "connection refused")
}

func TestFromValidation(t *testing.T) {
	assert.NoError(t, errs.FromValidation(nil))

	err := errs.FromValidation(validation.Errors{
		"title":    errors.New("title is required"),
		"category": errors.New("category is required"),
		"excerpt":  nil,
	})
	require.Error(t, err)

	var apiErr *errs.ApiErr
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "category", apiErr.Field)
	assert.Equal(t, "category: category is required; title: title is required", apiErr.Details)
	assert.True(t, errs.IsValidation(err))

	plain := errs.FromValidation(errors.New("odd"))
	assert.True(t, errs.IsValidation(plain))
}

func TestNewDatabaseError(t *testing.T) {
	dup := errs.NewDatabaseError("create", "blog post", errors.New(`ERROR: duplicate key value violates unique constraint "idx_blog_posts_slug"`))
	assert.True(t, errs.IsConflict(dup))

	missing := errs.NewDatabaseError("find", "blog post", errors.New("record not found"))
	assert.True(t, errs.IsNotFound(missing))

	down := errs.NewDatabaseError("find", "blog post", errors.New("connection reset by peer"))
	assert.True(t, errs.IsStorageUnavailable(down))

	already := errs.NewNotFound("blog post")
	assert.Same(t, already, errs.NewDatabaseError("find", "blog post", already))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, errs.IsTimeout(context.DeadlineExceeded))
	assert.True(t, errs.IsTimeout(fmt.Errorf("query: %w", context.Canceled)))
	assert.False(t, errs.IsTimeout(errors.New("other")))
}

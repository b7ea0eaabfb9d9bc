package api

import (
	"context"
	"errors"
)

type keyType string

const (
	adminSubjectKey keyType = "adminSubject"
)

// ctxWithAdminSubject records the subject of a verified admin token
func ctxWithAdminSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, adminSubjectKey, subject)
}

// ctxGetAdminSubject retrieves the admin subject from the context
func ctxGetAdminSubject(ctx context.Context) (string, error) {
	return ctxGetStringValue(ctx, adminSubjectKey)
}

// ctxGetStringValue is a helper function to retrieve string values from the context by key
func ctxGetStringValue(ctx context.Context, key keyType) (string, error) {
	if ctxValue := ctx.Value(key); ctxValue == nil {
		return "", errors.New("key not found in context")
	} else if valueAsString, ok := ctxValue.(string); !ok {
		return "", errors.New("value is not of type `string`")
	} else {
		return valueAsString, nil
	}
}

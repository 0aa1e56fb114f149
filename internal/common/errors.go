// Package common defines shared constants and sentinel errors used across
// client and server layers of migrainelog. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal         = errors.New("internal error")
	ErrorUnauthorized     = errors.New("unauthorized")
	ErrorPermissionDenied = errors.New("permission denied")
	ErrorUnavailable      = errors.New("service unavailable")
	ErrNotAuthenticated   = errors.New("not authenticated")

	// Validation errors.
	ErrorValidation = errors.New("validation error")

	// Query errors. A missing composite index makes ordered queries fail
	// while unordered ones still work.
	ErrIndexMissing = errors.New("query requires a composite index")

	// Local storage errors.
	ErrQuotaExceeded = errors.New("local storage quota exceeded")
	ErrInvalidBundle = errors.New("invalid backup bundle")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

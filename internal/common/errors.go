// Package common defines shared constants and sentinel errors used across
// the authd components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Identity conflicts.
	ErrUserExists = errors.New("user already exists")

	// Lookup misses.
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailNotFound  = errors.New("email not found")
	ErrInvalidSession = errors.New("invalid session")
	ErrInvalidCode    = errors.New("invalid code")

	// Temporal expiry.
	ErrCodeExpired       = errors.New("verification code expired")
	ErrResetTokenExpired = errors.New("reset token expired")

	// Credential mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Downstream collaborator failure.
	ErrEmailSend = errors.New("email send failed")
)

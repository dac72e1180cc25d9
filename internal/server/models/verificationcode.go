package models

import "time"

// EmailVerificationCode is a short-lived, single-use code mailed to confirm
// address ownership. At most one row exists per user; creating a new code
// replaces any prior one.
type EmailVerificationCode struct {
	ID        int64
	Code      string
	UserID    string
	Email     string
	ExpiresAt time.Time
}

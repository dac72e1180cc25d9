package models

import "time"

// PasswordResetToken is keyed by the SHA-256 hash of the token; the
// plaintext token is never stored. At most one row exists per user.
type PasswordResetToken struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
}

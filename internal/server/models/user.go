// Package models defines the persistence entities shared by the server
// repositories and services.
package models

import "time"

// User is an account identified by a unique email address. EmailVerified
// flips to true only through a valid verification code; PasswordHash is
// replaced on password reset.
type User struct {
	ID            string
	Email         string
	EmailVerified bool
	PasswordHash  string
	CreatedAt     time.Time
}

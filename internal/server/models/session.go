package models

import "time"

// Session binds an opaque bearer identifier to a user and an expiry.
// The identifier itself is the bearer token.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
}

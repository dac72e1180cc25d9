package sessions

import (
	"context"

	"authd/internal/server/models"
)

// Repository defines persistence operations for sessions.
type Repository interface {
	Create(ctx context.Context, session *models.Session) error
	// GetWithUser returns the session and its owning user in one lookup.
	// A missing session or a session whose user no longer exists yields
	// common.ErrorNotFound.
	GetWithUser(ctx context.Context, id string) (*models.Session, *models.User, error)
	Delete(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

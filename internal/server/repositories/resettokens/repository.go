package resettokens

import (
	"context"

	"authd/internal/server/models"
)

// Repository defines persistence operations for password-reset tokens.
// Rows are keyed by the token hash; the schema enforces at most one token
// per user.
type Repository interface {
	Create(ctx context.Context, token *models.PasswordResetToken) error
	DeleteByUser(ctx context.Context, userID string) error
	GetByHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error)
	DeleteByHash(ctx context.Context, tokenHash string) error
}

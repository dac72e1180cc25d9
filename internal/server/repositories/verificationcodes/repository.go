package verificationcodes

import (
	"context"

	"authd/internal/server/models"
)

// Repository defines persistence operations for email verification codes.
// The schema enforces at most one code per user.
type Repository interface {
	Create(ctx context.Context, code *models.EmailVerificationCode) error
	DeleteByUser(ctx context.Context, userID string) error
	// ConsumeByUser deletes and returns the user's stored code in a single
	// statement, so a code can be examined at most once. A user without a
	// stored code yields common.ErrorNotFound.
	ConsumeByUser(ctx context.Context, userID string) (*models.EmailVerificationCode, error)
}

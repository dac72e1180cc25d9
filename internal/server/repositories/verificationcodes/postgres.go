// Package verificationcodes provides a PostgreSQL-backed repository for
// single-use email verification codes.
package verificationcodes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"authd/internal/common"
	"authd/internal/dbx"
	"authd/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new verification code row for the user.
func (r *PostgresRepository) Create(ctx context.Context, code *models.EmailVerificationCode) error {
	query := `
		INSERT INTO email_verification_codes (code, user_id, email, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		code.Code, code.UserID, code.Email, code.ExpiresAt).Scan(&code.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteByUser removes any stored code for the user.
func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) error {
	query := `
		DELETE FROM email_verification_codes
		WHERE user_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ConsumeByUser atomically deletes and returns the user's stored code.
func (r *PostgresRepository) ConsumeByUser(ctx context.Context, userID string) (*models.EmailVerificationCode, error) {
	query := `
		DELETE FROM email_verification_codes
		WHERE user_id = $1
		RETURNING id, code, user_id, email, expires_at
	`
	code := &models.EmailVerificationCode{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&code.ID, &code.Code, &code.UserID, &code.Email, &code.ExpiresAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return code, nil
}

var _ Repository = (*PostgresRepository)(nil)

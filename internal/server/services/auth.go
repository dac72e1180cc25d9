// Package services contains server-side business logic. This file
// implements AuthService, which coordinates the user/session store, the
// session manager, and the email sender across the signup, login, email
// verification, and password reset flows.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"authd/internal/common"
	"authd/internal/cryptox"
	"authd/internal/dbx"
	"authd/internal/logging"
	"authd/internal/server/config"
	"authd/internal/server/mail"
	"authd/internal/server/models"
	"authd/internal/server/repositories/repomanager"
	"authd/internal/server/session"
)

const (
	verificationCodeDigits = 8
	resetTokenSize         = 20
)

// AuthService provides the account flows:
// - Signup / Login: create accounts and establish sessions
// - VerifyEmailCode: confirm address ownership and re-issue sessions
// - Logout: best-effort session invalidation
// - ResetPasswordRequest / ResetPassword: hashed-token password recovery
//
// All collaborators are explicit constructor dependencies; expected
// failures are the sentinel errors in package common.
type AuthService struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	sessions  *session.Manager
	sender    mail.Sender
	logger    logging.Logger
	codeTTL   time.Duration
	resetTTL  time.Duration
	now       func() time.Time
	newUserID func() string
}

// NewAuthService constructs an AuthService using repositories, the session
// manager, the email sender, and server config.
func NewAuthService(db *sql.DB, repos repomanager.RepositoryManager, sessions *session.Manager, sender mail.Sender, logger logging.Logger, cfg *config.Config) *AuthService {
	return &AuthService{
		db:        db,
		repos:     repos,
		sessions:  sessions,
		sender:    sender,
		logger:    logger.With("module", "auth_service"),
		codeTTL:   cfg.VerificationCodeTTL,
		resetTTL:  cfg.ResetTokenTTL,
		now:       time.Now,
		newUserID: uuid.NewString,
	}
}

// Signup registers a new account under email and establishes a session.
// An already-registered email yields common.ErrUserExists. The verification
// email is dispatched before the session is created; if sending fails the
// account and its stored code remain, and the send error is surfaced.
func (s *AuthService) Signup(ctx context.Context, email, password string) (string, error) {
	repo := s.repos.Users(s.db)

	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return "", common.ErrUserExists
	} else if !errors.Is(err, common.ErrorNotFound) {
		return "", fmt.Errorf("error checking email: %w", err)
	}

	passwordHash, err := cryptox.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		ID:           s.newUserID(),
		Email:        email,
		PasswordHash: passwordHash,
	}
	// The unique index on email resolves the race between the check above
	// and this insert.
	if _, err := repo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrUserExists) {
			return "", common.ErrUserExists
		}
		return "", fmt.Errorf("error creating user: %w", err)
	}

	if err := s.CreateEmailVerificationCode(ctx, user.ID, user.Email); err != nil {
		// The account exists at this point; the caller learns the email
		// did not go out.
		return "", err
	}

	sess, err := s.sessions.Create(ctx, s.db, user.ID)
	if err != nil {
		return "", err
	}
	return sess.ID, nil
}

// Login verifies email/password credentials and establishes a session.
// An unknown email yields common.ErrUserNotFound; a wrong password yields
// common.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	repo := s.repos.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrUserNotFound
		}
		return "", fmt.Errorf("error looking up user: %w", err)
	}

	ok, err := cryptox.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return "", fmt.Errorf("error checking password: %w", err)
	}
	if !ok {
		return "", common.ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, s.db, user.ID)
	if err != nil {
		return "", err
	}
	return sess.ID, nil
}

// CreateEmailVerificationCode replaces any stored code for the user with a
// fresh one and emails it to the given address. A delivery failure is
// surfaced as common.ErrEmailSend; the stored code is kept either way so a
// later resend can succeed.
func (s *AuthService) CreateEmailVerificationCode(ctx context.Context, userID, email string) error {
	codeValue, err := common.MakeRandNumericCode(verificationCodeDigits)
	if err != nil {
		return fmt.Errorf("error generating verification code: %w", err)
	}

	code := &models.EmailVerificationCode{
		Code:      codeValue,
		UserID:    userID,
		Email:     email,
		ExpiresAt: s.now().Add(s.codeTTL),
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.VerificationCodes(tx)
		if err := repo.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("error deleting old verification code: %w", err)
		}
		if err := repo.Create(ctx, code); err != nil {
			return fmt.Errorf("error storing verification code: %w", err)
		}
		return nil
	}); err != nil {
		return err
	}

	if err := s.sender.SendConfirmEmail(ctx, email, codeValue); err != nil {
		s.logger.Warn(ctx, "confirm email delivery failed", "email", email, "error", err.Error())
		return fmt.Errorf("%w: %v", common.ErrEmailSend, err)
	}
	return nil
}

// VerifyEmailCode checks a submitted verification code for the user. The
// stored code is consumed on examination, whatever the outcome. A missing
// or mismatched code yields common.ErrInvalidCode; a matching code that has
// expired, or whose target address no longer matches the user's email,
// yields common.ErrCodeExpired. On success the user is marked verified, all
// existing sessions are invalidated, and a new session id is returned.
func (s *AuthService) VerifyEmailCode(ctx context.Context, user *models.User, code string) (string, error) {
	stored, err := s.repos.VerificationCodes(s.db).ConsumeByUser(ctx, user.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrInvalidCode
		}
		return "", fmt.Errorf("error consuming verification code: %w", err)
	}

	if stored.Code != code {
		return "", common.ErrInvalidCode
	}
	if !stored.ExpiresAt.After(s.now()) || stored.Email != user.Email {
		return "", common.ErrCodeExpired
	}

	var sess *models.Session
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Users(tx).SetEmailVerified(ctx, user.ID); err != nil {
			return fmt.Errorf("error marking email verified: %w", err)
		}
		if err := s.sessions.InvalidateAllForUser(ctx, tx, user.ID); err != nil {
			return err
		}
		var createErr error
		sess, createErr = s.sessions.Create(ctx, tx, user.ID)
		return createErr
	}); err != nil {
		return "", err
	}

	return sess.ID, nil
}

// Logout invalidates the session. It always reports success: an underlying
// failure is logged and suppressed, since there is nothing actionable for
// the caller holding a dying session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) {
	if err := s.sessions.Invalidate(ctx, sessionID); err != nil {
		s.logger.Error(ctx, "logout failed", "error", err.Error())
	}
}

// ResetPasswordRequest creates a password-reset token for the account
// registered under email and mails a reset link built from domain. Only the
// token's hash is stored; the plaintext token is returned to the caller and
// otherwise exists only in the email. An unknown email yields
// common.ErrEmailNotFound; a delivery failure yields common.ErrEmailSend
// with the token left in place.
func (s *AuthService) ResetPasswordRequest(ctx context.Context, domain, email string) (string, error) {
	user, err := s.repos.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrEmailNotFound
		}
		return "", fmt.Errorf("error looking up user: %w", err)
	}

	token, err := common.MakeRandHexString(resetTokenSize)
	if err != nil {
		return "", fmt.Errorf("error generating reset token: %w", err)
	}

	row := &models.PasswordResetToken{
		TokenHash: cryptox.HashToken(token),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.resetTTL),
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.ResetTokens(tx)
		if err := repo.DeleteByUser(ctx, user.ID); err != nil {
			return fmt.Errorf("error deleting old reset token: %w", err)
		}
		if err := repo.Create(ctx, row); err != nil {
			return fmt.Errorf("error storing reset token: %w", err)
		}
		return nil
	}); err != nil {
		return "", err
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", domain, token)
	if err := s.sender.SendResetPasswordEmail(ctx, email, link); err != nil {
		s.logger.Warn(ctx, "reset email delivery failed", "email", email, "error", err.Error())
		return "", fmt.Errorf("%w: %v", common.ErrEmailSend, err)
	}

	return token, nil
}

// ResetPassword redeems a reset token and replaces the account password.
// An unknown token yields common.ErrInvalidCode; an expired one yields
// common.ErrResetTokenExpired. On success the token is deleted, every
// session of the user is invalidated, the password hash is replaced, and a
// new session id is returned.
func (s *AuthService) ResetPassword(ctx context.Context, newPassword, token string) (string, error) {
	tokenHash := cryptox.HashToken(token)

	stored, err := s.repos.ResetTokens(s.db).GetByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrInvalidCode
		}
		return "", fmt.Errorf("error looking up reset token: %w", err)
	}
	if !stored.ExpiresAt.After(s.now()) {
		return "", common.ErrResetTokenExpired
	}

	passwordHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}

	var sess *models.Session
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// Single use: the token dies with the reset that redeems it.
		if err := s.repos.ResetTokens(tx).DeleteByHash(ctx, tokenHash); err != nil {
			return fmt.Errorf("error deleting reset token: %w", err)
		}
		if err := s.sessions.InvalidateAllForUser(ctx, tx, stored.UserID); err != nil {
			return err
		}
		if err := s.repos.Users(tx).UpdatePasswordHash(ctx, stored.UserID, passwordHash); err != nil {
			return fmt.Errorf("error updating password: %w", err)
		}
		var createErr error
		sess, createErr = s.sessions.Create(ctx, tx, stored.UserID)
		return createErr
	}); err != nil {
		return "", err
	}

	return sess.ID, nil
}

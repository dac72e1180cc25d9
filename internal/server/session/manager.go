// Package session implements the server-side session lifecycle: issuing
// opaque bearer identifiers, validating them against the store, rotating
// near-expiry sessions, and invalidating them on logout or credential
// change.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"authd/internal/common"
	"authd/internal/dbx"
	"authd/internal/server/config"
	"authd/internal/server/repositories/repomanager"

	"authd/internal/server/models"
)

// idSize is the number of random bytes in a session identifier; the
// resulting bearer token is twice as many hex characters.
const idSize = 20

// Validation is the result of validating a bearer identifier. When Fresh is
// true the session was rotated: Session carries the replacement identifier
// and the one presented by the caller is gone.
type Validation struct {
	User    *models.User
	Session *models.Session
	Fresh   bool
}

// Manager owns session lifecycle semantics. Repositories are vended per
// call so rotation and bulk invalidation can participate in the caller's
// transaction.
type Manager struct {
	db               *sql.DB
	repos            repomanager.RepositoryManager
	ttl              time.Duration
	refreshThreshold time.Duration
	now              func() time.Time
}

// NewManager constructs a Manager using repositories and server config.
func NewManager(db *sql.DB, repos repomanager.RepositoryManager, cfg *config.Config) *Manager {
	return &Manager{
		db:               db,
		repos:            repos,
		ttl:              cfg.SessionTTL,
		refreshThreshold: cfg.SessionRefreshThreshold,
		now:              time.Now,
	}
}

// Create issues a new session for userID with a full TTL. The session is
// persisted through db, which may be a transaction handle.
func (m *Manager) Create(ctx context.Context, db dbx.DBTX, userID string) (*models.Session, error) {
	id, err := common.MakeRandHexString(idSize)
	if err != nil {
		return nil, fmt.Errorf("error generating session id: %w", err)
	}

	session := &models.Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: m.now().Add(m.ttl),
	}

	repo := m.repos.Sessions(db)
	if err := repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}
	return session, nil
}

// Validate resolves the bearer identifier to its session and user. A
// missing session, an orphaned session, or an expired one yields
// common.ErrInvalidSession (expired rows are removed on sight). When less
// than the refresh threshold of lifetime remains, the session is rotated:
// the old row is deleted and a replacement with a full TTL is created in
// the same transaction.
func (m *Manager) Validate(ctx context.Context, id string) (*Validation, error) {
	repo := m.repos.Sessions(m.db)

	session, user, err := repo.GetWithUser(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidSession
		}
		return nil, fmt.Errorf("error looking up session: %w", err)
	}

	now := m.now()
	if !session.ExpiresAt.After(now) {
		if err := repo.Delete(ctx, session.ID); err != nil {
			return nil, fmt.Errorf("error deleting expired session: %w", err)
		}
		return nil, common.ErrInvalidSession
	}

	if session.ExpiresAt.Sub(now) >= m.refreshThreshold {
		return &Validation{User: user, Session: session}, nil
	}

	// Near expiry: rotate to a fresh identifier, superseding the old one.
	var fresh *models.Session
	if err := dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		txRepo := m.repos.Sessions(tx)
		if err := txRepo.Delete(ctx, session.ID); err != nil {
			return fmt.Errorf("error deleting rotated session: %w", err)
		}
		var createErr error
		fresh, createErr = m.Create(ctx, tx, user.ID)
		return createErr
	}); err != nil {
		return nil, err
	}

	return &Validation{User: user, Session: fresh, Fresh: true}, nil
}

// Invalidate deletes one session. It is idempotent: invalidating an absent
// session is not an error.
func (m *Manager) Invalidate(ctx context.Context, id string) error {
	repo := m.repos.Sessions(m.db)
	if err := repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

// InvalidateAllForUser deletes every session of the user. Called whenever a
// credential changes so stale sessions cannot outlive an account takeover
// attempt.
func (m *Manager) InvalidateAllForUser(ctx context.Context, db dbx.DBTX, userID string) error {
	repo := m.repos.Sessions(db)
	if err := repo.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("error deleting user sessions: %w", err)
	}
	return nil
}

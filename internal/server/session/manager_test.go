package session

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authd/internal/common"
	"authd/internal/dbx"
	"authd/internal/server/config"
	"authd/internal/server/models"
	"authd/internal/server/repositories/resettokens"
	sessionsrepo "authd/internal/server/repositories/sessions"
	usersrepo "authd/internal/server/repositories/users"
	"authd/internal/server/repositories/verificationcodes"
)

// --- fakes ---

type fakeSessionsRepo struct {
	users    map[string]*models.User
	sessions map[string]*models.Session
}

func (f *fakeSessionsRepo) Create(ctx context.Context, s *models.Session) error {
	copied := *s
	f.sessions[s.ID] = &copied
	return nil
}

func (f *fakeSessionsRepo) GetWithUser(ctx context.Context, id string) (*models.Session, *models.User, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, nil, common.ErrorNotFound
	}
	u, ok := f.users[s.UserID]
	if !ok {
		return nil, nil, common.ErrorNotFound
	}
	return s, u, nil
}

func (f *fakeSessionsRepo) Delete(ctx context.Context, id string) error {
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionsRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	for id, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, id)
		}
	}
	return nil
}

type fakeRepoManager struct {
	sessions *fakeSessionsRepo
}

func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository          { return nil }
func (m *fakeRepoManager) Sessions(db dbx.DBTX) sessionsrepo.Repository    { return m.sessions }
func (m *fakeRepoManager) ResetTokens(db dbx.DBTX) resettokens.Repository  { return nil }
func (m *fakeRepoManager) VerificationCodes(db dbx.DBTX) verificationcodes.Repository {
	return nil
}
func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

// --- helpers ---

func newTestManager(t *testing.T) (*Manager, *fakeRepoManager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	rm := &fakeRepoManager{sessions: &fakeSessionsRepo{
		users:    map[string]*models.User{},
		sessions: map[string]*models.Session{},
	}}
	cfg := &config.Config{
		SessionTTL:              30 * 24 * time.Hour,
		SessionRefreshThreshold: 15 * 24 * time.Hour,
	}
	return NewManager(db, rm, cfg), rm, mock
}

func seedUser(rm *fakeRepoManager, id string) *models.User {
	u := &models.User{ID: id, Email: id + "@test.local"}
	rm.sessions.users[id] = u
	return u
}

// --- tests ---

func TestCreate_ExpiryWindow(t *testing.T) {
	m, rm, _ := newTestManager(t)
	seedUser(rm, "u-1")

	before := time.Now()
	sess, err := m.Create(context.Background(), m.db, "u-1")
	require.NoError(t, err)

	assert.Len(t, sess.ID, idSize*2, "session id is hex of %d random bytes", idSize)
	assert.True(t, sess.ExpiresAt.After(before.Add(29*24*time.Hour)), "expiry below 29 days")
	assert.True(t, sess.ExpiresAt.Before(before.Add(31*24*time.Hour)), "expiry above 31 days")

	_, ok := rm.sessions.sessions[sess.ID]
	assert.True(t, ok, "session must be persisted")
}

func TestValidate_UnknownSession(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.Validate(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrInvalidSession)
}

func TestValidate_ExpiredSessionIsRemoved(t *testing.T) {
	m, rm, _ := newTestManager(t)
	seedUser(rm, "u-1")
	rm.sessions.sessions["old"] = &models.Session{
		ID: "old", UserID: "u-1", ExpiresAt: time.Now().Add(-time.Hour),
	}

	_, err := m.Validate(context.Background(), "old")
	assert.ErrorIs(t, err, common.ErrInvalidSession)

	_, ok := rm.sessions.sessions["old"]
	assert.False(t, ok, "expired session must be deleted on sight")
}

func TestValidate_PlentyOfLifetimeLeft(t *testing.T) {
	m, rm, _ := newTestManager(t)
	seedUser(rm, "u-1")
	rm.sessions.sessions["s-1"] = &models.Session{
		ID: "s-1", UserID: "u-1", ExpiresAt: time.Now().Add(20 * 24 * time.Hour),
	}

	v, err := m.Validate(context.Background(), "s-1")
	require.NoError(t, err)

	assert.False(t, v.Fresh)
	assert.Equal(t, "s-1", v.Session.ID)
	assert.Equal(t, "u-1", v.User.ID)
}

func TestValidate_RotatesNearExpiry(t *testing.T) {
	m, rm, mock := newTestManager(t)
	seedUser(rm, "u-1")
	rm.sessions.sessions["s-1"] = &models.Session{
		ID: "s-1", UserID: "u-1", ExpiresAt: time.Now().Add(10 * 24 * time.Hour),
	}

	mock.ExpectBegin()
	mock.ExpectCommit()

	v, err := m.Validate(context.Background(), "s-1")
	require.NoError(t, err)

	assert.True(t, v.Fresh, "session below the threshold must be rotated")
	assert.NotEqual(t, "s-1", v.Session.ID)
	assert.True(t, v.Session.ExpiresAt.After(time.Now().Add(29*24*time.Hour)), "replacement gets a full TTL")

	_, oldExists := rm.sessions.sessions["s-1"]
	assert.False(t, oldExists, "rotated-away session must be gone")
	_, newExists := rm.sessions.sessions[v.Session.ID]
	assert.True(t, newExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidate_Idempotent(t *testing.T) {
	m, rm, _ := newTestManager(t)
	seedUser(rm, "u-1")
	rm.sessions.sessions["s-1"] = &models.Session{
		ID: "s-1", UserID: "u-1", ExpiresAt: time.Now().Add(time.Hour),
	}

	require.NoError(t, m.Invalidate(context.Background(), "s-1"))
	require.NoError(t, m.Invalidate(context.Background(), "s-1"), "second invalidation must not fail")

	_, ok := rm.sessions.sessions["s-1"]
	assert.False(t, ok)
}

func TestInvalidateAllForUser(t *testing.T) {
	m, rm, _ := newTestManager(t)
	seedUser(rm, "u-1")
	seedUser(rm, "u-2")
	rm.sessions.sessions["a"] = &models.Session{ID: "a", UserID: "u-1", ExpiresAt: time.Now().Add(time.Hour)}
	rm.sessions.sessions["b"] = &models.Session{ID: "b", UserID: "u-1", ExpiresAt: time.Now().Add(time.Hour)}
	rm.sessions.sessions["c"] = &models.Session{ID: "c", UserID: "u-2", ExpiresAt: time.Now().Add(time.Hour)}

	require.NoError(t, m.InvalidateAllForUser(context.Background(), m.db, "u-1"))

	assert.Len(t, rm.sessions.sessions, 1)
	_, ok := rm.sessions.sessions["c"]
	assert.True(t, ok, "other users' sessions must survive")
}

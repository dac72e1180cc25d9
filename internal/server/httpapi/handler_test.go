package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authd/internal/common"
	"authd/internal/dbx"
	"authd/internal/logging"
	"authd/internal/server/config"
	"authd/internal/server/models"
	"authd/internal/server/repositories/resettokens"
	sessionsrepo "authd/internal/server/repositories/sessions"
	usersrepo "authd/internal/server/repositories/users"
	"authd/internal/server/repositories/verificationcodes"
	"authd/internal/server/services"
	"authd/internal/server/session"
)

// --- in-memory fakes ---

type fakeStore struct {
	users    map[string]*models.User
	sessions map[string]*models.Session
	codes    map[string]*models.EmailVerificationCode
	tokens   map[string]*models.PasswordResetToken
}

type fakeUsersRepo struct{ s *fakeStore }

func (f *fakeUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	for _, u := range f.s.users {
		if u.Email == user.Email {
			return nil, common.ErrUserExists
		}
	}
	copied := *user
	copied.CreatedAt = time.Now()
	f.s.users[user.ID] = &copied
	return &copied, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) SetEmailVerified(ctx context.Context, id string) error {
	f.s.users[id].EmailVerified = true
	return nil
}

func (f *fakeUsersRepo) UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error {
	f.s.users[id].PasswordHash = passwordHash
	return nil
}

type fakeSessionsRepo struct{ s *fakeStore }

func (f *fakeSessionsRepo) Create(ctx context.Context, sess *models.Session) error {
	copied := *sess
	f.s.sessions[sess.ID] = &copied
	return nil
}

func (f *fakeSessionsRepo) GetWithUser(ctx context.Context, id string) (*models.Session, *models.User, error) {
	sess, ok := f.s.sessions[id]
	if !ok {
		return nil, nil, common.ErrorNotFound
	}
	u, ok := f.s.users[sess.UserID]
	if !ok {
		return nil, nil, common.ErrorNotFound
	}
	return sess, u, nil
}

func (f *fakeSessionsRepo) Delete(ctx context.Context, id string) error {
	delete(f.s.sessions, id)
	return nil
}

func (f *fakeSessionsRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	for id, sess := range f.s.sessions {
		if sess.UserID == userID {
			delete(f.s.sessions, id)
		}
	}
	return nil
}

type fakeCodesRepo struct{ s *fakeStore }

func (f *fakeCodesRepo) Create(ctx context.Context, code *models.EmailVerificationCode) error {
	copied := *code
	f.s.codes[code.UserID] = &copied
	return nil
}

func (f *fakeCodesRepo) DeleteByUser(ctx context.Context, userID string) error {
	delete(f.s.codes, userID)
	return nil
}

func (f *fakeCodesRepo) ConsumeByUser(ctx context.Context, userID string) (*models.EmailVerificationCode, error) {
	code, ok := f.s.codes[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.s.codes, userID)
	return code, nil
}

type fakeTokensRepo struct{ s *fakeStore }

func (f *fakeTokensRepo) Create(ctx context.Context, token *models.PasswordResetToken) error {
	copied := *token
	f.s.tokens[token.TokenHash] = &copied
	return nil
}

func (f *fakeTokensRepo) DeleteByUser(ctx context.Context, userID string) error {
	for hash, tok := range f.s.tokens {
		if tok.UserID == userID {
			delete(f.s.tokens, hash)
		}
	}
	return nil
}

func (f *fakeTokensRepo) GetByHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	tok, ok := f.s.tokens[tokenHash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return tok, nil
}

func (f *fakeTokensRepo) DeleteByHash(ctx context.Context, tokenHash string) error {
	delete(f.s.tokens, tokenHash)
	return nil
}

type fakeRepoManager struct{ s *fakeStore }

func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository         { return &fakeUsersRepo{m.s} }
func (m *fakeRepoManager) Sessions(db dbx.DBTX) sessionsrepo.Repository   { return &fakeSessionsRepo{m.s} }
func (m *fakeRepoManager) ResetTokens(db dbx.DBTX) resettokens.Repository { return &fakeTokensRepo{m.s} }
func (m *fakeRepoManager) VerificationCodes(db dbx.DBTX) verificationcodes.Repository {
	return &fakeCodesRepo{m.s}
}
func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

type fakeSender struct {
	confirmCodes []string
	resetLinks   []string
}

func (f *fakeSender) SendConfirmEmail(ctx context.Context, email, code string) error {
	f.confirmCodes = append(f.confirmCodes, code)
	return nil
}

func (f *fakeSender) SendResetPasswordEmail(ctx context.Context, email, link string) error {
	f.resetLinks = append(f.resetLinks, link)
	return nil
}

// --- helpers ---

type testAPI struct {
	handler http.Handler
	store   *fakeStore
	sender  *fakeSender
	mock    sqlmock.Sqlmock
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := &fakeStore{
		users:    map[string]*models.User{},
		sessions: map[string]*models.Session{},
		codes:    map[string]*models.EmailVerificationCode{},
		tokens:   map[string]*models.PasswordResetToken{},
	}
	rm := &fakeRepoManager{s: store}
	cfg := &config.Config{
		EndpointAddr:            ":0",
		AppDomain:               "https://app.test.local",
		SessionTTL:              30 * 24 * time.Hour,
		SessionRefreshThreshold: 15 * 24 * time.Hour,
		VerificationCodeTTL:     15 * time.Minute,
		ResetTokenTTL:           2 * time.Hour,
	}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	sender := &fakeSender{}

	sessions := session.NewManager(db, rm, cfg)
	auth := services.NewAuthService(db, rm, sessions, sender, logger, cfg)
	srv := NewServer(cfg, logger, auth, sessions)

	return &testAPI{handler: srv.routes(), store: store, sender: sender, mock: mock}
}

func (a *testAPI) expectTx() {
	a.mock.ExpectBegin()
	a.mock.ExpectCommit()
}

func (a *testAPI) do(t *testing.T, method, path, body, sessionID string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if sessionID != "" {
		req.Header.Set("Authorization", "Bearer "+sessionID)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func (a *testAPI) signup(t *testing.T, email string) string {
	t.Helper()
	a.expectTx()
	rr := a.do(t, http.MethodPost, "/api/signup", `{"email":"`+email+`","password":"correct horse"}`, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

// --- tests ---

func TestSignup_Created(t *testing.T) {
	api := newTestAPI(t)

	sessionID := api.signup(t, "alice@test.local")

	_, ok := api.store.sessions[sessionID]
	assert.True(t, ok)
	assert.Len(t, api.sender.confirmCodes, 1)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	api := newTestAPI(t)
	api.signup(t, "alice@test.local")

	rr := api.do(t, http.MethodPost, "/api/signup", `{"email":"alice@test.local","password":"correct horse"}`, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestSignup_InvalidBody(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodPost, "/api/signup", `{"email":"not-an-email","password":"correct horse"}`, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = api.do(t, http.MethodPost, "/api/signup", `{"email":"alice@test.local","password":"short"}`, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = api.do(t, http.MethodPost, "/api/signup", `{not json`, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogin_OK(t *testing.T) {
	api := newTestAPI(t)
	api.signup(t, "alice@test.local")

	rr := api.do(t, http.MethodPost, "/api/login", `{"email":"alice@test.local","password":"correct horse"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	_, ok := api.store.sessions[resp.SessionID]
	assert.True(t, ok)
}

func TestLogin_BadCredentials(t *testing.T) {
	api := newTestAPI(t)
	api.signup(t, "alice@test.local")

	rr := api.do(t, http.MethodPost, "/api/login", `{"email":"alice@test.local","password":"wrong horse!"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = api.do(t, http.MethodPost, "/api/login", `{"email":"ghost@test.local","password":"correct horse"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMe_OK(t *testing.T) {
	api := newTestAPI(t)
	sessionID := api.signup(t, "alice@test.local")

	rr := api.do(t, http.MethodGet, "/api/me", "", sessionID)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp userResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "alice@test.local", resp.Email)
	assert.False(t, resp.EmailVerified)
}

func TestMe_Unauthorized(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodGet, "/api/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/me", "", "bogus")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMe_RotatedSessionReportedInHeader(t *testing.T) {
	api := newTestAPI(t)
	sessionID := api.signup(t, "alice@test.local")

	// Age the session to just under the refresh threshold.
	api.store.sessions[sessionID].ExpiresAt = time.Now().Add(10 * 24 * time.Hour)

	api.expectTx()
	rr := api.do(t, http.MethodGet, "/api/me", "", sessionID)
	require.Equal(t, http.StatusOK, rr.Code)

	fresh := rr.Header().Get(refreshHeader)
	require.NotEmpty(t, fresh, "rotation must surface the replacement id")
	assert.NotEqual(t, sessionID, fresh)
	_, oldAlive := api.store.sessions[sessionID]
	assert.False(t, oldAlive)
}

func TestVerifyEmail_OK(t *testing.T) {
	api := newTestAPI(t)
	sessionID := api.signup(t, "alice@test.local")
	code := api.sender.confirmCodes[0]

	api.expectTx()
	rr := api.do(t, http.MethodPost, "/api/verify-email", `{"code":"`+code+`"}`, sessionID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEqual(t, sessionID, resp.SessionID)

	for _, u := range api.store.users {
		assert.True(t, u.EmailVerified)
	}
}

func TestVerifyEmail_WrongCode(t *testing.T) {
	api := newTestAPI(t)
	sessionID := api.signup(t, "alice@test.local")

	rr := api.do(t, http.MethodPost, "/api/verify-email", `{"code":"00000000"}`, sessionID)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogout_NoContent(t *testing.T) {
	api := newTestAPI(t)
	sessionID := api.signup(t, "alice@test.local")

	rr := api.do(t, http.MethodPost, "/api/logout", "", sessionID)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	_, alive := api.store.sessions[sessionID]
	assert.False(t, alive)

	// A second logout with the dead token still succeeds.
	rr = api.do(t, http.MethodPost, "/api/logout", "", sessionID)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestResetPasswordFlow(t *testing.T) {
	api := newTestAPI(t)
	oldSession := api.signup(t, "alice@test.local")

	api.expectTx()
	rr := api.do(t, http.MethodPost, "/api/reset-password/request", `{"email":"alice@test.local"}`, "")
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Len(t, api.sender.resetLinks, 1)

	link := api.sender.resetLinks[0]
	token := link[strings.Index(link, "token=")+len("token="):]
	assert.True(t, strings.HasPrefix(link, "https://app.test.local/reset-password?token="))

	api.expectTx()
	rr = api.do(t, http.MethodPost, "/api/reset-password", `{"token":"`+token+`","password":"brand new horse"}`, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	_, oldAlive := api.store.sessions[oldSession]
	assert.False(t, oldAlive, "reset invalidates previous sessions")

	rr = api.do(t, http.MethodPost, "/api/login", `{"email":"alice@test.local","password":"brand new horse"}`, "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestResetPasswordRequest_UnknownEmail(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodPost, "/api/reset-password/request", `{"email":"ghost@test.local"}`, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestResetPassword_UnknownToken(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodPost, "/api/reset-password", `{"token":"deadbeef","password":"brand new horse"}`, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

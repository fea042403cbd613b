package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/inkwell-backend/internal/audit"
	"github.com/inkwell/inkwell-backend/internal/auth"
	"github.com/inkwell/inkwell-backend/internal/events"
	"github.com/inkwell/inkwell-backend/internal/identity"
	"github.com/inkwell/inkwell-backend/internal/models"
	"github.com/inkwell/inkwell-backend/internal/services"
	"github.com/inkwell/inkwell-backend/internal/summarize"
	"github.com/inkwell/inkwell-backend/internal/web"
)

// ----------------------------------------------------------------------
// In-memory fakes
// ----------------------------------------------------------------------

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func (r *memUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memUserRepo) Update(ctx context.Context, user *models.User) error {
	return r.Create(ctx, user)
}

func (r *memUserRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	return nil
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.UserSession
	// getErr, when set, is returned by every GetByID call. Simulates a
	// session store that lost or cannot serve the row.
	getErr error
}

func (r *memSessionRepo) failGets(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getErr = err
}

func (r *memSessionRepo) Create(ctx context.Context, session *models.UserSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *memSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.UserSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	if session, ok := r.sessions[id]; ok {
		copied := *session
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (r *memSessionRepo) Update(ctx context.Context, session *models.UserSession) error {
	return r.Create(ctx, session)
}

func (r *memSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *memSessionRepo) DeleteExpired(ctx context.Context) error { return nil }

type memNoteRepo struct {
	mu    sync.Mutex
	notes map[uuid.UUID]*models.Note
}

func (r *memNoteRepo) Create(ctx context.Context, note *models.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *note
	r.notes[note.ID] = &copied
	return nil
}

func (r *memNoteRepo) Get(ctx context.Context, userID, id uuid.UUID) (*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if note, ok := r.notes[id]; ok && note.UserID == userID {
		copied := *note
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (r *memNoteRepo) List(ctx context.Context, userID uuid.UUID) ([]*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Note
	for _, note := range r.notes {
		if note.UserID == userID {
			copied := *note
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memNoteRepo) Update(ctx context.Context, note *models.Note) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.notes[note.ID]
	if !ok || existing.UserID != note.UserID {
		return 0, nil
	}
	existing.Title = note.Title
	existing.Content = note.Content
	return 1, nil
}

func (r *memNoteRepo) SetSummary(ctx context.Context, userID, id uuid.UUID, summary string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.notes[id]
	if !ok || existing.UserID != userID {
		return 0, nil
	}
	existing.Summary = &summary
	return 1, nil
}

func (r *memNoteRepo) Delete(ctx context.Context, userID, id uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.notes[id]
	if !ok || existing.UserID != userID {
		return 0, nil
	}
	delete(r.notes, id)
	return 1, nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (r *memAuditRepo) Log(ctx context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, log)
	return nil
}

func (r *memAuditRepo) GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*models.AuditLog, error) {
	return nil, nil
}

type fakeSummarizer struct {
	mu      sync.Mutex
	calls   int
	summary string
	err     error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, req summarize.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

func (f *fakeSummarizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeProvider struct {
	exchangeErr error
	identity    *identity.Identity
}

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.example.com/auth?state=" + state
}

func (f *fakeProvider) ExchangeCode(ctx context.Context, code string) (*identity.TokenPair, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &identity.TokenPair{AccessToken: "provider-at", RefreshToken: "provider-rt"}, nil
}

func (f *fakeProvider) UserInfo(ctx context.Context, accessToken string) (*identity.Identity, error) {
	if f.identity == nil {
		return nil, errors.New("no identity")
	}
	return f.identity, nil
}

// ----------------------------------------------------------------------
// Test environment
// ----------------------------------------------------------------------

type testEnv struct {
	app        *fiber.App
	summarizer *fakeSummarizer
	provider   *fakeProvider
	authSvc    *auth.Service
	sessions   *memSessionRepo
}

func newTestEnv(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()

	userRepo := &memUserRepo{users: make(map[uuid.UUID]*models.User)}
	sessionRepo := &memSessionRepo{sessions: make(map[uuid.UUID]*models.UserSession)}
	noteRepo := &memNoteRepo{notes: make(map[uuid.UUID]*models.Note)}

	authSvc := auth.NewService(userRepo, sessionRepo, "test-secret")
	hub := events.NewHub()
	summarizer := &fakeSummarizer{summary: "A generated summary."}
	provider := &fakeProvider{
		identity: &identity.Identity{
			Subject:  "sub-1",
			Email:    "carol@example.com",
			Name:     "Carol",
			Provider: "google",
		},
	}

	renderer, err := web.NewRenderer()
	require.NoError(t, err)

	deps := Deps{
		Auth:       authSvc,
		Audit:      audit.NewService(&memAuditRepo{}),
		Notes:      services.NewNoteService(noteRepo, hub),
		Summarizer: summarizer,
		Identity:   provider,
		Hub:        hub,
		Renderer:   renderer,
	}
	if mutate != nil {
		mutate(&deps)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})
	SetupRoutes(app, deps)

	return &testEnv{app: app, summarizer: summarizer, provider: provider, authSvc: authSvc, sessions: sessionRepo}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	resp.Body.Close()
}

// signup registers a user and returns the issued token pair
func (e *testEnv) signup(t *testing.T, email string) (access, refresh string) {
	t.Helper()

	resp := e.request(t, fiber.MethodPost, "/api/v1/auth/signup", "", fiber.Map{
		"email":    email,
		"password": "Str0ngPass!",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	decodeJSON(t, resp, &body)
	require.NotEmpty(t, body.AccessToken)
	return body.AccessToken, body.RefreshToken
}

// ----------------------------------------------------------------------
// Auth API
// ----------------------------------------------------------------------

func TestSignupAndLoginFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.request(t, fiber.MethodPost, "/api/v1/auth/signup", "", fiber.Map{
		"email":    "alice@example.com",
		"password": "Str0ngPass!",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var cookieNames []string
	for _, cookie := range resp.Cookies() {
		cookieNames = append(cookieNames, cookie.Name)
		assert.True(t, cookie.HttpOnly)
	}
	assert.Contains(t, cookieNames, "access_token")
	assert.Contains(t, cookieNames, "refresh_token")

	var session struct {
		User struct {
			Email    string `json:"email"`
			Username string `json:"username"`
		} `json:"user"`
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, resp, &session)
	assert.Equal(t, "alice@example.com", session.User.Email)
	assert.Equal(t, "alice", session.User.Username)

	resp = env.request(t, fiber.MethodPost, "/api/v1/auth/login", "", fiber.Map{
		"email":    "alice@example.com",
		"password": "Str0ngPass!",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.request(t, fiber.MethodPost, "/api/v1/auth/login", "", fiber.Map{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestGetCurrentUser(t *testing.T) {
	env := newTestEnv(t, nil)
	access, _ := env.signup(t, "alice@example.com")

	resp := env.request(t, fiber.MethodGet, "/api/v1/auth/me", access, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var user struct {
		Email string `json:"email"`
	}
	decodeJSON(t, resp, &user)
	assert.Equal(t, "alice@example.com", user.Email)

	resp = env.request(t, fiber.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

// ----------------------------------------------------------------------
// Notes API
// ----------------------------------------------------------------------

func TestNotesCRUD(t *testing.T) {
	env := newTestEnv(t, nil)
	access, _ := env.signup(t, "alice@example.com")

	// Empty list first
	resp := env.request(t, fiber.MethodGet, "/api/v1/notes", access, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list struct {
		Notes []models.Note `json:"notes"`
	}
	decodeJSON(t, resp, &list)
	assert.Empty(t, list.Notes)

	// Create
	resp = env.request(t, fiber.MethodPost, "/api/v1/notes", access, fiber.Map{
		"title":   "Groceries",
		"content": "Milk, eggs, bread",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created models.Note
	decodeJSON(t, resp, &created)
	assert.Equal(t, "Groceries", created.Title)
	assert.Nil(t, created.Summary)

	// Read back
	resp = env.request(t, fiber.MethodGet, "/api/v1/notes/"+created.ID.String(), access, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var got models.Note
	decodeJSON(t, resp, &got)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Milk, eggs, bread", got.Content)

	// Update
	resp = env.request(t, fiber.MethodPut, "/api/v1/notes/"+created.ID.String(), access, fiber.Map{
		"title":   "Groceries v2",
		"content": "Milk only",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &got)
	assert.Equal(t, "Groceries v2", got.Title)

	// Attach summary
	resp = env.request(t, fiber.MethodPut, "/api/v1/notes/"+created.ID.String()+"/summary", access, fiber.Map{
		"summary": "Buy milk.",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &got)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "Buy milk.", *got.Summary)

	// Delete
	resp = env.request(t, fiber.MethodDelete, "/api/v1/notes/"+created.ID.String(), access, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.request(t, fiber.MethodGet, "/api/v1/notes/"+created.ID.String(), access, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestNotesValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	access, _ := env.signup(t, "alice@example.com")

	resp := env.request(t, fiber.MethodPost, "/api/v1/notes", access, fiber.Map{
		"title":   "",
		"content": "body",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = env.request(t, fiber.MethodGet, "/api/v1/notes/not-a-uuid", access, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestNotesAreScopedPerUser(t *testing.T) {
	env := newTestEnv(t, nil)
	aliceToken, _ := env.signup(t, "alice@example.com")
	bobToken, _ := env.signup(t, "bob@example.com")

	resp := env.request(t, fiber.MethodPost, "/api/v1/notes", aliceToken, fiber.Map{
		"title":   "Private",
		"content": "Alice only",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var note models.Note
	decodeJSON(t, resp, &note)

	// Another user's note behaves exactly like a missing one
	resp = env.request(t, fiber.MethodGet, "/api/v1/notes/"+note.ID.String(), bobToken, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = env.request(t, fiber.MethodDelete, "/api/v1/notes/"+note.ID.String(), bobToken, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = env.request(t, fiber.MethodGet, "/api/v1/notes", bobToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list struct {
		Notes []models.Note `json:"notes"`
	}
	decodeJSON(t, resp, &list)
	assert.Empty(t, list.Notes)
}

// ----------------------------------------------------------------------
// Summarization endpoint
// ----------------------------------------------------------------------

const longText = "This note is comfortably longer than the fifty character minimum for summarization requests."

func TestSummarize_RequiresAuth(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.request(t, fiber.MethodPost, "/api/summarize", "", fiber.Map{"text": longText})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 0, env.summarizer.callCount())
}

func TestSummarize_RejectsShortText(t *testing.T) {
	env := newTestEnv(t, nil)
	access, _ := env.signup(t, "alice@example.com")

	resp := env.request(t, fiber.MethodPost, "/api/summarize", access, fiber.Map{
		"text": "   too short   ",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Padding with whitespace does not help; the trimmed length counts.
	resp = env.request(t, fiber.MethodPost, "/api/summarize", access, fiber.Map{
		"text": "short" + strings.Repeat(" ", 100),
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, 0, env.summarizer.callCount())
}

func TestSummarize_Success(t *testing.T) {
	env := newTestEnv(t, nil)
	access, _ := env.signup(t, "alice@example.com")

	resp := env.request(t, fiber.MethodPost, "/api/summarize", access, fiber.Map{"text": longText})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Cache-Control"), "no-store")

	var body struct {
		Summary string `json:"summary"`
	}
	decodeJSON(t, resp, &body)
	assert.Equal(t, "A generated summary.", body.Summary)
	assert.Equal(t, 1, env.summarizer.callCount())
}

func TestSummarize_MissingCredential(t *testing.T) {
	env := newTestEnv(t, func(deps *Deps) {
		deps.Summarizer = nil
	})
	access, _ := env.signup(t, "alice@example.com")

	resp := env.request(t, fiber.MethodPost, "/api/summarize", access, fiber.Map{"text": longText})
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body struct {
		Error string `json:"error"`
	}
	decodeJSON(t, resp, &body)
	assert.Contains(t, body.Error, "API key is not configured")
}

func TestSummarize_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.summarizer.err = &summarize.UpstreamError{Status: 503, Body: "overloaded"}
	access, _ := env.signup(t, "alice@example.com")

	resp := env.request(t, fiber.MethodPost, "/api/summarize", access, fiber.Map{"text": longText})
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body struct {
		Error string `json:"error"`
	}
	decodeJSON(t, resp, &body)
	assert.Contains(t, body.Error, "503")
}

func TestSummarize_MalformedUpstreamBody(t *testing.T) {
	env := newTestEnv(t, nil)
	env.summarizer.err = summarize.ErrInvalidResponse
	access, _ := env.signup(t, "alice@example.com")

	resp := env.request(t, fiber.MethodPost, "/api/summarize", access, fiber.Map{"text": longText})
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body struct {
		Error string `json:"error"`
	}
	decodeJSON(t, resp, &body)
	assert.Contains(t, body.Error, "invalid response")
}

// ----------------------------------------------------------------------
// Auth callback
// ----------------------------------------------------------------------

func TestAuthCallback_NoParams(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.request(t, fiber.MethodGet, "/auth/callback", "", nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/?error=no_auth_code", resp.Header.Get("Location"))
	assert.Empty(t, resp.Cookies())
	resp.Body.Close()
}

func TestAuthCallback_CodeExchange(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.request(t, fiber.MethodGet, "/auth/callback?code=good-code", "", nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	var access string
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "access_token" {
			access = cookie.Value
		}
	}
	require.NotEmpty(t, access)
	resp.Body.Close()

	// The session behind the cookie is real
	user, _, err := env.authSvc.ValidateAccessToken(context.Background(), access)
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", user.Email)
}

func TestAuthCallback_CodeExchangeFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.provider.exchangeErr = fmt.Errorf("%w: status 400", identity.ErrExchangeFailed)

	resp := env.request(t, fiber.MethodGet, "/auth/callback?code=bad-code", "", nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "/?error=code_exchange_error")
	resp.Body.Close()
}

func TestAuthCallback_WithoutProvider(t *testing.T) {
	env := newTestEnv(t, func(deps *Deps) {
		deps.Identity = nil
	})

	resp := env.request(t, fiber.MethodGet, "/auth/callback?code=any", "", nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "/?error=code_exchange_error")
	resp.Body.Close()
}

func TestAuthCallback_TokenRelay(t *testing.T) {
	env := newTestEnv(t, nil)
	access, refresh := env.signup(t, "alice@example.com")

	resp := env.request(t, fiber.MethodGet,
		"/auth/callback?access_token="+access+"&refresh_token="+refresh, "", nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	var cookieNames []string
	for _, cookie := range resp.Cookies() {
		cookieNames = append(cookieNames, cookie.Name)
	}
	assert.Contains(t, cookieNames, "access_token")
	resp.Body.Close()
}

func TestAuthCallback_TokenRelayRejectsBogusToken(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.request(t, fiber.MethodGet, "/auth/callback?access_token=forged", "", nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "/?error=token_error")
	resp.Body.Close()
}

func TestAuthCallback_SessionNotEstablished(t *testing.T) {
	env := newTestEnv(t, nil)

	// The code exchange and session creation succeed, but the store has
	// lost the row by the time the defensive re-check reads it back.
	env.sessions.failGets(sql.ErrNoRows)

	resp := env.request(t, fiber.MethodGet, "/auth/callback?code=good-code", "", nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/?error=no_session_established", resp.Header.Get("Location"))

	// The cookies set before the re-check are cleared again
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "access_token" || cookie.Name == "refresh_token" {
			assert.Empty(t, cookie.Value)
		}
	}
	resp.Body.Close()
}

func TestAuthCallback_SessionVerificationError(t *testing.T) {
	env := newTestEnv(t, nil)

	env.sessions.failGets(errors.New("session store offline"))

	resp := env.request(t, fiber.MethodGet, "/auth/callback?code=good-code", "", nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "/?error=session_verification_error")

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "access_token" || cookie.Name == "refresh_token" {
			assert.Empty(t, cookie.Value)
		}
	}
	resp.Body.Close()
}

func TestOAuthLoginRedirectsToProvider(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.request(t, fiber.MethodGet, "/auth/login/google", "", nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "https://provider.example.com/auth?state=")

	var hasState bool
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "oauth_state" {
			hasState = true
		}
	}
	assert.True(t, hasState)
	resp.Body.Close()
}

// ----------------------------------------------------------------------
// Pages
// ----------------------------------------------------------------------

func TestLandingPage(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.request(t, fiber.MethodGet, "/", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	page := string(body)
	// The fragment relay runs on this page, guarded against reprocessing
	// within one page lifetime only. The guard must not outlive the page:
	// a fresh load after a failed login has to relay a new fragment, so
	// nothing about the relay may touch persistent browser storage.
	assert.Contains(t, page, "window.location.hash")
	assert.Contains(t, page, "window.inkwellHashRelayed")
	assert.NotContains(t, page, "sessionStorage")
	assert.NotContains(t, page, "localStorage")
	assert.Contains(t, page, "/auth/callback?")
	assert.Contains(t, page, "login-form")
}

func TestLandingPageShowsCallbackError(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.request(t, fiber.MethodGet, "/?error=no_auth_code", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Contains(t, string(body), "missing its credentials")
}

func TestLandingRedirectsAuthenticatedUser(t *testing.T) {
	env := newTestEnv(t, nil)
	access, _ := env.signup(t, "alice@example.com")

	resp := env.request(t, fiber.MethodGet, "/", access, nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
	resp.Body.Close()
}

func TestDashboardRequiresSession(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.request(t, fiber.MethodGet, "/dashboard", "", nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	resp.Body.Close()
}

func TestDashboardRendersNotes(t *testing.T) {
	env := newTestEnv(t, nil)
	access, _ := env.signup(t, "alice@example.com")

	resp := env.request(t, fiber.MethodPost, "/api/v1/notes", access, fiber.Map{
		"title":   "Visible title",
		"content": "note body",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.request(t, fiber.MethodGet, "/dashboard", access, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Contains(t, string(body), "Visible title")
}

func TestNotePageScoping(t *testing.T) {
	env := newTestEnv(t, nil)
	aliceToken, _ := env.signup(t, "alice@example.com")
	bobToken, _ := env.signup(t, "bob@example.com")

	resp := env.request(t, fiber.MethodPost, "/api/v1/notes", aliceToken, fiber.Map{
		"title":   "Secret",
		"content": "Alice only",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var note models.Note
	decodeJSON(t, resp, &note)

	resp = env.request(t, fiber.MethodGet, "/notes/"+note.ID.String(), bobToken, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = env.request(t, fiber.MethodGet, "/notes/"+note.ID.String(), aliceToken, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.request(t, fiber.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Status string `json:"status"`
	}
	decodeJSON(t, resp, &body)
	assert.Equal(t, "healthy", body.Status)
}

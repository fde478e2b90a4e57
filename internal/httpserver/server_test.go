package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/linkmint/linkmint/internal/auth"
	"github.com/linkmint/linkmint/internal/core"
	"github.com/linkmint/linkmint/internal/datastore"
	"github.com/linkmint/linkmint/internal/shortener"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memLinkStore struct {
	mu     sync.Mutex
	nextID int64
	links  map[string]core.Link
}

func newMemLinkStore() *memLinkStore {
	return &memLinkStore{links: make(map[string]core.Link)}
}

func (m *memLinkStore) Reserve(_ context.Context, link core.Link) (core.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.links[link.ShortCode]; exists {
		return core.Link{}, datastore.ErrCodeExists
	}
	m.nextID++
	link.ID = m.nextID
	m.links[link.ShortCode] = link
	return link, nil
}

func (m *memLinkStore) GetLink(_ context.Context, shortCode string) (core.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[shortCode]
	if !ok {
		return core.Link{}, core.ErrNotFound
	}
	return link, nil
}

func (m *memLinkStore) ListByOwner(_ context.Context, ownerID int64) ([]core.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Link
	for _, link := range m.links {
		if link.OwnerID == ownerID {
			out = append(out, link)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memLinkStore) DeleteLink(_ context.Context, shortCode string, ownerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[shortCode]
	if !ok {
		return core.ErrNotFound
	}
	if link.OwnerID != ownerID {
		return core.ErrForbidden
	}
	delete(m.links, shortCode)
	return nil
}

func (m *memLinkStore) PurgeExpired(_ context.Context, now time.Time) ([]string, error) {
	return nil, nil
}

// downLinkStore fails every operation the way the real store reports an
// unreachable database.
type downLinkStore struct{}

func (downLinkStore) fail(op string) error {
	return fmt.Errorf("store: %s: %w (%v)", op, core.ErrStorageUnavailable, errors.New("connection refused"))
}

func (d downLinkStore) Reserve(context.Context, core.Link) (core.Link, error) {
	return core.Link{}, d.fail("Reserve")
}

func (d downLinkStore) GetLink(context.Context, string) (core.Link, error) {
	return core.Link{}, d.fail("GetLink")
}

func (d downLinkStore) ListByOwner(context.Context, int64) ([]core.Link, error) {
	return nil, d.fail("ListByOwner")
}

func (d downLinkStore) DeleteLink(context.Context, string, int64) error {
	return d.fail("DeleteLink")
}

func (d downLinkStore) PurgeExpired(context.Context, time.Time) ([]string, error) {
	return nil, d.fail("PurgeExpired")
}

type memUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]core.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]core.User)}
}

func (m *memUserStore) CreateUser(_ context.Context, username, email, passwordHash string) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[username]; exists {
		return core.User{}, core.ErrUserExists
	}
	m.nextID++
	u := core.User{ID: m.nextID, Username: username, Email: email, PasswordHash: passwordHash, CreatedAt: time.Now()}
	m.users[username] = u
	return u, nil
}

func (m *memUserStore) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return core.User{}, core.ErrInvalidCredentials
	}
	return u, nil
}

type testEnv struct {
	server  *Server
	store   *memLinkStore
	users   *memUserStore
	authMgr auth.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemLinkStore()
	users := newMemUserStore()
	authMgr := auth.NewManager("test-secret", time.Hour)
	svc := shortener.NewService(logger, store, nil, nil, []string{"api", "docs"})

	srv := NewServer(logger, svc, users, authMgr, Options{
		Addr:          "localhost:0",
		PublicBaseURL: "http://sho.rt",
	})
	return &testEnv{server: srv, store: store, users: users, authMgr: authMgr}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.server.server.Handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) tokenFor(t *testing.T, userID int64) string {
	t.Helper()
	token, err := e.authMgr.Issue(userID, fmt.Sprintf("user%d", userID), time.Now())
	require.NoError(t, err)
	return token
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice", "email": "alice@example.com", "password": "s3cret",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var res tokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotEmpty(t, res.Token)
	require.Equal(t, "Bearer", res.TokenType)

	t.Run("duplicate_username", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
			"username": "alice", "email": "other@example.com", "password": "s3cret",
		})
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("short_password", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
			"username": "bob", "email": "bob@example.com", "password": "123",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("login_success", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
			"username": "alice", "password": "s3cret",
		})
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("login_wrong_password", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
			"username": "alice", "password": "nope",
		})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("login_unknown_user", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
			"username": "mallory", "password": "s3cret",
		})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestShortenHandler(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(t, 1)

	t.Run("success", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/urls/shorten", token, gin.H{
			"originalUrl": "https://example.com/a/valid/path",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var res urlResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.Equal(t, "https://example.com/a/valid/path", res.OriginalURL)
		require.Len(t, res.ShortURL, core.ShortCodeLength)
		require.Equal(t, "http://sho.rt/"+res.ShortURL, res.FullShortURL)
		require.True(t, res.ExpiresAt.After(res.CreatedAt))
	})

	t.Run("custom_alias", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/urls/shorten", token, gin.H{
			"originalUrl": "https://example.com/x",
			"customAlias": "promo",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var res urlResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.Equal(t, "promo", res.ShortURL)
	})

	t.Run("alias_taken", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/urls/shorten", token, gin.H{
			"originalUrl": "https://example.com/y",
			"customAlias": "promo",
		})
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("invalid_url", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/urls/shorten", token, gin.H{
			"originalUrl": "example.com",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("past_expiration", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/urls/shorten", token, gin.H{
			"originalUrl":    "https://example.com/z",
			"expirationDate": time.Now().Add(-time.Hour).Format(time.RFC3339),
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad_expiration_format", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/urls/shorten", token, gin.H{
			"originalUrl":    "https://example.com/z",
			"expirationDate": "next tuesday",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/urls/shorten", "", gin.H{
			"originalUrl": "https://example.com/x",
		})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestMyURLsHandler(t *testing.T) {
	env := newTestEnv(t)
	alice := env.tokenFor(t, 1)
	bob := env.tokenFor(t, 2)

	w := env.do(t, http.MethodPost, "/api/urls/shorten", alice, gin.H{"originalUrl": "https://example.com/a"})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, "/api/urls/shorten", bob, gin.H{"originalUrl": "https://example.com/b"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/urls/my-urls", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []urlResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.Equal(t, "https://example.com/a", list[0].OriginalURL)
}

func TestDeleteHandler(t *testing.T) {
	env := newTestEnv(t)
	alice := env.tokenFor(t, 1)
	bob := env.tokenFor(t, 2)

	w := env.do(t, http.MethodPost, "/api/urls/shorten", alice, gin.H{"originalUrl": "https://example.com/a"})
	require.Equal(t, http.StatusOK, w.Code)
	var res urlResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))

	t.Run("forbidden_for_other_user", func(t *testing.T) {
		w := env.do(t, http.MethodDelete, "/api/urls/"+res.ShortURL, bob, nil)
		require.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("owner_deletes", func(t *testing.T) {
		w := env.do(t, http.MethodDelete, "/api/urls/"+res.ShortURL, alice, nil)
		require.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("already_gone", func(t *testing.T) {
		w := env.do(t, http.MethodDelete, "/api/urls/"+res.ShortURL, alice, nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestStorageDownMapsTo503(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authMgr := auth.NewManager("test-secret", time.Hour)
	svc := shortener.NewService(logger, downLinkStore{}, nil, nil, nil)
	srv := NewServer(logger, svc, newMemUserStore(), authMgr, Options{
		Addr:          "localhost:0",
		PublicBaseURL: "http://sho.rt",
	})
	env := &testEnv{server: srv, users: newMemUserStore(), authMgr: authMgr}
	token := env.tokenFor(t, 1)

	assertUnavailable := func(t *testing.T, w *httptest.ResponseRecorder) {
		t.Helper()
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		var body struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		// Storage details stay out of the response body.
		require.Equal(t, "service temporarily unavailable", body.Message)
	}

	t.Run("shorten", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/urls/shorten", token, gin.H{
			"originalUrl": "https://example.com/x",
		})
		assertUnavailable(t, w)
	})

	t.Run("my_urls", func(t *testing.T) {
		assertUnavailable(t, env.do(t, http.MethodGet, "/api/urls/my-urls", token, nil))
	})

	t.Run("delete", func(t *testing.T) {
		assertUnavailable(t, env.do(t, http.MethodDelete, "/api/urls/abcdefg", token, nil))
	})

	t.Run("redirect", func(t *testing.T) {
		assertUnavailable(t, env.do(t, http.MethodGet, "/abcdefg", "", nil))
	})
}

func TestRedirectHandler(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(t, 1)

	w := env.do(t, http.MethodPost, "/api/urls/shorten", token, gin.H{"originalUrl": "https://example.com/dest"})
	require.Equal(t, http.StatusOK, w.Code)
	var res urlResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))

	t.Run("found", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/"+res.ShortURL, "", nil)
		require.Equal(t, http.StatusFound, w.Code)
		require.Equal(t, "https://example.com/dest", w.Header().Get("Location"))
	})

	t.Run("unknown_code", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/neverissued", "", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("expired_code", func(t *testing.T) {
		_, err := env.store.Reserve(context.Background(), core.Link{
			OwnerID:     1,
			ShortCode:   "expired1",
			OriginalURL: "https://example.com/old",
			CreatedAt:   time.Now().Add(-48 * time.Hour),
			ExpiresAt:   time.Now().Add(-time.Hour),
		})
		require.NoError(t, err)

		w := env.do(t, http.MethodGet, "/expired1", "", nil)
		require.Equal(t, http.StatusGone, w.Code)
	})

	t.Run("root_redirects_to_docs", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/", "", nil)
		require.Equal(t, http.StatusFound, w.Code)
		require.Equal(t, docsURL, w.Header().Get("Location"))
	})
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sessionpkg "github.com/mailwarden/core/internal/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	data map[string]string
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	return s.data[key], nil
}

func (s *memStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.data[key] = value
	return nil
}

func (s *memStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *memStore) Rename(_ context.Context, oldKey, newKey string) error {
	v, ok := s.data[oldKey]
	if !ok {
		return errors.New("no such key")
	}
	delete(s.data, oldKey)
	s.data[newKey] = v
	return nil
}

// downStore fails every read, like a Redis that is unreachable.
type downStore struct{ memStore }

func (s *downStore) Get(context.Context, string) (string, error) {
	return "", errors.New("connection refused")
}

func authRouter(mgr *sessionpkg.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", SessionAuth(mgr), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentIdentity(c).Username)
	})
	return r
}

func clearedSessionCookie(w *httptest.ResponseRecorder) bool {
	for _, sc := range w.Result().Header.Values("Set-Cookie") {
		if strings.HasPrefix(sc, SessionCookie+"=;") || strings.Contains(sc, "Max-Age=0") {
			return true
		}
	}
	return false
}

func TestSessionAuthAcceptsLiveSession(t *testing.T) {
	store := newMemStore()
	mgr := sessionpkg.NewManager(store, nil, nil, nil, 0, 0)
	sid, _, err := mgr.Establish(context.Background(), sessionpkg.Identity{
		AccountID: "acc-1", Username: "alice", Role: "standard", IsActive: true,
	})
	require.NoError(t, err)

	r := authRouter(mgr)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sid})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())
}

func TestSessionAuthRejectsMissingOrUnknownSession(t *testing.T) {
	mgr := sessionpkg.NewManager(newMemStore(), nil, nil, nil, 0, 0)
	r := authRouter(mgr)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "deadbeef"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	// A dead identifier is worthless to the browser; drop it.
	assert.True(t, clearedSessionCookie(w))
}

func TestSessionAuthBackendFailureIsNotALogout(t *testing.T) {
	mgr := sessionpkg.NewManager(&downStore{}, nil, nil, nil, 0, 0)
	r := authRouter(mgr)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "deadbeef"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// The session was never judged invalid: answer 500 and leave the
	// cookie alone so the client can retry once the backend is back.
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, clearedSessionCookie(w))
}

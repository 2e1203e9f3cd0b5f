package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balllder/holiday-wheel/internal/store"
)

func newTestAuth() (*Authenticator, *store.MemoryStore) {
	st := store.NewMemoryStore()
	return New(st, Options{Secret: "test-secret", ExpiresDays: 1, CookieName: "hw_test"}), st
}

func TestRegisterValidates(t *testing.T) {
	a, _ := newTestAuth()
	_, err := a.Register(context.Background(), "nope", "short", "x")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 3)
}

func TestRegisterAndLogin(t *testing.T) {
	a, _ := newTestAuth()
	ctx := context.Background()

	u, err := a.Register(ctx, " Elf@North.Pole ", "candycane", "Buddy")
	require.NoError(t, err)
	assert.Equal(t, "elf@north.pole", u.Email)
	assert.NotEqual(t, "candycane", u.PasswordHash)

	_, err = a.Register(ctx, "elf@north.pole", "candycane", "Buddy")
	assert.ErrorIs(t, err, store.ErrEmailTaken)

	got, err := a.Login(ctx, "ELF@north.pole", "candycane")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = a.Login(ctx, "elf@north.pole", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = a.Login(ctx, "nobody@north.pole", "candycane")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokenRoundTripAndExpiry(t *testing.T) {
	a, _ := newTestAuth()
	ctx := context.Background()
	u, err := a.Register(ctx, "elf@north.pole", "candycane", "Buddy")
	require.NoError(t, err)

	tok, exp, err := a.SignToken(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), exp, time.Minute)

	id, err := a.ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	_, err = a.ParseToken(tok + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := New(store.NewMemoryStore(), Options{Secret: "other"})
	_, err = other.ParseToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	a.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	_, err = a.ParseToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHandlersSessionFlow(t *testing.T) {
	a, _ := newTestAuth()
	r := mux.NewRouter()
	a.RegisterRoutes(r.PathPrefix("/auth").Subrouter())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"email":"elf@north.pole","password":"candycane","display_name":"Buddy"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "hw_test", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		OK   bool `json:"ok"`
		User struct {
			DisplayName string `json:"display_name"`
		} `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.OK)
	assert.Equal(t, "Buddy", body.User.DisplayName)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"elf@north.pole","password":"nope-nope"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"email":"elf@north.pole","password":"candycane","display_name":"Buddy"}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestUserIDFromRequestAcceptsBearer(t *testing.T) {
	a, _ := newTestAuth()
	u, err := a.Register(context.Background(), "elf@north.pole", "candycane", "Buddy")
	require.NoError(t, err)
	tok, _, err := a.SignToken(u)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	assert.Equal(t, u.ID, a.UserIDFromRequest(req))
	assert.Equal(t, int64(0), a.UserIDFromRequest(httptest.NewRequest(http.MethodGet, "/", nil)))
}

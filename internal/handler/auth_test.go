package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/tasklist/internal/apperror"
	"github.com/sakif/tasklist/internal/auth"
	"github.com/sakif/tasklist/internal/handler"
	"github.com/sakif/tasklist/internal/model"
	"github.com/sakif/tasklist/internal/service"
)

var testSession = handler.SessionConfig{TTL: time.Hour}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Register(t *testing.T) {
	fake := &fakeIdentity{user: &model.User{ID: 1, Username: "alice", PasswordHash: "secret-hash"}}
	h := handler.NewAuthHandler(fake, nil, testSession, testLogger)

	rr := serve(t, http.HandlerFunc(h.HandleRegister), http.MethodPost, "/api/register",
		`{"username":"alice","password":"pw1"}`)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"username":"alice"`)
	assert.NotContains(t, rr.Body.String(), "secret-hash")
	assert.Equal(t, "alice", fake.gotUsername)
	assert.Equal(t, "pw1", fake.gotPassword)
}

func TestAuthHandler_RegisterDuplicateIs409(t *testing.T) {
	fake := &fakeIdentity{err: apperror.DuplicateUsername("alice")}
	h := handler.NewAuthHandler(fake, nil, testSession, testLogger)

	rr := serve(t, http.HandlerFunc(h.HandleRegister), http.MethodPost, "/api/register",
		`{"username":"alice","password":"pw1"}`)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), `"error":"duplicate_username"`)
}

func TestAuthHandler_LoginSetsCookie(t *testing.T) {
	fake := &fakeIdentity{result: &service.AuthResult{
		User:  &model.User{ID: 1, Username: "alice"},
		Token: "signed.jwt.token",
	}}
	h := handler.NewAuthHandler(fake, nil, handler.SessionConfig{TTL: time.Hour, Secure: true}, testLogger)

	rr := serve(t, http.HandlerFunc(h.HandleLogin), http.MethodPost, "/api/login",
		`{"username":"alice","password":"pw1"}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"token":"signed.jwt.token"`)

	c := findCookie(rr, auth.SessionCookie)
	require.NotNil(t, c)
	assert.Equal(t, "signed.jwt.token", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, 3600, c.MaxAge)
}

func TestAuthHandler_LoginInvalidCredentialsIs401(t *testing.T) {
	fake := &fakeIdentity{err: apperror.InvalidCredentials()}
	h := handler.NewAuthHandler(fake, nil, testSession, testLogger)

	rr := serve(t, http.HandlerFunc(h.HandleLogin), http.MethodPost, "/api/login",
		`{"username":"alice","password":"nope"}`)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), `"error":"invalid_credentials"`)
	assert.Nil(t, findCookie(rr, auth.SessionCookie))
}

func TestAuthHandler_LogoutClearsCookie(t *testing.T) {
	h := handler.NewAuthHandler(&fakeIdentity{}, nil, testSession, testLogger)

	rr := serve(t, http.HandlerFunc(h.HandleLogout), http.MethodPost, "/api/logout", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	c := findCookie(rr, auth.SessionCookie)
	require.NotNil(t, c)
	assert.Equal(t, -1, c.MaxAge)
}

func TestAuthHandler_Me(t *testing.T) {
	h := handler.NewAuthHandler(&fakeIdentity{}, nil, testSession, testLogger)

	rr := serve(t, asUser(alice)(http.HandlerFunc(h.HandleMe)), http.MethodGet, "/api/me", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"username":"alice"`)

	rr = serve(t, http.HandlerFunc(h.HandleMe), http.MethodGet, "/api/me", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// fakeGitHub is a scripted handler.GitHubAuthenticator.
type fakeGitHub struct {
	user *auth.GitHubUser
	err  error
}

func (f *fakeGitHub) AuthURL(state string) string {
	return "https://github.example/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeGitHub) Exchange(context.Context, string) (*auth.GitHubUser, error) {
	return f.user, f.err
}

func TestAuthHandler_GitHubLoginSetsState(t *testing.T) {
	h := handler.NewAuthHandler(&fakeIdentity{}, &fakeGitHub{}, testSession, testLogger)

	rr := httptest.NewRecorder()
	h.HandleGitHubLogin(rr, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	state := findCookie(rr, "oauth_state")
	require.NotNil(t, state)
	assert.NotEmpty(t, state.Value)
	assert.Contains(t, rr.Header().Get("Location"), "state="+state.Value)
	assert.Len(t, state.Value, 43, "base64url of 32 random bytes")

	again := httptest.NewRecorder()
	h.HandleGitHubLogin(again, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))
	next := findCookie(again, "oauth_state")
	require.NotNil(t, next)
	assert.NotEqual(t, state.Value, next.Value)
}

func githubCallback(state, cookieState string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=abc&state="+state, nil)
	if cookieState != "" {
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: cookieState})
	}
	return req
}

func TestAuthHandler_GitHubCallback(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		identity := &fakeIdentity{result: &service.AuthResult{User: alice, Token: "gh.jwt"}}
		gh := &fakeGitHub{user: &auth.GitHubUser{ID: 42, Login: "alice"}}
		h := handler.NewAuthHandler(identity, gh, testSession, testLogger)

		rr := httptest.NewRecorder()
		h.HandleGitHubCallback(rr, githubCallback("s1", "s1"))

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/", rr.Header().Get("Location"))
		c := findCookie(rr, auth.SessionCookie)
		require.NotNil(t, c)
		assert.Equal(t, "gh.jwt", c.Value)
		assert.Equal(t, int64(42), identity.gotGitHub.ID)
	})

	t.Run("state mismatch", func(t *testing.T) {
		h := handler.NewAuthHandler(&fakeIdentity{}, &fakeGitHub{}, testSession, testLogger)

		rr := httptest.NewRecorder()
		h.HandleGitHubCallback(rr, githubCallback("s1", "other"))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("username taken", func(t *testing.T) {
		identity := &fakeIdentity{err: apperror.DuplicateUsername("alice")}
		gh := &fakeGitHub{user: &auth.GitHubUser{ID: 42, Login: "alice"}}
		h := handler.NewAuthHandler(identity, gh, testSession, testLogger)

		rr := httptest.NewRecorder()
		h.HandleGitHubCallback(rr, githubCallback("s1", "s1"))

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/login", rr.Header().Get("Location"))
		assert.NotNil(t, findCookie(rr, "flash"))
		assert.Nil(t, findCookie(rr, auth.SessionCookie))
	})

	t.Run("exchange failure", func(t *testing.T) {
		gh := &fakeGitHub{err: errors.New("github down")}
		h := handler.NewAuthHandler(&fakeIdentity{}, gh, testSession, testLogger)

		rr := httptest.NewRecorder()
		h.HandleGitHubCallback(rr, githubCallback("s1", "s1"))

		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})

	t.Run("not configured", func(t *testing.T) {
		h := handler.NewAuthHandler(&fakeIdentity{}, nil, testSession, testLogger)

		rr := httptest.NewRecorder()
		h.HandleGitHubCallback(rr, githubCallback("s1", "s1"))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

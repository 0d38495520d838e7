package handler

import (
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/sakif/tasklist/internal/model"
)

const oauthStateCookie = "oauth_state"

// AuthHandler serves registration, password login, logout and the optional
// GitHub sign-in flow.
type AuthHandler struct {
	identity IdentityStore
	github   GitHubAuthenticator // nil when GitHub sign-in is not configured
	session  SessionConfig
	logger   *slog.Logger
}

func NewAuthHandler(identity IdentityStore, github GitHubAuthenticator, session SessionConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		identity: identity,
		github:   github,
		session:  session,
		logger:   logger,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by POST /api/login. The token is also set as the
// session cookie; API clients may send it back as a Bearer token instead.
type LoginResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// HandleRegister creates an account.
//
// HTTP: POST /api/register {"username": "...", "password": "..."}
// 201 with the user, 409 when the username is taken.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.identity.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// HandleLogin verifies credentials and starts a session.
//
// HTTP: POST /api/login {"username": "...", "password": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.identity.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.session.set(w, result.Token)
	writeJSON(w, http.StatusOK, LoginResponse{User: result.User, Token: result.Token})
}

// HandleLogout clears the session cookie. Tokens are stateless, so a copy
// held elsewhere stays valid until it expires.
//
// HTTP: POST /api/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.session.clear(w)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// HandleMe returns the signed-in user.
//
// HTTP: GET /api/me (behind RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleGitHubLogin redirects the browser to GitHub.
//
// HTTP: GET /auth/github/login
//
// The state is 32 random bytes kept in a short-lived HttpOnly cookie and
// compared on callback, which ties the callback to a login this browser
// started.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		http.NotFound(w, r)
		return
	}

	state := oauth2.GenerateVerifier()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.session.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the GitHub sign-in.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
//  1. check the state against the cookie
//  2. exchange the code for the GitHub profile
//  3. find or create the local user
//  4. set the session cookie and go to the task list
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		http.NotFound(w, r)
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("github callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{
		Name:   oauthStateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", errParam))
		setFlash(w, flashError, "GitHub sign-in was cancelled.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	result, err := h.identity.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		if isUserError(err) {
			setFlash(w, flashError, errorMessage(err))
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		h.logger.Error("github callback: sign-in failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	h.session.set(w, result.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

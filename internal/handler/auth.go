package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/blog-api/internal/auth"
	"github.com/sakif/blog-api/internal/service"
)

// maxCredentialsBytes bounds the /register and /login bodies.
const maxCredentialsBytes = 1 << 20

// AuthHandler serves the account routes.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister → create an account
//   - HandleLogin    → check credentials, set the session cookie
//   - HandleProfile  → echo the identity carried by the session
//   - HandleLogout   → clear the session cookie
type AuthHandler struct {
	accounts     *service.AuthService
	cookieSecure bool
	logger       *slog.Logger
}

// NewAuthHandler creates an AuthHandler. cookieSecure sets the Secure flag on
// the session cookie and should be true whenever the API is served over HTTPS.
func NewAuthHandler(accounts *service.AuthService, cookieSecure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts:     accounts,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID       xid.ID `json:"id"`
	Username string `json:"username"`
}

type profileResponse struct {
	ID       xid.ID `json:"id"`
	Username string `json:"username"`
	IssuedAt int64  `json:"iat"`
}

// HandleRegister creates an account.
//
// HTTP: POST /register  {"username":"alice","password":"..."}
// 201 with the new user (never the hash), 400 on a bad or taken username.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, maxCredentialsBytes, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// HandleLogin checks the credentials and stores the session token in an
// HttpOnly cookie.
//
// HTTP: POST /login  {"username":"alice","password":"..."}
//
// The cookie is:
//   - HttpOnly: JavaScript can't read it
//   - SameSite=Lax: not sent on cross-site POSTs
//   - a session cookie (no Max-Age), matching the token which never expires
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, maxCredentialsBytes, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    result.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, loginResponse{
		ID:       result.User.ID,
		Username: result.User.Username,
	})
}

// HandleProfile returns the identity decoded from the session token.
//
// HTTP: GET /profile
// Auth: Required (RequireAuth middleware sets the identity in context)
func (h *AuthHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	profile, err := h.accounts.Profile(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		ID:       profile.UserID,
		Username: profile.Username,
		IssuedAt: profile.IssuedAt.Unix(),
	})
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /logout
//
// Tokens are stateless and never expire, so logging out only removes the
// cookie from this browser. A copied token stays valid until JWT_SECRET is
// rotated.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, "ok")
}

package server

import (
	"log"
	"net/http"
	"time"

	"github.com/terraconstructs/hrconsole/internal/auth"
	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/terraconstructs/hrconsole/internal/services/iam"
	"github.com/terraconstructs/hrconsole/internal/services/validation"
)

type signupRequest struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type loginRequest struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// UserResponse represents the signed-in principal in API responses
type UserResponse struct {
	ID    string         `json:"id"`
	Email string         `json:"email"`
	Name  string         `json:"name,omitempty"`
	Role  models.RoleTag `json:"role,omitempty"`
}

// LoginResponse represents the response from POST /auth/login
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// SessionResponse represents the response from GET /api/auth/session
type SessionResponse struct {
	User UserResponse `json:"user"`
}

func userResponse(p *iam.Principal) UserResponse {
	return UserResponse{ID: p.ID, Email: p.Email, Name: p.Name, Role: p.Role}
}

// HandleSignUp creates a principal. It does not sign the principal in.
func HandleSignUp(svc authService, v validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if err := v.Decode(validation.SchemaSignup, r.Body, &req); err != nil {
			writeError(w, err)
			return
		}
		user, err := svc.SignUp(r.Context(), req.Email, req.Password, req.Name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, UserResponse{ID: user.ID, Email: user.Email, Name: user.Name})
	}
}

// HandleLogin exchanges credentials for a session and sets the session cookie.
// The response is written only after the sign-in event has been handled, so
// the role in the body already reflects any grant made on sign-in.
func HandleLogin(svc authService, v validation.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := v.Decode(validation.SchemaLogin, r.Body, &req); err != nil {
			writeError(w, err)
			return
		}

		result, err := svc.SignIn(r.Context(), req.Email, req.Password, iam.ClientMeta{
			UserAgent: r.UserAgent(),
			IPAddress: r.RemoteAddr,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		setSessionCookie(w, r, result.Token, result.Session.ExpiresAt)
		writeJSON(w, http.StatusOK, LoginResponse{
			Token:     result.Token,
			ExpiresAt: result.Session.ExpiresAt,
			User:      userResponse(result.Principal),
		})
	}
}

// HandleLogout revokes the session behind the request's token.
func HandleLogout(svc authService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := iam.TokenFromRequest(iam.AuthRequest{Headers: r.Header, Cookies: r.Cookies()})
		if err := svc.SignOut(r.Context(), token); err != nil {
			clearSessionCookie(w, r)
			writeError(w, err)
			return
		}
		clearSessionCookie(w, r)
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleGetSession restores the session on page load.
func HandleGetSession(svc authService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := iam.TokenFromRequest(iam.AuthRequest{Headers: r.Header, Cookies: r.Cookies()})
		principal, err := svc.GetCurrentSession(r.Context(), token)
		if err != nil {
			if token != "" {
				clearSessionCookie(w, r)
			}
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, SessionResponse{User: userResponse(principal)})
	}
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// logf is log.Printf with the level and request line prefixed.
func logf(r *http.Request, level, format string, args ...any) {
	log.Printf("%s: %s %s: "+format, append([]any{level, r.Method, r.URL.Path}, args...)...)
}

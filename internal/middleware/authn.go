package middleware

import (
	"context"
	"log"
	"net/http"

	"github.com/terraconstructs/hrconsole/internal/apperr"
	"github.com/terraconstructs/hrconsole/internal/auth"
	"github.com/terraconstructs/hrconsole/internal/services/iam"
)

// RequestAuthenticator resolves the credentials on a request to a principal.
// iam.Service satisfies it.
type RequestAuthenticator interface {
	AuthenticateRequest(ctx context.Context, req iam.AuthRequest) (*iam.Principal, error)
}

// MultiAuthMiddleware resolves the session cookie or bearer token on every
// request and stores the principal on the context.
//
// Requests without credentials, or with an expired or revoked session,
// continue anonymously so that public routes (sign-in, the login page) keep
// working with a stale cookie. RequireAuthentication rejects them where it
// matters. Store failures while resolving are answered directly.
func MultiAuthMiddleware(authenticator RequestAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			principal, err := authenticator.AuthenticateRequest(ctx, iam.AuthRequest{
				Headers: r.Header,
				Cookies: r.Cookies(),
			})
			if err != nil {
				if apperr.KindOf(err) != apperr.KindUnauthenticated {
					log.Printf("ERROR: authentication failed for %s %s: %v", r.Method, r.URL.Path, err)
					WriteError(w, err)
					return
				}
				principal = nil
			}

			if principal != nil {
				ctx = auth.SetUserContext(ctx, auth.AuthenticatedPrincipal{
					PrincipalID: principal.ID,
					Email:       principal.Email,
					Name:        principal.Name,
					SessionID:   principal.SessionID,
					Role:        principal.Role,
				})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthentication answers 401 unless MultiAuthMiddleware found a principal.
func RequireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.GetUserFromContext(r.Context()); !ok {
			unauthenticated(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PrincipalFromContext converts the context principal back into the
// service-level type.
func PrincipalFromContext(ctx context.Context) (iam.Principal, bool) {
	p, ok := auth.GetUserFromContext(ctx)
	if !ok {
		return iam.Principal{}, false
	}
	return iam.Principal{
		ID:        p.PrincipalID,
		Email:     p.Email,
		Name:      p.Name,
		SessionID: p.SessionID,
		Role:      p.Role,
	}, true
}

func unauthenticated(w http.ResponseWriter) {
	WriteError(w, apperr.Unauthenticated("authn", "authentication required"))
}

package identity

import (
	"net/http"
	"strings"
)

const (
	// LoginPath is where unauthenticated visitors of protected routes land.
	LoginPath = "/login"
	// LandingPath is where authenticated visitors of the login route land.
	LandingPath = "/dashboard"
)

// ProtectedRoutes are the console routes that require a session. Sub-paths
// are protected too.
var ProtectedRoutes = []string{"/dashboard", "/user-management", "/employees", "/departments", "/job-history"}

// IsProtected reports whether path is a protected route or below one.
func IsProtected(path string) bool {
	for _, p := range ProtectedRoutes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// Redirect returns where a request for path must go, or "" to let it through.
func Redirect(path string, authenticated bool) string {
	switch {
	case !authenticated && IsProtected(path):
		return LoginPath
	case authenticated && (path == LoginPath || path == LoginPath+"/"):
		return LandingPath
	}
	return ""
}

// Guard enforces Redirect on console routes.
type Guard struct {
	authenticated func(*http.Request) bool
}

// NewGuard returns a guard that asks authenticated for the request's state.
func NewGuard(authenticated func(*http.Request) bool) *Guard {
	return &Guard{authenticated: authenticated}
}

// Middleware is chi-compatible.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if target := Redirect(r.URL.Path, g.authenticated(r)); target != "" {
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

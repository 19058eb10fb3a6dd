package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/hrconsole/internal/apperr"
	"github.com/terraconstructs/hrconsole/internal/auth"
	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/terraconstructs/hrconsole/internal/services/iam"
)

type stubAuthenticator struct {
	principal *iam.Principal
	err       error
}

func (s stubAuthenticator) AuthenticateRequest(context.Context, iam.AuthRequest) (*iam.Principal, error) {
	return s.principal, s.err
}

// echoPrincipal writes the context principal id, or "anonymous".
var echoPrincipal = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		_, _ = w.Write([]byte("anonymous"))
		return
	}
	_, _ = w.Write([]byte(p.ID + ":" + string(p.Role)))
})

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestMultiAuthMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		auth       stubAuthenticator
		wantStatus int
		wantBody   string
	}{
		{"authenticated", stubAuthenticator{principal: &iam.Principal{ID: "p-1", Role: models.RoleAdmin}}, http.StatusOK, "p-1:admin"},
		{"no credentials", stubAuthenticator{}, http.StatusOK, "anonymous"},
		{"stale session continues anonymously", stubAuthenticator{err: apperr.Unauthenticated("iam", "session expired")}, http.StatusOK, "anonymous"},
		{"store down", stubAuthenticator{err: apperr.Wrap(apperr.KindRemoteUnavailable, "iam", errors.New("db down"))}, http.StatusServiceUnavailable, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(MultiAuthMiddleware(tt.auth)(echoPrincipal), http.MethodGet, "/api/x")
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRequireAuthentication(t *testing.T) {
	t.Parallel()

	rec := serve(RequireAuthentication(echoPrincipal), http.MethodGet, "/api/x")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperr.KindUnauthenticated, decodeError(t, rec).Kind)

	h := MultiAuthMiddleware(stubAuthenticator{principal: &iam.Principal{ID: "p-1", Role: models.RoleUser}})(RequireAuthentication(echoPrincipal))
	rec = serve(h, http.MethodGet, "/api/x")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthorizer(t *testing.T) {
	t.Parallel()

	enforcer, err := auth.InitEnforcer()
	require.NoError(t, err)
	authz, err := NewAuthorizer(enforcer)
	require.NoError(t, err)

	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	as := func(role models.RoleTag, h http.Handler) http.Handler {
		return MultiAuthMiddleware(stubAuthenticator{principal: &iam.Principal{ID: "p-" + string(role), Role: role}})(h)
	}

	tests := []struct {
		name   string
		role   models.RoleTag
		h      http.Handler
		method string
		want   int
	}{
		{"user reads hr", models.RoleUser, authz.HR(ok), http.MethodGet, http.StatusNoContent},
		{"user writes hr", models.RoleUser, authz.HR(ok), http.MethodPost, http.StatusForbidden},
		{"admin writes hr", models.RoleAdmin, authz.HR(ok), http.MethodDelete, http.StatusNoContent},
		{"blocked reads hr", models.RoleBlocked, authz.HR(ok), http.MethodGet, http.StatusForbidden},
		{"user lists users", models.RoleUser, authz.Require(auth.ObjectUser, auth.UserList)(ok), http.MethodGet, http.StatusForbidden},
		{"admin lists users", models.RoleAdmin, authz.Require(auth.ObjectUser, auth.UserList)(ok), http.MethodGet, http.StatusNoContent},
		{"user changes a role", models.RoleUser, authz.Require(auth.ObjectRoleAssignment, auth.RoleWrite)(ok), http.MethodPut, http.StatusForbidden},
		{"admin changes a role", models.RoleAdmin, authz.Require(auth.ObjectRoleAssignment, auth.RoleWrite)(ok), http.MethodPut, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(as(tt.role, tt.h), tt.method, "/api/employees")
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	rec := serve(authz.HR(ok), http.MethodGet, "/api/employees")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, err = NewAuthorizer(nil)
	assert.Error(t, err)
}

// captureLog redirects the standard logger for the rest of the test. Tests
// using it must not run in parallel.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev, flags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prev)
		log.SetFlags(flags)
	})
	return &buf
}

func TestLogLinesCarryLevel(t *testing.T) {
	buf := captureLog(t)

	enforcer, err := auth.InitEnforcer()
	require.NoError(t, err)
	authz, err := NewAuthorizer(enforcer)
	require.NoError(t, err)

	denied := MultiAuthMiddleware(stubAuthenticator{principal: &iam.Principal{ID: "p-1", Role: models.RoleUser}})(authz.HR(echoPrincipal))
	serve(denied, http.MethodPost, "/api/employees")
	assert.True(t, strings.HasPrefix(buf.String(), "INFO: authorization denied"), buf.String())

	buf.Reset()
	failing := MultiAuthMiddleware(stubAuthenticator{err: apperr.Wrap(apperr.KindRemoteUnavailable, "iam", errors.New("db down"))})(echoPrincipal)
	serve(failing, http.MethodGet, "/api/x")
	assert.True(t, strings.HasPrefix(buf.String(), "ERROR: authentication failed"), buf.String())
}

func TestRateLimiter(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(0.001, 2, nil)
	h := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	request := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, request("10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, request("10.0.0.1:1001").Code)

	rejected := request("10.0.0.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, rejected.Code)
	assert.NotEmpty(t, rejected.Header().Get("Retry-After"))

	// other clients have their own bucket
	assert.Equal(t, http.StatusOK, request("10.0.0.2:1000").Code)
}

func TestRateLimiter_Refills(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(50, 1, nil)
	ok, _ := limiter.Allow("c")
	require.True(t, ok)
	ok, wait := limiter.Allow("c")
	require.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))

	time.Sleep(40 * time.Millisecond)
	ok, _ = limiter.Allow("c")
	assert.True(t, ok)
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{apperr.AccessDenied("op", "no"), http.StatusForbidden},
		{apperr.NotFound("op", "no"), http.StatusNotFound},
		{apperr.Wrap(apperr.KindRemoteUnavailable, "op", errors.New("down")), http.StatusServiceUnavailable},
		{apperr.ValidationFailed("op", "bad"), http.StatusBadRequest},
		{apperr.Wrap(apperr.KindTimeout, "op", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{apperr.Unauthenticated("op", "who"), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		WriteError(rec, tt.err)
		assert.Equal(t, tt.want, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, apperr.KindOf(tt.err), body.Kind)
		assert.Equal(t, tt.err.Error(), body.Error)
	}
}

package iam

import (
	"context"
	"net/http"
)

// Authenticator turns request credentials into a Principal. It returns
// (nil, nil) when its kind of credential is absent so the next
// authenticator can try, and an error only for credentials that are present
// but rejected.
type Authenticator interface {
	Authenticate(ctx context.Context, req AuthRequest) (*Principal, error)
}

// AuthRequest is the part of an HTTP request authenticators may read.
type AuthRequest struct {
	Headers http.Header
	Cookies []*http.Cookie
}

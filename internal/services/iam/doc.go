// Package iam is the console's identity store.
//
// It owns principals (users) and sessions and provides:
//
//   - Sign-up, sign-in, sign-out and session restore for the browser
//   - Per-request authentication (session cookie or Bearer token)
//   - A paged server-side directory of all principals
//   - One-time admin setup tokens
//
// Every session lifecycle change is published on the EventBus. Delivery is
// synchronous: SignIn and GetCurrentSession return only after every
// subscriber has handled the event, so work a subscriber performs on
// sign-in (such as the baseline role grant) is complete before the caller
// makes any authorization-dependent read.
//
// Request Flow:
//
//	Request → MultiAuth → Authenticator.Authenticate() → Principal (with Role)
//	       ↓
//	   Handler → auth.Authorize(principal.Role) → Casbin (read-only)
package iam

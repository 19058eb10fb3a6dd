package iam

import "github.com/terraconstructs/hrconsole/internal/db/models"

// Principal represents an authenticated identity with its effective role.
//
// Role is read through the trusted path once per authentication and never
// modified afterwards.
type Principal struct {
	// ID is users.id.
	ID    string
	Email string
	Name  string

	// SessionID references the active session.
	SessionID string

	Role models.RoleTag
}

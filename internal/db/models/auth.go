package models

import (
	"time"

	"github.com/uptrace/bun"
)

// RoleTag is the closed set of roles a principal can hold.
type RoleTag string

const (
	RoleAdmin   RoleTag = "admin"
	RoleUser    RoleTag = "user"
	RoleBlocked RoleTag = "blocked"
)

// DefaultRole is the effective role of a principal without a role assignment.
const DefaultRole = RoleUser

// RoleTags lists every valid tag in display order.
var RoleTags = []RoleTag{RoleAdmin, RoleUser, RoleBlocked}

// Valid reports whether r is one of RoleTags.
func (r RoleTag) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleBlocked:
		return true
	}
	return false
}

// User is a principal of the identity store. Email is stored lower-cased.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string     `bun:"id,pk,type:uuid"`
	Email        string     `bun:"email,notnull,unique"`
	Name         string     `bun:"name"`
	PasswordHash string     `bun:"password_hash,notnull"` // bcrypt
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
	LastLoginAt  *time.Time `bun:"last_login_at"`
	DisabledAt   *time.Time `bun:"disabled_at"`
}

// RoleAssignment maps a principal to exactly one role tag. PrincipalID is
// the primary key, so writes are upserts and a principal never has two rows.
type RoleAssignment struct {
	bun.BaseModel `bun:"table:role_assignments,alias:ra"`

	PrincipalID string    `bun:"principal_id,pk"`
	Role        RoleTag   `bun:"role,notnull"`
	AssignedBy  string    `bun:"assigned_by,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Session is a console login. Only the SHA-256 hash of the bearer token is stored.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:sess"`

	ID         string    `bun:"id,pk,type:uuid"`
	UserID     string    `bun:"user_id,notnull,type:uuid"`
	TokenHash  string    `bun:"token_hash,notnull,unique"`
	UserAgent  *string   `bun:"user_agent"`
	IPAddress  *string   `bun:"ip_address"`
	ExpiresAt  time.Time `bun:"expires_at,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
	LastUsedAt time.Time `bun:"last_used_at,notnull,default:current_timestamp"`
	Revoked    bool      `bun:"revoked,notnull,default:false"`
}

// UsedSetupToken records the jti of a redeemed one-time admin setup token.
type UsedSetupToken struct {
	bun.BaseModel `bun:"table:used_setup_tokens,alias:ust"`

	JTI        string    `bun:"jti,pk"`
	Email      string    `bun:"email,notnull"`
	RedeemedBy string    `bun:"redeemed_by,notnull"`
	ExpiresAt  time.Time `bun:"expires_at,notnull"`
	RedeemedAt time.Time `bun:"redeemed_at,notnull,default:current_timestamp"`
}

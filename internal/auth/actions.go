package auth

// Action constants for authorization checks

// HR record actions
const (
	// HRRead allows reading departments, jobs, employees, job history and the dashboard
	HRRead = "hr:read"

	// HRWrite allows creating, updating and deleting HR records
	HRWrite = "hr:write"
)

// Role assignment actions
const (
	// RoleRead allows reading a role assignment row
	RoleRead = "role:read"

	// RoleList allows the full scan of role assignments
	RoleList = "role:list"

	// RoleWrite allows granting or changing a principal's role
	RoleWrite = "role:write"
)

// User directory actions
const (
	UserList   = "user:list"
	UserCreate = "user:create"
)

// Wildcards
const (
	HRWildcard  = "hr:*"
	AllWildcard = "*"
)

// Object types
const (
	ObjectHR             = "hr"
	ObjectRoleAssignment = "role_assignment"
	ObjectUser           = "user"
	ObjectAll            = "*"
)

// ScopeSelf restricts a policy line to requests about the caller's own record.
const ScopeSelf = "self == true"

// ValidateAction reports whether action is a known action or policy wildcard.
func ValidateAction(action string) bool {
	switch action {
	case HRRead, HRWrite,
		RoleRead, RoleList, RoleWrite,
		UserList, UserCreate,
		HRWildcard, AllWildcard:
		return true
	}
	return false
}

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terraconstructs/hrconsole/internal/db/models"
)

func TestDefaultPolicies(t *testing.T) {
	t.Parallel()

	enforcer, err := InitEnforcer()
	require.NoError(t, err)

	tests := []struct {
		name  string
		role  models.RoleTag
		obj   string
		act   string
		attrs map[string]any
		want  bool
	}{
		{"admin writes hr", models.RoleAdmin, ObjectHR, HRWrite, nil, true},
		{"admin reads other role", models.RoleAdmin, ObjectRoleAssignment, RoleRead, SelfAttrs("a", "b"), true},
		{"admin lists users", models.RoleAdmin, ObjectUser, UserList, nil, true},
		{"user reads hr", models.RoleUser, ObjectHR, HRRead, nil, true},
		{"user cannot write hr", models.RoleUser, ObjectHR, HRWrite, nil, false},
		{"user reads own role", models.RoleUser, ObjectRoleAssignment, RoleRead, SelfAttrs("a", "a"), true},
		{"user cannot read other role", models.RoleUser, ObjectRoleAssignment, RoleRead, SelfAttrs("a", "b"), false},
		{"user cannot list roles", models.RoleUser, ObjectRoleAssignment, RoleList, nil, false},
		{"blocked reads nothing", models.RoleBlocked, ObjectHR, HRRead, nil, false},
		{"blocked reads own role", models.RoleBlocked, ObjectRoleAssignment, RoleRead, SelfAttrs("a", "a"), true},
		{"blocked cannot read other role", models.RoleBlocked, ObjectRoleAssignment, RoleRead, SelfAttrs("a", "b"), false},
		{"blocked cannot change roles", models.RoleBlocked, ObjectRoleAssignment, RoleWrite, SelfAttrs("a", "a"), false},
		{"admin changes roles", models.RoleAdmin, ObjectRoleAssignment, RoleWrite, nil, true},
		{"missing role denied", "", ObjectHR, HRRead, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Authorize(enforcer, tt.role, tt.obj, tt.act, tt.attrs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthorizeWithoutEnforcer(t *testing.T) {
	t.Parallel()

	_, err := Authorize(nil, models.RoleAdmin, ObjectHR, HRRead, nil)
	assert.Error(t, err)
}

func TestUnknownActions(t *testing.T) {
	t.Parallel()

	enforcer, err := InitEnforcer()
	require.NoError(t, err)

	_, err = Authorize(enforcer, models.RoleAdmin, ObjectHR, "hr:delete", nil)
	assert.Error(t, err)
	_, err = Authorize(enforcer, models.RoleAdmin, ObjectHR, AllWildcard, nil)
	assert.Error(t, err, "wildcards are for policies, not requests")

	_, err = NewEnforcer([]Policy{{Role: models.RoleUser, Object: ObjectHR, Action: "hr:browse"}})
	assert.Error(t, err)
}

func TestFilterRows(t *testing.T) {
	t.Parallel()

	type row struct {
		id   string
		role string
	}
	rows := []row{{"a", "admin"}, {"b", "user"}, {"c", "blocked"}}
	attrs := func(r row) map[string]any { return map[string]any{"id": r.id, "role": r.role} }

	got, err := FilterRows(`role == "blocked"`, rows, attrs)
	require.NoError(t, err)
	assert.Equal(t, []row{{"c", "blocked"}}, got)

	got, err = FilterRows("", rows, attrs)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = FilterRows(`role ==`, rows, attrs)
	assert.Error(t, err)
}

func TestEvaluateScope(t *testing.T) {
	t.Parallel()

	assert.True(t, EvaluateScope("", nil))
	assert.True(t, EvaluateScope(ScopeSelf, map[string]any{"self": true}))
	assert.False(t, EvaluateScope(ScopeSelf, map[string]any{"self": false}))
	assert.False(t, EvaluateScope(ScopeSelf, map[string]any{}))
	assert.False(t, EvaluateScope("not valid ((", map[string]any{}))
}

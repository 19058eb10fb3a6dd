package roles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terraconstructs/hrconsole/internal/apperr"
	"github.com/terraconstructs/hrconsole/internal/auth"
	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/terraconstructs/hrconsole/internal/repository"
	"github.com/terraconstructs/hrconsole/internal/testutil"
)

func newSQLiteService(t *testing.T) (*Service, *repository.BunRoleAssignmentRepository) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	repo := repository.NewBunRoleAssignmentRepository(db)
	enforcer, err := auth.InitEnforcer()
	require.NoError(t, err)
	return NewService(repo, enforcer, time.Second), repo
}

func TestGetRole_MissingRowIsDefaultUser(t *testing.T) {
	svc, _ := newSQLiteService(t)
	ctx := context.Background()

	role, err := svc.GetRole(ctx, "p-1", "p-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, role)

	_, err = svc.LookupRole(ctx, "p-1", "p-1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGrantRole_IsIdempotent(t *testing.T) {
	svc, repo := newSQLiteService(t)
	ctx := context.Background()

	require.NoError(t, svc.GrantRole(ctx, "p-1", models.RoleUser, "admin-1"))
	require.NoError(t, svc.GrantRole(ctx, "p-1", models.RoleUser, "admin-1"))

	rows, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "p-1", rows[0].PrincipalID)
	assert.Equal(t, models.RoleUser, rows[0].Role)
}

func TestGrantRole_LastWriteWins(t *testing.T) {
	svc, _ := newSQLiteService(t)
	ctx := context.Background()

	require.NoError(t, svc.GrantRole(ctx, "p-1", models.RoleAdmin, ""))
	require.NoError(t, svc.GrantRole(ctx, "p-1", models.RoleBlocked, ""))

	role, err := svc.EffectiveRole(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleBlocked, role)

	role, err = svc.GetRole(ctx, "p-1", "p-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleBlocked, role)

	_, err = svc.GetRole(ctx, "p-1", "p-2")
	assert.ErrorIs(t, err, apperr.ErrAccessDenied, "blocked principals read only their own row")
}

func TestGrantRole_RejectsUnknownTag(t *testing.T) {
	svc, _ := newSQLiteService(t)

	err := svc.GrantRole(context.Background(), "p-1", models.RoleTag("superuser"), "")
	assert.Equal(t, apperr.KindValidationFailed, apperr.KindOf(err))

	err = svc.GrantRole(context.Background(), "", models.RoleUser, "")
	assert.Equal(t, apperr.KindValidationFailed, apperr.KindOf(err))
}

func TestEnsureRole_DoesNotOverwrite(t *testing.T) {
	svc, _ := newSQLiteService(t)
	ctx := context.Background()

	created, err := svc.EnsureRole(ctx, "p-1", models.RoleUser)
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, svc.GrantRole(ctx, "p-1", models.RoleAdmin, ""))

	created, err = svc.EnsureRole(ctx, "p-1", models.RoleUser)
	require.NoError(t, err)
	assert.False(t, created)

	role, err := svc.EffectiveRole(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)
}

func TestGetRole_RowPolicy(t *testing.T) {
	svc, _ := newSQLiteService(t)
	ctx := context.Background()

	require.NoError(t, svc.GrantRole(ctx, "admin-1", models.RoleAdmin, ""))
	require.NoError(t, svc.GrantRole(ctx, "user-1", models.RoleUser, ""))
	require.NoError(t, svc.GrantRole(ctx, "user-2", models.RoleBlocked, ""))

	role, err := svc.GetRole(ctx, "admin-1", "user-2")
	require.NoError(t, err)
	assert.Equal(t, models.RoleBlocked, role)

	role, err = svc.GetRole(ctx, "user-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, role)

	_, err = svc.GetRole(ctx, "user-1", "admin-1")
	assert.ErrorIs(t, err, apperr.ErrAccessDenied)
}

func TestIsAdmin_TrustedPredicateIgnoresRowPolicy(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := repository.NewBunRoleAssignmentRepository(db)

	// admins here may touch HR data but have no read on role rows at all
	enforcer, err := auth.NewEnforcer([]auth.Policy{
		{Role: models.RoleAdmin, Object: auth.ObjectHR, Action: auth.HRWildcard},
	})
	require.NoError(t, err)
	svc := NewService(repo, enforcer, time.Second)
	ctx := context.Background()

	require.NoError(t, svc.GrantRole(ctx, "admin-1", models.RoleAdmin, ""))

	_, err = svc.GetRole(ctx, "admin-1", "admin-1")
	require.ErrorIs(t, err, apperr.ErrAccessDenied)

	ok, err := svc.IsAdmin(ctx, "admin-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsAdmin(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListRoleAssignments_RequiresAdmin(t *testing.T) {
	svc, _ := newSQLiteService(t)
	ctx := context.Background()

	require.NoError(t, svc.GrantRole(ctx, "admin-1", models.RoleAdmin, ""))
	require.NoError(t, svc.GrantRole(ctx, "user-1", models.RoleUser, "admin-1"))

	_, err := svc.ListRoleAssignments(ctx, "user-1")
	assert.ErrorIs(t, err, apperr.ErrAccessDenied)

	got, err := svc.ListRoleAssignments(ctx, "admin-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "admin-1", got[0].PrincipalID)
	assert.Equal(t, "admin-1", got[1].AssignedBy)
}

// failingRepo returns err from every call, or blocks until the context ends
// when block is set.
type failingRepo struct {
	err   error
	block bool
}

func (f *failingRepo) wait(ctx context.Context) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

func (f *failingRepo) Upsert(ctx context.Context, _ *models.RoleAssignment) error {
	return f.wait(ctx)
}

func (f *failingRepo) InsertIfAbsent(ctx context.Context, _ *models.RoleAssignment) (bool, error) {
	return false, f.wait(ctx)
}

func (f *failingRepo) Get(ctx context.Context, _ string) (*models.RoleAssignment, error) {
	return nil, f.wait(ctx)
}

func (f *failingRepo) List(ctx context.Context) ([]models.RoleAssignment, error) {
	return nil, f.wait(ctx)
}

func (f *failingRepo) IsAdmin(ctx context.Context, _ string) (bool, error) {
	return false, f.wait(ctx)
}

func TestStoreFailuresAreTyped(t *testing.T) {
	t.Parallel()

	enforcer, err := auth.InitEnforcer()
	require.NoError(t, err)

	svc := NewService(&failingRepo{err: errors.New("connection refused")}, enforcer, time.Second)
	err = svc.GrantRole(context.Background(), "p-1", models.RoleAdmin, "")
	assert.ErrorIs(t, err, apperr.ErrRemoteUnavailable)

	_, err = svc.IsAdmin(context.Background(), "p-1")
	assert.ErrorIs(t, err, apperr.ErrRemoteUnavailable)

	slow := NewService(&failingRepo{block: true}, enforcer, 20*time.Millisecond)
	err = slow.GrantRole(context.Background(), "p-1", models.RoleAdmin, "")
	assert.ErrorIs(t, err, apperr.ErrTimeout)
}

package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terraconstructs/hrconsole/internal/apperr"
	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/terraconstructs/hrconsole/internal/repository"
	"github.com/terraconstructs/hrconsole/internal/services/iam"
	"github.com/terraconstructs/hrconsole/internal/services/roles"
	"github.com/terraconstructs/hrconsole/internal/testutil"
)

// stubDirectory serves a fixed principal set or a fixed error.
type stubDirectory struct {
	users   []models.User
	listErr error
	created []models.User
}

func (d *stubDirectory) ListAllUsers(context.Context) ([]models.User, error) {
	if d.listErr != nil {
		return nil, d.listErr
	}
	return d.users, nil
}

func (d *stubDirectory) GetUserByID(_ context.Context, id string) (*models.User, error) {
	for _, u := range d.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, apperr.NotFound("iam.GetUserByID", "no principal "+id)
}

func (d *stubDirectory) CreateUser(_ context.Context, email, _, name string) (*models.User, error) {
	u := models.User{ID: "new-" + email, Email: email, Name: name}
	d.created = append(d.created, u)
	d.users = append(d.users, u)
	return &u, nil
}

// stubRoles is an in-memory role table with the same defaults as the real store.
type stubRoles struct {
	rows    map[string]models.RoleTag
	ensured []string
	grants  []string
	// grantErrs are returned by the next GrantRole calls, one per call.
	grantErrs []error
}

func newStubRoles(rows map[string]models.RoleTag) *stubRoles {
	if rows == nil {
		rows = map[string]models.RoleTag{}
	}
	return &stubRoles{rows: rows}
}

func (s *stubRoles) IsAdmin(_ context.Context, id string) (bool, error) {
	return s.rows[id] == models.RoleAdmin, nil
}

func (s *stubRoles) ListRoleAssignments(_ context.Context, callerID string) ([]roles.Assignment, error) {
	if s.rows[callerID] != models.RoleAdmin {
		return nil, apperr.AccessDenied("roles.ListRoleAssignments", "admin role required")
	}
	out := make([]roles.Assignment, 0, len(s.rows))
	for id, r := range s.rows {
		out = append(out, roles.Assignment{PrincipalID: id, Role: r})
	}
	return out, nil
}

func (s *stubRoles) EnsureRole(_ context.Context, id string, role models.RoleTag) (bool, error) {
	s.ensured = append(s.ensured, id)
	if _, ok := s.rows[id]; ok {
		return false, nil
	}
	s.rows[id] = role
	return true, nil
}

func (s *stubRoles) GrantRole(_ context.Context, id string, role models.RoleTag, by string) error {
	if len(s.grantErrs) > 0 {
		err := s.grantErrs[0]
		s.grantErrs = s.grantErrs[1:]
		return err
	}
	s.grants = append(s.grants, id+"="+string(role)+" by "+by)
	s.rows[id] = role
	return nil
}

type stubTokens struct{ err error }

func (t stubTokens) Redeem(_ context.Context, _, callerID, callerEmail string) (*models.UsedSetupToken, error) {
	if t.err != nil {
		return nil, t.err
	}
	return &models.UsedSetupToken{JTI: "jti-1", Email: callerEmail, RedeemedBy: callerID}, nil
}

func (t stubTokens) Release(context.Context, string) error { return nil }

func users(ids ...string) []models.User {
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.User{ID: id, Email: id + "@example.com"})
	}
	return out
}

func rolesOf(rows []Row) map[string]models.RoleTag {
	out := make(map[string]models.RoleTag, len(rows))
	for _, r := range rows {
		out[r.PrincipalID] = r.Role
	}
	return out
}

func TestListUsers_JoinsDirectoryWithRoles(t *testing.T) {
	t.Parallel()

	dir := &stubDirectory{users: users("C", "A", "B")}
	rs := newStubRoles(map[string]models.RoleTag{"A": models.RoleAdmin, "C": models.RoleBlocked})
	view := NewView(dir, rs, nil)

	listing, err := view.ListUsers(context.Background(), iam.Principal{ID: "A"}, "")
	require.NoError(t, err)
	assert.False(t, listing.Degraded)
	assert.Equal(t, map[string]models.RoleTag{
		"A": models.RoleAdmin,
		"B": models.RoleUser,
		"C": models.RoleBlocked,
	}, rolesOf(listing.Rows))

	ids := []string{listing.Rows[0].PrincipalID, listing.Rows[1].PrincipalID, listing.Rows[2].PrincipalID}
	assert.Equal(t, []string{"A", "B", "C"}, ids)
	assert.True(t, listing.Rows[0].Self)
}

func TestListUsers_DegradesToCallerWhenEnumerationDenied(t *testing.T) {
	t.Parallel()

	for _, dirErr := range []error{
		apperr.AccessDenied("iam.ListUsers", "directory enumeration is disabled"),
		apperr.New(apperr.KindRemoteUnavailable, "iam.ListUsers", "connection refused"),
	} {
		dir := &stubDirectory{listErr: dirErr}
		rs := newStubRoles(map[string]models.RoleTag{"D": models.RoleAdmin, "E": models.RoleBlocked})
		view := NewView(dir, rs, nil)

		listing, err := view.ListUsers(context.Background(), iam.Principal{ID: "D", Email: "d@example.com"}, "")
		require.NoError(t, err)
		assert.True(t, listing.Degraded)
		assert.Contains(t, listing.Cause, dirErr.Error())
		require.Len(t, listing.Rows, 1)
		assert.Equal(t, "D", listing.Rows[0].PrincipalID)
		assert.Equal(t, models.RoleAdmin, listing.Rows[0].Role)
		assert.Equal(t, []string{"D"}, rs.ensured)
	}
}

func TestListUsers_OtherDirectoryErrorsPropagate(t *testing.T) {
	t.Parallel()

	dir := &stubDirectory{listErr: apperr.New(apperr.KindTimeout, "iam.ListUsers", "deadline")}
	view := NewView(dir, newStubRoles(map[string]models.RoleTag{"A": models.RoleAdmin}), nil)

	_, err := view.ListUsers(context.Background(), iam.Principal{ID: "A"}, "")
	assert.ErrorIs(t, err, apperr.ErrTimeout)
}

func TestListUsers_NonAdminIsDenied(t *testing.T) {
	t.Parallel()

	rs := newStubRoles(map[string]models.RoleTag{"U": models.RoleUser})
	view := NewView(&stubDirectory{users: users("U")}, rs, nil)

	_, err := view.ListUsers(context.Background(), iam.Principal{ID: "U"}, "")
	assert.ErrorIs(t, err, apperr.ErrAccessDenied)
	assert.Empty(t, rs.grants, "no self-escalation")
}

func TestListUsers_Filter(t *testing.T) {
	t.Parallel()

	dir := &stubDirectory{users: users("A", "B", "C")}
	rs := newStubRoles(map[string]models.RoleTag{"A": models.RoleAdmin, "C": models.RoleBlocked})
	view := NewView(dir, rs, nil)

	listing, err := view.ListUsers(context.Background(), iam.Principal{ID: "A"}, `role == "blocked"`)
	require.NoError(t, err)
	require.Len(t, listing.Rows, 1)
	assert.Equal(t, "C", listing.Rows[0].PrincipalID)

	_, err = view.ListUsers(context.Background(), iam.Principal{ID: "A"}, `role ==`)
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
}

func TestSetRoleAndBlock(t *testing.T) {
	t.Parallel()

	dir := &stubDirectory{users: users("A", "B")}
	rs := newStubRoles(map[string]models.RoleTag{"A": models.RoleAdmin})
	view := NewView(dir, rs, nil)
	ctx := context.Background()
	caller := iam.Principal{ID: "A"}

	require.NoError(t, view.SetRole(ctx, caller, "B", models.RoleAdmin))
	require.NoError(t, view.Block(ctx, caller, "B"))
	assert.Equal(t, models.RoleBlocked, rs.rows["B"])
	assert.Equal(t, []string{"B=admin by A", "B=blocked by A"}, rs.grants)

	err := view.SetRole(ctx, caller, "A", models.RoleUser)
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)

	err = view.SetRole(ctx, caller, "B", models.RoleTag("root"))
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)

	err = view.SetRole(ctx, caller, "missing", models.RoleUser)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = view.SetRole(ctx, iam.Principal{ID: "B"}, "A", models.RoleBlocked)
	assert.ErrorIs(t, err, apperr.ErrAccessDenied)
}

func TestCreateUser(t *testing.T) {
	t.Parallel()

	dir := &stubDirectory{}
	rs := newStubRoles(map[string]models.RoleTag{"A": models.RoleAdmin})
	view := NewView(dir, rs, nil)

	row, err := view.CreateUser(context.Background(), iam.Principal{ID: "A"}, "new@example.com", "secret-pw", "New", "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, row.Role)
	assert.Equal(t, "new-new@example.com", row.PrincipalID)
	assert.Equal(t, models.RoleUser, rs.rows[row.PrincipalID])

	_, err = view.CreateUser(context.Background(), iam.Principal{ID: "nobody"}, "x@example.com", "", "", models.RoleUser)
	assert.ErrorIs(t, err, apperr.ErrAccessDenied)
}

func TestRedeemSetupToken(t *testing.T) {
	t.Parallel()

	rs := newStubRoles(nil)
	caller := iam.Principal{ID: "R", Email: "root@example.com"}

	require.NoError(t, NewView(&stubDirectory{}, rs, stubTokens{}).RedeemSetupToken(context.Background(), caller, "tok"))
	assert.Equal(t, models.RoleAdmin, rs.rows["R"])
	assert.Equal(t, []string{"R=admin by setup-token:jti-1"}, rs.grants)

	err := NewView(&stubDirectory{}, newStubRoles(nil), nil).RedeemSetupToken(context.Background(), caller, "tok")
	assert.ErrorIs(t, err, apperr.ErrAccessDenied)

	used := apperr.ValidationFailed("iam.RedeemSetupToken", "setup token was already used")
	err = NewView(&stubDirectory{}, newStubRoles(nil), stubTokens{err: used}).RedeemSetupToken(context.Background(), caller, "tok")
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
}

func TestRedeemSetupToken_FailedGrantKeepsTokenUsable(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	tokens := iam.NewSetupTokens("s3cret", repository.NewBunSetupTokenRepository(db), time.Second)
	token, err := tokens.Issue("root@example.com", time.Hour)
	require.NoError(t, err)

	rs := newStubRoles(nil)
	rs.grantErrs = []error{apperr.Wrap(apperr.KindRemoteUnavailable, "roles.GrantRole", errors.New("store down"))}
	view := NewView(&stubDirectory{}, rs, tokens)
	caller := iam.Principal{ID: "R", Email: "root@example.com"}
	ctx := context.Background()

	err = view.RedeemSetupToken(ctx, caller, token)
	require.ErrorIs(t, err, apperr.ErrRemoteUnavailable)
	assert.Empty(t, rs.rows)

	require.NoError(t, view.RedeemSetupToken(ctx, caller, token))
	assert.Equal(t, models.RoleAdmin, rs.rows["R"])

	err = view.RedeemSetupToken(ctx, caller, token)
	assert.ErrorIs(t, err, apperr.ErrValidationFailed, "a granted token is spent")
}

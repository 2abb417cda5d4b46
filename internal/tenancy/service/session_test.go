package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/tenancy/internal/tenancy/domain"
	"github.com/aussiebroadwan/tenancy/internal/tenancy/store"
	"github.com/aussiebroadwan/tenancy/pkg/prefcache"
	"github.com/stretchr/testify/require"
)

func newSessionService(st store.Store, prefs prefcache.Cache, now time.Time) *SessionService {
	clock := func() time.Time { return now }
	return &SessionService{
		Store:   st,
		Prefs:   prefs,
		Invites: &InviteService{Store: st, Now: clock},
		Now:     clock,
	}
}

func seedTestMembership(t *testing.T, st store.Store, userID, orgID string, role domain.Role) {
	t.Helper()
	require.NoError(t, st.Memberships().CreateMembership(context.Background(), domain.Membership{
		UserID:   userID,
		OrgID:    orgID,
		Role:     role,
		Email:    userID + "@example.com",
		JoinedAt: time.Now().UTC(),
	}))
}

func TestResolveSessionNoOrganizations(t *testing.T) {
	t.Parallel()

	st := newMemStore(t)
	svc := newSessionService(st, prefcache.NewMemory(), time.Now().UTC())

	session, err := svc.ResolveSession(context.Background(), "u1", "u1@example.com")
	require.NoError(t, err)
	require.Empty(t, session.Organizations)
	require.Empty(t, session.Invitations)
	require.Nil(t, session.Active)
}

func TestResolveSessionSingleOrgAutoSelects(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newMemStore(t)
	now := time.Now().UTC()
	seedTestOrg(t, st, "org-1", now.Add(-5*24*time.Hour))
	seedTestMembership(t, st, "u1", "org-1", domain.RoleManager)

	prefs := prefcache.NewMemory()
	svc := newSessionService(st, prefs, now)

	session, err := svc.ResolveSession(ctx, "u1", "u1@example.com")
	require.NoError(t, err)
	require.Len(t, session.Organizations, 1)
	require.NotNil(t, session.Active)
	require.Equal(t, "org-1", session.Active.Organization.ID)
	require.Equal(t, domain.RoleManager, session.Active.Role)

	// Five days into a fourteen-day trial.
	require.True(t, session.Active.Subscription.Active)
	require.Equal(t, 9, session.Active.Subscription.TrialDaysRemaining)

	cached, ok := prefs.Get("u1")
	require.True(t, ok)
	require.Equal(t, "org-1", cached)
}

func TestResolveSessionAmbiguousWithoutPreference(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newMemStore(t)
	now := time.Now().UTC()
	seedTestOrg(t, st, "org-1", now.Add(-2*time.Hour))
	seedTestOrg(t, st, "org-2", now.Add(-time.Hour))
	seedTestMembership(t, st, "u1", "org-1", domain.RoleStaff)
	seedTestMembership(t, st, "u1", "org-2", domain.RoleAdmin)

	svc := newSessionService(st, prefcache.NewMemory(), now)

	session, err := svc.ResolveSession(ctx, "u1", "u1@example.com")
	require.NoError(t, err)
	require.Len(t, session.Organizations, 2)
	require.Nil(t, session.Active, "the caller must choose explicitly")
}

func TestResolveSessionCachedPreferenceApplies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newMemStore(t)
	now := time.Now().UTC()
	seedTestOrg(t, st, "org-1", now.Add(-2*time.Hour))
	seedTestOrg(t, st, "org-2", now.Add(-time.Hour))
	seedTestMembership(t, st, "u1", "org-1", domain.RoleStaff)
	seedTestMembership(t, st, "u1", "org-2", domain.RoleAdmin)

	prefs := prefcache.NewMemory()
	require.NoError(t, prefs.Put("u1", "org-2"))

	svc := newSessionService(st, prefs, now)

	session, err := svc.ResolveSession(ctx, "u1", "u1@example.com")
	require.NoError(t, err)
	require.NotNil(t, session.Active)
	require.Equal(t, "org-2", session.Active.Organization.ID)
	require.Equal(t, domain.RoleAdmin, session.Active.Role)
}

func TestResolveSessionDropsStalePreference(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newMemStore(t)
	now := time.Now().UTC()
	seedTestOrg(t, st, "org-1", now.Add(-2*time.Hour))
	seedTestOrg(t, st, "org-2", now.Add(-time.Hour))
	seedTestMembership(t, st, "u1", "org-1", domain.RoleStaff)
	seedTestMembership(t, st, "u1", "org-2", domain.RoleStaff)

	prefs := prefcache.NewMemory()
	require.NoError(t, prefs.Put("u1", "org-gone")) // membership since removed

	svc := newSessionService(st, prefs, now)

	session, err := svc.ResolveSession(ctx, "u1", "u1@example.com")
	require.NoError(t, err)
	require.Nil(t, session.Active)

	_, ok := prefs.Get("u1")
	require.False(t, ok, "stale preference must be dropped")
}

func TestResolveSessionSweepsPendingInvitations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newMemStore(t)
	now := time.Now().UTC()
	seedTestOrg(t, st, "org-1", now)
	require.NoError(t, st.Invitations().CreateInvitation(ctx, domain.Invitation{
		ID:        "inv-1",
		OrgID:     "org-1",
		Email:     "u1@example.com",
		Role:      domain.RoleManager,
		CreatedAt: now,
	}))

	svc := newSessionService(st, prefcache.NewMemory(), now)

	session, err := svc.ResolveSession(ctx, "u1", "U1@Example.com")
	require.NoError(t, err)
	require.Equal(t, []string{"inv-1"}, session.AcceptedInvitations())
	require.Len(t, session.Organizations, 1)
	require.NotNil(t, session.Active)
	require.Equal(t, domain.RoleManager, session.Active.Role)

	// The sweep is idempotent across logins.
	session, err = svc.ResolveSession(ctx, "u1", "u1@example.com")
	require.NoError(t, err)
	require.Empty(t, session.Invitations)
	require.Len(t, session.Organizations, 1)
}

// failAcceptStore wraps a Store so that marking one particular invitation
// accepted fails, exercising the partial-failure path of the login sweep.
type failAcceptStore struct {
	store.Store
	failID string
}

var errMarkerDown = errors.New("marker write failed")

func (f *failAcceptStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return f.Store.WithTx(ctx, func(tx store.Tx) error {
		return fn(&failAcceptTx{Store: tx, tx: tx, failID: f.failID})
	})
}

// failAcceptTx embeds the transaction as a plain Store: an embedded store.Tx
// would surface as a field named Tx and shadow the interface's Tx method.
type failAcceptTx struct {
	store.Store
	tx     store.Tx
	failID string
}

var _ store.Tx = (*failAcceptTx)(nil)

func (t *failAcceptTx) Commit() error   { return t.tx.Commit() }
func (t *failAcceptTx) Rollback() error { return t.tx.Rollback() }

func (t *failAcceptTx) Invitations() store.Invitations {
	return &failAcceptInvitations{Invitations: t.tx.Invitations(), failID: t.failID}
}

type failAcceptInvitations struct {
	store.Invitations
	failID string
}

func (i *failAcceptInvitations) MarkInvitationAccepted(ctx context.Context, id string, at time.Time) error {
	if id == i.failID {
		return errMarkerDown
	}
	return i.Invitations.MarkInvitationAccepted(ctx, id, at)
}

func TestResolveSessionCollectsInvitationFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := newMemStore(t)
	now := time.Now().UTC()
	seedTestOrg(t, mem, "org-1", now.Add(-2*time.Hour))
	seedTestOrg(t, mem, "org-2", now.Add(-time.Hour))
	for _, inv := range []domain.Invitation{
		{ID: "inv-ok", OrgID: "org-1", Email: "u1@example.com", Role: domain.RoleStaff, CreatedAt: now.Add(-time.Minute)},
		{ID: "inv-bad", OrgID: "org-2", Email: "u1@example.com", Role: domain.RoleStaff, CreatedAt: now},
	} {
		require.NoError(t, mem.Invitations().CreateInvitation(ctx, inv))
	}

	st := &failAcceptStore{Store: mem, failID: "inv-bad"}
	svc := newSessionService(st, prefcache.NewMemory(), now)

	session, err := svc.ResolveSession(ctx, "u1", "u1@example.com")
	require.NoError(t, err, "one broken invitation must not fail the login")
	require.Len(t, session.Invitations, 2)
	require.Equal(t, []string{"inv-ok"}, session.AcceptedInvitations())

	var failed *domain.InvitationResult
	for i := range session.Invitations {
		if session.Invitations[i].InvitationID == "inv-bad" {
			failed = &session.Invitations[i]
		}
	}
	require.NotNil(t, failed)
	require.ErrorIs(t, failed.Err, errMarkerDown)

	// The failed membership insert rolled back with the marker write.
	require.Len(t, session.Organizations, 1)
	require.NotNil(t, session.Active)
	require.Equal(t, "org-1", session.Active.Organization.ID)
}

func TestResolveSessionFatalWhenStoreUnavailable(t *testing.T) {
	t.Parallel()

	st := newSQLStore(t)
	require.NoError(t, st.Close())

	svc := newSessionService(st, prefcache.NewMemory(), time.Now().UTC())

	_, err := svc.ResolveSession(context.Background(), "u1", "u1@example.com")
	require.Error(t, err)
}

func TestSwitchOrganization(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newMemStore(t)
	now := time.Now().UTC()
	seedTestOrg(t, st, "org-1", now.Add(-2*time.Hour))
	seedTestOrg(t, st, "org-2", now.Add(-time.Hour))
	seedTestMembership(t, st, "u1", "org-1", domain.RoleStaff)
	seedTestMembership(t, st, "u1", "org-2", domain.RoleAdmin)

	prefs := prefcache.NewMemory()
	svc := newSessionService(st, prefs, now)

	octx, err := svc.SwitchOrganization(ctx, "u1", "org-2")
	require.NoError(t, err)
	require.Equal(t, "org-2", octx.Organization.ID)
	require.Equal(t, domain.RoleAdmin, octx.Role)

	cached, ok := prefs.Get("u1")
	require.True(t, ok)
	require.Equal(t, "org-2", cached)

	// A cached or guessed id is never an access grant.
	_, err = svc.SwitchOrganization(ctx, "u2", "org-2")
	require.ErrorIs(t, err, ErrNotMember)
}

func TestRefreshOrganization(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newMemStore(t)
	now := time.Now().UTC()
	seedTestOrg(t, st, "org-1", now)
	seedTestMembership(t, st, "u1", "org-1", domain.RoleStaff)

	prefs := prefcache.NewMemory()
	svc := newSessionService(st, prefs, now)

	// A role change since the last resolve shows up on refresh.
	require.NoError(t, st.Memberships().UpdateUserRole(ctx, "u1", "org-1", domain.RoleAdmin))

	octx, err := svc.RefreshOrganization(ctx, "u1", "org-1")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, octx.Role)

	_, ok := prefs.Get("u1")
	require.False(t, ok, "refresh must not touch the cached selection")

	_, err = svc.RefreshOrganization(ctx, "u1", "org-missing")
	require.ErrorIs(t, err, ErrOrgNotFound)
}

func TestLogoutClearsSelection(t *testing.T) {
	t.Parallel()

	prefs := prefcache.NewMemory()
	require.NoError(t, prefs.Put("u1", "org-1"))

	svc := newSessionService(newMemStore(t), prefs, time.Now().UTC())
	require.NoError(t, svc.Logout(context.Background(), "u1"))

	_, ok := prefs.Get("u1")
	require.False(t, ok)
}

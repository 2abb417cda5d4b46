// Package memory is an in-process store driver. It backs tests and local
// development, and mirrors the sqlite driver's semantics: foreign keys,
// idempotent markers, and the bounded invite-code counter behave the same.
//
// Transactions take the store lock for their whole lifetime and work on a
// snapshot, which both serializes concurrent redemptions (the model the
// bounded counter requires) and gives rollback real meaning: a failed
// membership insert discards the consumed counter slot with the snapshot.
package memory

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/aussiebroadwan/tenancy/internal/tenancy/domain"
	"github.com/aussiebroadwan/tenancy/internal/tenancy/store"
)

type state struct {
	orgs        map[string]domain.Organization
	memberships map[string]domain.Membership // keyed userID + "\x00" + orgID
	codes       map[string]domain.InviteCode
	invitations map[string]domain.Invitation
	activity    []domain.ActivityEvent
}

func newState() *state {
	return &state{
		orgs:        make(map[string]domain.Organization),
		memberships: make(map[string]domain.Membership),
		codes:       make(map[string]domain.InviteCode),
		invitations: make(map[string]domain.Invitation),
	}
}

func (st *state) clone() *state {
	dup := &state{
		orgs:        make(map[string]domain.Organization, len(st.orgs)),
		memberships: make(map[string]domain.Membership, len(st.memberships)),
		codes:       make(map[string]domain.InviteCode, len(st.codes)),
		invitations: make(map[string]domain.Invitation, len(st.invitations)),
		activity:    append([]domain.ActivityEvent(nil), st.activity...),
	}
	for k, v := range st.orgs {
		dup.orgs[k] = v
	}
	for k, v := range st.memberships {
		dup.memberships[k] = v
	}
	for k, v := range st.codes {
		dup.codes[k] = v
	}
	for k, v := range st.invitations {
		dup.invitations[k] = v
	}
	return dup
}

func membershipKey(userID, orgID string) string {
	return userID + "\x00" + orgID
}

type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) Close() error                   { return nil }
func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) ApplyMigrations() error         { return nil }

func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	s.mu.Lock()
	return &memTx{s: s, work: s.st.clone()}, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) Organizations() store.Organizations { return &organizationsRepo{base{s: s}} }
func (s *Store) Memberships() store.Memberships     { return &membershipsRepo{base{s: s}} }
func (s *Store) InviteCodes() store.InviteCodes     { return &inviteCodesRepo{base{s: s}} }
func (s *Store) Invitations() store.Invitations     { return &invitationsRepo{base{s: s}} }
func (s *Store) Activity() store.Activity           { return &activityRepo{base{s: s}} }

type memTx struct {
	s    *Store
	work *state
	done bool
}

func (t *memTx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.s.st = t.work
	t.s.mu.Unlock()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil // safe after commit, matching database/sql behavior
	}
	t.done = true
	t.s.mu.Unlock()
	return nil
}

func (t *memTx) Close() error                   { return nil }
func (t *memTx) Ping(ctx context.Context) error { return nil }
func (t *memTx) ApplyMigrations() error         { return nil }

func (t *memTx) Tx(ctx context.Context) (store.Tx, error) {
	return nil, sql.ErrTxDone // nested tx not supported
}

func (t *memTx) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *memTx) Organizations() store.Organizations { return &organizationsRepo{base{tx: t}} }
func (t *memTx) Memberships() store.Memberships     { return &membershipsRepo{base{tx: t}} }
func (t *memTx) InviteCodes() store.InviteCodes     { return &inviteCodesRepo{base{tx: t}} }
func (t *memTx) Invitations() store.Invitations     { return &invitationsRepo{base{tx: t}} }
func (t *memTx) Activity() store.Activity           { return &activityRepo{base{tx: t}} }

// base routes repository operations either at the live state (under the
// store lock) or at a transaction snapshot (lock already held).
type base struct {
	s  *Store
	tx *memTx
}

func (b base) with(fn func(st *state) error) error {
	if b.tx != nil {
		return fn(b.tx.work)
	}
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	return fn(b.s.st)
}

type organizationsRepo struct{ base }

func (r *organizationsRepo) GetUserOrganizations(
	ctx context.Context,
	userID string,
) ([]domain.Organization, error) {
	var orgs []domain.Organization
	err := r.with(func(st *state) error {
		for _, m := range st.memberships {
			if m.UserID != userID {
				continue
			}
			if org, ok := st.orgs[m.OrgID]; ok {
				orgs = append(orgs, org)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(orgs, func(i, j int) bool {
		if !orgs[i].CreatedAt.Equal(orgs[j].CreatedAt) {
			return orgs[i].CreatedAt.Before(orgs[j].CreatedAt)
		}
		return orgs[i].ID < orgs[j].ID
	})
	return orgs, nil
}

func (r *organizationsRepo) GetOrganizationByID(
	ctx context.Context,
	orgID string,
) (domain.Organization, error) {
	var org domain.Organization
	err := r.with(func(st *state) error {
		found, ok := st.orgs[orgID]
		if !ok {
			return store.ErrNotFound
		}
		org = found
		return nil
	})
	return org, err
}

func (r *organizationsRepo) CreateOrganization(ctx context.Context, org domain.Organization) error {
	return r.with(func(st *state) error {
		if _, ok := st.orgs[org.ID]; ok {
			return store.ErrAlreadyExists
		}
		st.orgs[org.ID] = org
		return nil
	})
}

func (r *organizationsRepo) UpdateOrganization(
	ctx context.Context,
	orgID string,
	patch domain.OrganizationPatch,
) error {
	return r.with(func(st *state) error {
		org, ok := st.orgs[orgID]
		if !ok {
			return store.ErrNotFound
		}

		if patch.Name != nil {
			org.Name = *patch.Name
		}
		if patch.Plan != nil {
			org.Plan = *patch.Plan
		}
		if patch.Status != nil {
			org.Status = *patch.Status
		}
		if patch.Settings != nil {
			org.Settings = patch.Settings
		}
		org.UpdatedAt = time.Now().UTC()

		st.orgs[orgID] = org
		return nil
	})
}

type membershipsRepo struct{ base }

func (r *membershipsRepo) GetUserOrgMembership(
	ctx context.Context,
	userID, orgID string,
) (domain.Membership, error) {
	var m domain.Membership
	err := r.with(func(st *state) error {
		found, ok := st.memberships[membershipKey(userID, orgID)]
		if !ok {
			return store.ErrNotFound
		}
		m = found
		return nil
	})
	return m, err
}

func (r *membershipsRepo) CreateMembership(ctx context.Context, m domain.Membership) error {
	return r.with(func(st *state) error {
		if _, ok := st.orgs[m.OrgID]; !ok {
			return store.ErrNotFound // no such organization
		}
		key := membershipKey(m.UserID, m.OrgID)
		if _, ok := st.memberships[key]; ok {
			return store.ErrAlreadyExists
		}
		st.memberships[key] = m
		return nil
	})
}

func (r *membershipsRepo) GetOrganizationMembers(
	ctx context.Context,
	orgID string,
) ([]domain.Membership, error) {
	var members []domain.Membership
	err := r.with(func(st *state) error {
		for _, m := range st.memberships {
			if m.OrgID == orgID {
				members = append(members, m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(members, func(i, j int) bool {
		if !members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].JoinedAt.Before(members[j].JoinedAt)
		}
		return members[i].UserID < members[j].UserID
	})
	return members, nil
}

func (r *membershipsRepo) UpdateUserRole(
	ctx context.Context,
	userID, orgID string,
	role domain.Role,
) error {
	return r.with(func(st *state) error {
		key := membershipKey(userID, orgID)
		m, ok := st.memberships[key]
		if !ok {
			return store.ErrNotFound
		}
		m.Role = role
		st.memberships[key] = m
		return nil
	})
}

func (r *membershipsRepo) RemoveUserFromOrganization(
	ctx context.Context,
	userID, orgID string,
) error {
	return r.with(func(st *state) error {
		key := membershipKey(userID, orgID)
		if _, ok := st.memberships[key]; !ok {
			return store.ErrNotFound
		}
		delete(st.memberships, key)
		return nil
	})
}

type inviteCodesRepo struct{ base }

func (r *inviteCodesRepo) CreateInviteCode(ctx context.Context, c domain.InviteCode) error {
	return r.with(func(st *state) error {
		if _, ok := st.orgs[c.OrgID]; !ok {
			return store.ErrNotFound
		}
		if _, ok := st.codes[c.Code]; ok {
			return store.ErrAlreadyExists
		}
		st.codes[c.Code] = c
		return nil
	})
}

func (r *inviteCodesRepo) GetInviteCodeByCode(
	ctx context.Context,
	code string,
) (domain.InviteCode, error) {
	var c domain.InviteCode
	err := r.with(func(st *state) error {
		found, ok := st.codes[code]
		if !ok {
			return store.ErrNotFound
		}
		c = found
		return nil
	})
	return c, err
}

func (r *inviteCodesRepo) GetInviteCodesByOrg(
	ctx context.Context,
	orgID string,
) ([]domain.InviteCode, error) {
	var codes []domain.InviteCode
	err := r.with(func(st *state) error {
		for _, c := range st.codes {
			if c.OrgID == orgID {
				codes = append(codes, c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(codes, func(i, j int) bool {
		if !codes[i].CreatedAt.Equal(codes[j].CreatedAt) {
			return codes[i].CreatedAt.After(codes[j].CreatedAt)
		}
		return codes[i].Code < codes[j].Code
	})
	return codes, nil
}

func (r *inviteCodesRepo) RevokeInviteCode(ctx context.Context, code string) error {
	return r.with(func(st *state) error {
		c, ok := st.codes[code]
		if !ok {
			return store.ErrNotFound
		}
		if c.Status == domain.InviteCodeRevoked {
			return nil // already revoked; no-op
		}
		c.Status = domain.InviteCodeRevoked
		c.UpdatedAt = time.Now().UTC()
		st.codes[code] = c
		return nil
	})
}

func (r *inviteCodesRepo) ConsumeInviteCodeUse(
	ctx context.Context,
	code string,
	now time.Time,
) error {
	return r.with(func(st *state) error {
		c, ok := st.codes[code]
		if !ok {
			return store.ErrNotFound
		}

		switch {
		case c.Status == domain.InviteCodeRevoked:
			return store.ErrCodeRevoked
		case c.Expired(now):
			return store.ErrCodeExpired
		case c.Status != domain.InviteCodeActive || c.Uses >= c.MaxUses:
			return store.ErrCodeExhausted
		}

		c.Uses++
		if c.Uses >= c.MaxUses {
			c.Status = domain.InviteCodeExhausted
		}
		c.UpdatedAt = now
		st.codes[code] = c
		return nil
	})
}

type invitationsRepo struct{ base }

func (r *invitationsRepo) CreateInvitation(ctx context.Context, inv domain.Invitation) error {
	return r.with(func(st *state) error {
		if _, ok := st.orgs[inv.OrgID]; !ok {
			return store.ErrNotFound
		}
		if _, ok := st.invitations[inv.ID]; ok {
			return store.ErrAlreadyExists
		}
		st.invitations[inv.ID] = inv
		return nil
	})
}

func (r *invitationsRepo) GetInvitationByID(
	ctx context.Context,
	id string,
) (domain.Invitation, error) {
	var inv domain.Invitation
	err := r.with(func(st *state) error {
		found, ok := st.invitations[id]
		if !ok {
			return store.ErrNotFound
		}
		inv = found
		return nil
	})
	return inv, err
}

func (r *invitationsRepo) GetInvitationsByEmail(
	ctx context.Context,
	email string,
) ([]domain.Invitation, error) {
	var invs []domain.Invitation
	err := r.with(func(st *state) error {
		for _, inv := range st.invitations {
			if inv.Email == email {
				invs = append(invs, inv)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(invs, func(i, j int) bool {
		if !invs[i].CreatedAt.Equal(invs[j].CreatedAt) {
			return invs[i].CreatedAt.Before(invs[j].CreatedAt)
		}
		return invs[i].ID < invs[j].ID
	})
	return invs, nil
}

func (r *invitationsRepo) MarkInvitationAccepted(
	ctx context.Context,
	id string,
	at time.Time,
) error {
	return r.with(func(st *state) error {
		inv, ok := st.invitations[id]
		if !ok {
			return store.ErrNotFound
		}
		if inv.AcceptedAt != nil {
			return nil // already accepted; no-op
		}
		inv.AcceptedAt = &at
		st.invitations[id] = inv
		return nil
	})
}

type activityRepo struct{ base }

func (r *activityRepo) LogActivity(ctx context.Context, ev domain.ActivityEvent) error {
	return r.with(func(st *state) error {
		st.activity = append(st.activity, ev)
		return nil
	})
}

// ActivityLog returns a copy of the recorded audit events, for tests.
func (s *Store) ActivityLog() []domain.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ActivityEvent(nil), s.st.activity...)
}

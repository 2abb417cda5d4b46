package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/tenancy/internal/tenancy/service"
	"github.com/aussiebroadwan/tenancy/internal/tenancy/store"
	"github.com/aussiebroadwan/tenancy/internal/tenancy/store/drivers/memory"
	"github.com/aussiebroadwan/tenancy/pkg/jwtx"
	"github.com/aussiebroadwan/tenancy/pkg/prefcache"
	"github.com/aussiebroadwan/tenancy/pkg/tenancysdk"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "router-test-secret"
	testIssuer = "test-issuer"
)

func newTestRouter(t *testing.T) (*Router, store.Store) {
	t.Helper()

	st := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	orgs := &service.OrgService{Store: st}
	invites := &service.InviteService{Store: st}
	sessions := &service.SessionService{
		Store:   st,
		Prefs:   prefcache.NewMemory(),
		Invites: invites,
	}

	r := NewRouter(
		jwtx.Verifier{Secret: []byte(testSecret), Issuer: testIssuer},
		"test",
		st,
		logger,
	)
	r.SessionService = sessions
	r.InviteService = invites
	r.OrgService = orgs
	r.ApplyRoutes()

	return r, st
}

// signToken mints a token carrying the manage scope, so the membership-role
// checks decide admin access in these tests. Scope enforcement itself is
// covered by TestAdminRoutesRequireManageScope.
func signToken(t *testing.T, subject, email string) string {
	t.Helper()

	signer := jwtx.Signer{Secret: []byte(testSecret), Issuer: testIssuer, TTL: time.Hour}
	token, err := signer.Sign(subject, email, []string{ScopeManage})
	require.NoError(t, err)
	return token
}

// doJSON performs one request against the router. The user id doubles as the
// forwarded client address so per-IP rate limits don't couple test users.
func doJSON(t *testing.T, r *Router, method, path, subject string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if subject != "" {
		req.Header.Set("Authorization", "Bearer "+signToken(t, subject, subject+"@example.com"))
		req.Header.Set("X-Forwarded-For", "203.0.113."+subject)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func createOrg(t *testing.T, r *Router, subject, name string) tenancysdk.Organization {
	t.Helper()

	rec := doJSON(t, r, http.MethodPost, "/v1/orgs", subject, tenancysdk.CreateOrgRequest{Name: name})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeBody[tenancysdk.Organization](t, rec)
}

func TestAuthenticationRequired(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/session/resolve", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
}

func TestSessionResolveAndSwitch(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	org := createOrg(t, r, "1", "First Org")

	rec := doJSON(t, r, http.MethodPost, "/v1/session/resolve", "1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	session := decodeBody[tenancysdk.SessionResponse](t, rec)
	require.Len(t, session.Organizations, 1)
	require.NotNil(t, session.Active)
	require.Equal(t, org.ID, session.Active.Organization.ID)
	require.Equal(t, "admin", session.Active.Role)
	require.True(t, session.Active.Subscription.Active)

	// Someone else cannot switch into an organization they don't belong to.
	rec = doJSON(t, r, http.MethodPost, "/v1/session/switch", "2",
		tenancysdk.SwitchRequest{OrgID: org.ID})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/v1/session/switch", "1",
		tenancysdk.SwitchRequest{OrgID: org.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	octx := decodeBody[tenancysdk.OrgContext](t, rec)
	require.Equal(t, "admin", octx.Role)

	rec = doJSON(t, r, http.MethodPost, "/v1/session/logout", "1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestOrgAccessControl(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	org := createOrg(t, r, "1", "Locked Org")

	// Non-members see neither the record nor its members.
	rec := doJSON(t, r, http.MethodGet, "/v1/orgs/"+org.ID, "2", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/v1/orgs/"+org.ID+"/members", "2", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Admit user 2 as staff via an invite code.
	rec = doJSON(t, r, http.MethodPost, "/v1/orgs/"+org.ID+"/invite-codes", "1",
		tenancysdk.CreateInviteCodeRequest{Role: "staff", MaxUses: 5})
	require.Equal(t, http.StatusCreated, rec.Code)
	code := decodeBody[tenancysdk.InviteCode](t, rec)

	rec = doJSON(t, r, http.MethodPost, "/v1/invite-codes/redeem", "2",
		tenancysdk.RedeemInviteCodeRequest{Code: code.Code})
	require.Equal(t, http.StatusOK, rec.Code)

	// Staff may read but not administer.
	rec = doJSON(t, r, http.MethodGet, "/v1/orgs/"+org.ID, "2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	name := "Renamed"
	rec = doJSON(t, r, http.MethodPatch, "/v1/orgs/"+org.ID, "2",
		tenancysdk.UpdateOrgRequest{Name: &name})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/v1/orgs/"+org.ID+"/invite-codes", "2", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Admins may.
	rec = doJSON(t, r, http.MethodPatch, "/v1/orgs/"+org.ID, "1",
		tenancysdk.UpdateOrgRequest{Name: &name})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Renamed", decodeBody[tenancysdk.Organization](t, rec).Name)

	rec = doJSON(t, r, http.MethodGet, "/v1/orgs/"+org.ID+"/invite-codes", "1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[[]tenancysdk.InviteCode](t, rec), 1)
}

func TestAdminRoutesRequireManageScope(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	org := createOrg(t, r, "1", "Scoped Org")

	// Even the org's admin is refused when their token lacks the scope.
	signer := jwtx.Signer{Secret: []byte(testSecret), Issuer: testIssuer, TTL: time.Hour}
	token, err := signer.Sign("1", "1@example.com", nil)
	require.NoError(t, err)

	name := "Renamed"
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(tenancysdk.UpdateOrgRequest{Name: &name}))

	req := httptest.NewRequest(http.MethodPatch, "/v1/orgs/"+org.ID, &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Forwarded-For", "203.0.113.1")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "insufficient_scope")

	// Unscoped reads stay open to members.
	rec = doJSON(t, r, http.MethodGet, "/v1/orgs/"+org.ID, "1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestInviteCodeLifecycle(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	org := createOrg(t, r, "1", "Org")

	rec := doJSON(t, r, http.MethodPost, "/v1/orgs/"+org.ID+"/invite-codes", "1",
		tenancysdk.CreateInviteCodeRequest{Role: "manager", MaxUses: 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	code := decodeBody[tenancysdk.InviteCode](t, rec)
	require.Equal(t, "active", code.Status)

	// First redemption takes the only slot.
	rec = doJSON(t, r, http.MethodPost, "/v1/invite-codes/redeem", "2",
		tenancysdk.RedeemInviteCodeRequest{Code: code.Code})
	require.Equal(t, http.StatusOK, rec.Code)
	redeemed := decodeBody[tenancysdk.RedeemInviteCodeResponse](t, rec)
	require.Equal(t, "manager", redeemed.Membership.Role)
	require.Equal(t, org.ID, redeemed.Membership.OrgID)

	// Repeat redemption by the same member is a no-op success.
	rec = doJSON(t, r, http.MethodPost, "/v1/invite-codes/redeem", "2",
		tenancysdk.RedeemInviteCodeRequest{Code: code.Code})
	require.Equal(t, http.StatusOK, rec.Code)

	// A third user finds the code exhausted.
	rec = doJSON(t, r, http.MethodPost, "/v1/invite-codes/redeem", "3",
		tenancysdk.RedeemInviteCodeRequest{Code: code.Code})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, tenancysdk.ErrorCodeCodeExhausted,
		decodeBody[tenancysdk.ErrorResponse](t, rec).Error)

	// Revocation requires admin rights on the code's organization.
	rec = doJSON(t, r, http.MethodPost, "/v1/invite-codes/revoke", "2",
		tenancysdk.RevokeInviteCodeRequest{Code: code.Code})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/v1/invite-codes/revoke", "1",
		tenancysdk.RevokeInviteCodeRequest{Code: code.Code})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/v1/invite-codes/redeem", "4",
		tenancysdk.RedeemInviteCodeRequest{Code: code.Code})
	require.Equal(t, http.StatusGone, rec.Code)
	require.Equal(t, tenancysdk.ErrorCodeCodeRevoked,
		decodeBody[tenancysdk.ErrorResponse](t, rec).Error)

	rec = doJSON(t, r, http.MethodPost, "/v1/invite-codes/redeem", "5",
		tenancysdk.RedeemInviteCodeRequest{Code: "AAAAA-AAAAA"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMemberManagementEndpoints(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	org := createOrg(t, r, "1", "Org")

	rec := doJSON(t, r, http.MethodPost, "/v1/orgs/"+org.ID+"/invite-codes", "1",
		tenancysdk.CreateInviteCodeRequest{Role: "staff", MaxUses: 5})
	require.Equal(t, http.StatusCreated, rec.Code)
	code := decodeBody[tenancysdk.InviteCode](t, rec)

	rec = doJSON(t, r, http.MethodPost, "/v1/invite-codes/redeem", "2",
		tenancysdk.RedeemInviteCodeRequest{Code: code.Code})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/v1/orgs/"+org.ID+"/members", "2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[[]tenancysdk.Membership](t, rec), 2)

	// Staff cannot manage members.
	rec = doJSON(t, r, http.MethodPut, "/v1/orgs/"+org.ID+"/members/1/role", "2",
		tenancysdk.MemberRoleRequest{Role: "staff"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, r, http.MethodPut, "/v1/orgs/"+org.ID+"/members/2/role", "1",
		tenancysdk.MemberRoleRequest{Role: "manager"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, http.MethodPut, "/v1/orgs/"+org.ID+"/members/ghost/role", "1",
		tenancysdk.MemberRoleRequest{Role: "staff"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodDelete, "/v1/orgs/"+org.ID+"/members/2", "1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The removed member loses access.
	rec = doJSON(t, r, http.MethodGet, "/v1/orgs/"+org.ID+"/members", "2", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestInvitationFlow(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	org := createOrg(t, r, "1", "Org")

	rec := doJSON(t, r, http.MethodPost, "/v1/orgs/"+org.ID+"/invitations", "1",
		tenancysdk.InviteUserRequest{Email: "2@example.com", Role: "manager"})
	require.Equal(t, http.StatusCreated, rec.Code)
	inv := decodeBody[tenancysdk.Invitation](t, rec)
	require.Equal(t, "2@example.com", inv.Email)
	require.Nil(t, inv.AcceptedAt)

	// The invitee's next session resolve sweeps the invitation in.
	rec = doJSON(t, r, http.MethodPost, "/v1/session/resolve", "2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	session := decodeBody[tenancysdk.SessionResponse](t, rec)
	require.Len(t, session.Invitations, 1)
	require.Empty(t, session.Invitations[0].Error)
	require.NotNil(t, session.Active)
	require.Equal(t, org.ID, session.Active.Organization.ID)
	require.Equal(t, "manager", session.Active.Role)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decodeBody[tenancysdk.HealthResponse](t, rec).Status)

	rec = doJSON(t, r, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[tenancysdk.HealthResponse](t, rec)
	require.Equal(t, "ok", body.Status)
	require.NotNil(t, body.Checks)
	require.Equal(t, "ok", body.Checks.Database)
}

package tenancysdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a thin HTTP client for the tenancy service. Token carries the
// bearer access token issued by the upstream auth service; the tenancy
// service extracts the caller's identity from it.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
}

// NewClient creates a client for the service at baseURL, authenticating with
// the given bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Token:      token,
	}
}

// do performs one JSON round trip. A nil in skips the request body; a nil out
// discards the response body. Non-2xx responses come back as *APIError.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: ErrorCodeServerError}
		var er ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err == nil && er.Error != "" {
			apiErr.Code = er.Error
			apiErr.Description = er.ErrorDescription
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// ResolveSession resolves the caller's session: organizations, the invitation
// sweep outcome, and the auto-selected active organization if any.
func (c *Client) ResolveSession(ctx context.Context) (SessionResponse, error) {
	var out SessionResponse
	err := c.do(ctx, http.MethodPost, "/v1/session/resolve", nil, &out)
	return out, err
}

// SwitchOrganization makes orgID the caller's active organization.
func (c *Client) SwitchOrganization(ctx context.Context, orgID string) (OrgContext, error) {
	var out OrgContext
	err := c.do(ctx, http.MethodPost, "/v1/session/switch", SwitchRequest{OrgID: orgID}, &out)
	return out, err
}

// RefreshOrganization re-evaluates the caller's role and the organization's
// subscription without changing the cached selection.
func (c *Client) RefreshOrganization(ctx context.Context, orgID string) (OrgContext, error) {
	var out OrgContext
	err := c.do(ctx, http.MethodPost, "/v1/session/refresh", RefreshRequest{OrgID: orgID}, &out)
	return out, err
}

// Logout forgets the caller's cached organization selection.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/session/logout", nil, nil)
}

// CreateOrganization creates a new trial organization with the caller as its
// first admin.
func (c *Client) CreateOrganization(ctx context.Context, name string) (Organization, error) {
	var out Organization
	err := c.do(ctx, http.MethodPost, "/v1/orgs", CreateOrgRequest{Name: name}, &out)
	return out, err
}

// GetOrganization fetches one organization the caller belongs to.
func (c *Client) GetOrganization(ctx context.Context, orgID string) (Organization, error) {
	var out Organization
	err := c.do(ctx, http.MethodGet, "/v1/orgs/"+url.PathEscape(orgID), nil, &out)
	return out, err
}

// UpdateOrganization applies a partial update. Admin only.
func (c *Client) UpdateOrganization(ctx context.Context, orgID string, patch UpdateOrgRequest) (Organization, error) {
	var out Organization
	err := c.do(ctx, http.MethodPatch, "/v1/orgs/"+url.PathEscape(orgID), patch, &out)
	return out, err
}

// ListMembers lists an organization's members.
func (c *Client) ListMembers(ctx context.Context, orgID string) ([]Membership, error) {
	var out []Membership
	err := c.do(ctx, http.MethodGet, "/v1/orgs/"+url.PathEscape(orgID)+"/members", nil, &out)
	return out, err
}

// UpdateMemberRole changes a member's role. Admin only.
func (c *Client) UpdateMemberRole(ctx context.Context, orgID, userID, role string) error {
	path := "/v1/orgs/" + url.PathEscape(orgID) + "/members/" + url.PathEscape(userID) + "/role"
	return c.do(ctx, http.MethodPut, path, MemberRoleRequest{Role: role}, nil)
}

// RemoveMember removes a member from an organization. Admin only.
func (c *Client) RemoveMember(ctx context.Context, orgID, userID string) error {
	path := "/v1/orgs/" + url.PathEscape(orgID) + "/members/" + url.PathEscape(userID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// InviteUser records a targeted email invitation. Admin only.
func (c *Client) InviteUser(ctx context.Context, orgID, email, role string) (Invitation, error) {
	var out Invitation
	err := c.do(ctx, http.MethodPost, "/v1/orgs/"+url.PathEscape(orgID)+"/invitations",
		InviteUserRequest{Email: email, Role: role}, &out)
	return out, err
}

// CreateInviteCode mints a shared invite code. Admin only.
func (c *Client) CreateInviteCode(ctx context.Context, orgID, role string, maxUses int) (InviteCode, error) {
	var out InviteCode
	err := c.do(ctx, http.MethodPost, "/v1/orgs/"+url.PathEscape(orgID)+"/invite-codes",
		CreateInviteCodeRequest{Role: role, MaxUses: maxUses}, &out)
	return out, err
}

// ListInviteCodes lists an organization's invite codes. Admin only.
func (c *Client) ListInviteCodes(ctx context.Context, orgID string) ([]InviteCode, error) {
	var out []InviteCode
	err := c.do(ctx, http.MethodGet, "/v1/orgs/"+url.PathEscape(orgID)+"/invite-codes", nil, &out)
	return out, err
}

// RevokeInviteCode revokes a shared invite code. Admin only.
func (c *Client) RevokeInviteCode(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodPost, "/v1/invite-codes/revoke", RevokeInviteCodeRequest{Code: code}, nil)
}

// RedeemInviteCode consumes one slot of a shared code, admitting the caller
// to the code's organization.
func (c *Client) RedeemInviteCode(ctx context.Context, code string) (RedeemInviteCodeResponse, error) {
	var out RedeemInviteCodeResponse
	err := c.do(ctx, http.MethodPost, "/v1/invite-codes/redeem", RedeemInviteCodeRequest{Code: code}, &out)
	return out, err
}

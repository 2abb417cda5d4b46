package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/tenancy/internal/tenancy/service"
	"github.com/aussiebroadwan/tenancy/pkg/httpx"
	"github.com/aussiebroadwan/tenancy/pkg/slogx"
	"github.com/aussiebroadwan/tenancy/pkg/tenancysdk"
)

// requireOrgAdmin resolves the caller's effective role in orgID and writes
// the failure response unless that role may manage members. Membership, not
// the bearer token, is what grants admin rights on an organization.
func requireOrgAdmin(
	w http.ResponseWriter,
	r *http.Request,
	orgs *service.OrgService,
	orgID string,
) (userID string, ok bool) {
	ctx := r.Context()

	userID = httpx.UserIDFromCtx(ctx)
	if userID == "" {
		httpx.WriteJSON(w, http.StatusUnauthorized, tenancysdk.ErrorResponse{
			Error:            tenancysdk.ErrorCodeUnauthorized,
			ErrorDescription: "Authentication required",
		})
		return "", false
	}

	role, err := orgs.ResolveMemberRole(ctx, userID, orgID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotMember):
			httpx.WriteJSON(w, http.StatusForbidden, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeForbidden,
				ErrorDescription: "Not a member of this organization",
			})
		case errors.Is(err, service.ErrOrgNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeNotFound,
				ErrorDescription: "Organization not found",
			})
		default:
			slogx.FromContext(ctx).Error("failed to resolve member role", "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeServerError,
				ErrorDescription: "Failed to resolve role",
			})
		}
		return "", false
	}

	if !role.CanManageMembers() {
		httpx.WriteJSON(w, http.StatusForbidden, tenancysdk.ErrorResponse{
			Error:            tenancysdk.ErrorCodeForbidden,
			ErrorDescription: "Admin role required",
		})
		return "", false
	}

	return userID, true
}

// requireOrgMember writes the failure response unless the caller belongs to
// orgID. Used for read endpoints open to every role tier.
func requireOrgMember(
	w http.ResponseWriter,
	r *http.Request,
	orgs *service.OrgService,
	orgID string,
) (userID string, ok bool) {
	ctx := r.Context()

	userID = httpx.UserIDFromCtx(ctx)
	if userID == "" {
		httpx.WriteJSON(w, http.StatusUnauthorized, tenancysdk.ErrorResponse{
			Error:            tenancysdk.ErrorCodeUnauthorized,
			ErrorDescription: "Authentication required",
		})
		return "", false
	}

	if _, err := orgs.ResolveMemberRole(ctx, userID, orgID); err != nil {
		switch {
		case errors.Is(err, service.ErrNotMember):
			httpx.WriteJSON(w, http.StatusForbidden, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeForbidden,
				ErrorDescription: "Not a member of this organization",
			})
		case errors.Is(err, service.ErrOrgNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeNotFound,
				ErrorDescription: "Organization not found",
			})
		default:
			slogx.FromContext(ctx).Error("failed to resolve member role", "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeServerError,
				ErrorDescription: "Failed to resolve role",
			})
		}
		return "", false
	}

	return userID, true
}

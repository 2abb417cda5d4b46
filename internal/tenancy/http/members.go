package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/tenancy/internal/tenancy/domain"
	"github.com/aussiebroadwan/tenancy/internal/tenancy/service"
	"github.com/aussiebroadwan/tenancy/pkg/httpx"
	"github.com/aussiebroadwan/tenancy/pkg/slogx"
	"github.com/aussiebroadwan/tenancy/pkg/tenancysdk"
)

type MembersHandler struct {
	Orgs *service.OrgService
}

// HandleList returns the organization's members. Open to every member.
func (h *MembersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := r.PathValue("id")

	if _, ok := requireOrgMember(w, r, h.Orgs, orgID); !ok {
		return
	}

	members, err := h.Orgs.ListMembers(ctx, orgID)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list members", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, tenancysdk.ErrorResponse{
			Error:            tenancysdk.ErrorCodeServerError,
			ErrorDescription: "Failed to list members",
		})
		return
	}

	out := make([]tenancysdk.Membership, 0, len(members))
	for _, m := range members {
		out = append(out, toSDKMembership(m))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleRole changes a member's role. Admin only.
func (h *MembersHandler) HandleRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	orgID := r.PathValue("id")
	memberID := r.PathValue("userID")

	actorID, ok := requireOrgAdmin(w, r, h.Orgs, orgID)
	if !ok {
		return
	}

	var req tenancysdk.MemberRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Role == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, tenancysdk.ErrorResponse{
			Error:            tenancysdk.ErrorCodeInvalidRequest,
			ErrorDescription: "role is required",
		})
		return
	}

	err := h.Orgs.UpdateMemberRole(ctx, orgID, memberID, domain.Role(req.Role), actorID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRole):
			httpx.WriteJSON(w, http.StatusBadRequest, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeInvalidRequest,
				ErrorDescription: "Unknown role",
			})
		case errors.Is(err, service.ErrMemberNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeNotFound,
				ErrorDescription: "Member not found",
			})
		default:
			log.Error("failed to update member role", "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeServerError,
				ErrorDescription: "Failed to update member role",
			})
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRemove removes a member from the organization. Admin only.
func (h *MembersHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	orgID := r.PathValue("id")
	memberID := r.PathValue("userID")

	actorID, ok := requireOrgAdmin(w, r, h.Orgs, orgID)
	if !ok {
		return
	}

	if err := h.Orgs.RemoveMember(ctx, orgID, memberID, actorID); err != nil {
		if errors.Is(err, service.ErrMemberNotFound) {
			httpx.WriteJSON(w, http.StatusNotFound, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeNotFound,
				ErrorDescription: "Member not found",
			})
			return
		}
		log.Error("failed to remove member", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, tenancysdk.ErrorResponse{
			Error:            tenancysdk.ErrorCodeServerError,
			ErrorDescription: "Failed to remove member",
		})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

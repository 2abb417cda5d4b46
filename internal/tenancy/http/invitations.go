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

type InvitationsHandler struct {
	Orgs *service.OrgService
}

// HandleCreate records a targeted email invitation. Admin only. The invitee
// is admitted automatically the next time they log in; no email is sent from
// here.
func (h *InvitationsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	orgID := r.PathValue("id")

	actorID, ok := requireOrgAdmin(w, r, h.Orgs, orgID)
	if !ok {
		return
	}

	var req tenancysdk.InviteUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, tenancysdk.ErrorResponse{
			Error:            tenancysdk.ErrorCodeInvalidRequest,
			ErrorDescription: "Invalid JSON body",
		})
		return
	}

	inv, err := h.Orgs.InviteUser(ctx, orgID, req.Email, domain.Role(req.Role), actorID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidOrgRequest):
			httpx.WriteJSON(w, http.StatusBadRequest, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeInvalidRequest,
				ErrorDescription: "email is required",
			})
		case errors.Is(err, service.ErrInvalidRole):
			httpx.WriteJSON(w, http.StatusBadRequest, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeInvalidRequest,
				ErrorDescription: "Unknown role",
			})
		case errors.Is(err, service.ErrOrgNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeNotFound,
				ErrorDescription: "Organization not found",
			})
		default:
			log.Error("failed to create invitation", "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeServerError,
				ErrorDescription: "Failed to create invitation",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toSDKInvitation(inv))
}

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

type OrgsHandler struct {
	Orgs *service.OrgService
}

// HandleCreate creates a new trial organization with the caller as its first
// admin.
func (h *OrgsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req tenancysdk.CreateOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, tenancysdk.ErrorResponse{
			Error:            tenancysdk.ErrorCodeInvalidRequest,
			ErrorDescription: "Invalid JSON body",
		})
		return
	}

	org, err := h.Orgs.CreateOrganization(ctx,
		httpx.UserIDFromCtx(ctx), httpx.EmailFromCtx(ctx), req.Name)
	if err != nil {
		if errors.Is(err, service.ErrInvalidOrgRequest) {
			httpx.WriteJSON(w, http.StatusBadRequest, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeInvalidRequest,
				ErrorDescription: "name is required",
			})
			return
		}
		log.Error("failed to create organization", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, tenancysdk.ErrorResponse{
			Error:            tenancysdk.ErrorCodeServerError,
			ErrorDescription: "Failed to create organization",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toSDKOrganization(org))
}

// HandleGet returns one organization the caller belongs to.
func (h *OrgsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := r.PathValue("id")

	if _, ok := requireOrgMember(w, r, h.Orgs, orgID); !ok {
		return
	}

	org, err := h.Orgs.GetOrganization(ctx, orgID)
	if err != nil {
		if errors.Is(err, service.ErrOrgNotFound) {
			httpx.WriteJSON(w, http.StatusNotFound, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeNotFound,
				ErrorDescription: "Organization not found",
			})
			return
		}
		slogx.FromContext(ctx).Error("failed to fetch organization", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, tenancysdk.ErrorResponse{
			Error:            tenancysdk.ErrorCodeServerError,
			ErrorDescription: "Failed to fetch organization",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toSDKOrganization(org))
}

// HandlePatch applies a partial update to an organization. Admin only.
func (h *OrgsHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	orgID := r.PathValue("id")

	userID, ok := requireOrgAdmin(w, r, h.Orgs, orgID)
	if !ok {
		return
	}

	var req tenancysdk.UpdateOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, tenancysdk.ErrorResponse{
			Error:            tenancysdk.ErrorCodeInvalidRequest,
			ErrorDescription: "Invalid JSON body",
		})
		return
	}

	patch := domain.OrganizationPatch{
		Name:     req.Name,
		Status:   req.Status,
		Settings: req.Settings,
	}
	if req.Plan != nil {
		plan := domain.Plan(*req.Plan)
		patch.Plan = &plan
	}

	if err := h.Orgs.UpdateOrganization(ctx, orgID, patch, userID); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidOrgRequest):
			httpx.WriteJSON(w, http.StatusBadRequest, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeInvalidRequest,
				ErrorDescription: "Invalid organization patch",
			})
		case errors.Is(err, service.ErrOrgNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeNotFound,
				ErrorDescription: "Organization not found",
			})
		default:
			log.Error("failed to update organization", "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeServerError,
				ErrorDescription: "Failed to update organization",
			})
		}
		return
	}

	org, err := h.Orgs.GetOrganization(ctx, orgID)
	if err != nil {
		log.Error("failed to fetch organization after update", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, tenancysdk.ErrorResponse{
			Error:            tenancysdk.ErrorCodeServerError,
			ErrorDescription: "Failed to fetch organization",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toSDKOrganization(org))
}

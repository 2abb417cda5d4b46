package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/tenancy/internal/tenancy/domain"
	"github.com/aussiebroadwan/tenancy/internal/tenancy/service"
	"github.com/aussiebroadwan/tenancy/pkg/codex"
	"github.com/aussiebroadwan/tenancy/pkg/httpx"
	"github.com/aussiebroadwan/tenancy/pkg/slogx"
	"github.com/aussiebroadwan/tenancy/pkg/tenancysdk"
)

type InviteCodesHandler struct {
	Orgs    *service.OrgService
	Invites *service.InviteService
}

// HandleCreate mints a shared invite code for the organization. Admin only.
func (h *InviteCodesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	orgID := r.PathValue("id")

	actorID, ok := requireOrgAdmin(w, r, h.Orgs, orgID)
	if !ok {
		return
	}

	var req tenancysdk.CreateInviteCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, tenancysdk.ErrorResponse{
			Error:            tenancysdk.ErrorCodeInvalidRequest,
			ErrorDescription: "Invalid JSON body",
		})
		return
	}

	c, err := h.Invites.CreateInviteCode(ctx, orgID, domain.Role(req.Role), req.MaxUses, actorID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInviteRequest):
			httpx.WriteJSON(w, http.StatusBadRequest, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeInvalidRequest,
				ErrorDescription: "max_uses must be at least 1",
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
			log.Error("failed to create invite code", "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeServerError,
				ErrorDescription: "Failed to create invite code",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toSDKInviteCode(c))
}

// HandleList lists the organization's invite codes. Admin only: codes are
// live credentials.
func (h *InviteCodesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := r.PathValue("id")

	if _, ok := requireOrgAdmin(w, r, h.Orgs, orgID); !ok {
		return
	}

	codes, err := h.Invites.ListInviteCodes(ctx, orgID)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list invite codes", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, tenancysdk.ErrorResponse{
			Error:            tenancysdk.ErrorCodeServerError,
			ErrorDescription: "Failed to list invite codes",
		})
		return
	}

	out := make([]tenancysdk.InviteCode, 0, len(codes))
	for _, c := range codes {
		out = append(out, toSDKInviteCode(c))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleRevoke revokes a code. Admin of the code's organization only.
func (h *InviteCodesHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req tenancysdk.RevokeInviteCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, tenancysdk.ErrorResponse{
			Error:            tenancysdk.ErrorCodeInvalidRequest,
			ErrorDescription: "code is required",
		})
		return
	}

	// The code determines which organization's admin rights are needed.
	c, err := h.Invites.Store.InviteCodes().GetInviteCodeByCode(ctx, codex.Normalize(req.Code))
	if err != nil {
		httpx.WriteJSON(w, http.StatusNotFound, tenancysdk.ErrorResponse{
			Error:            tenancysdk.ErrorCodeCodeNotFound,
			ErrorDescription: "Invite code not found",
		})
		return
	}
	actorID, ok := requireOrgAdmin(w, r, h.Orgs, c.OrgID)
	if !ok {
		return
	}

	if err := h.Invites.RevokeInviteCode(ctx, req.Code, actorID); err != nil {
		if errors.Is(err, service.ErrCodeNotFound) {
			httpx.WriteJSON(w, http.StatusNotFound, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeCodeNotFound,
				ErrorDescription: "Invite code not found",
			})
			return
		}
		log.Error("failed to revoke invite code", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, tenancysdk.ErrorResponse{
			Error:            tenancysdk.ErrorCodeServerError,
			ErrorDescription: "Failed to revoke invite code",
		})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRedeem consumes one slot of a shared code for the caller. Any
// authenticated user may redeem; the code itself is the credential.
func (h *InviteCodesHandler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req tenancysdk.RedeemInviteCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, tenancysdk.ErrorResponse{
			Error:            tenancysdk.ErrorCodeInvalidRequest,
			ErrorDescription: "code is required",
		})
		return
	}

	m, err := h.Invites.RedeemInviteCode(ctx,
		httpx.UserIDFromCtx(ctx), httpx.EmailFromCtx(ctx), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCodeNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeCodeNotFound,
				ErrorDescription: "Invite code not found",
			})
		case errors.Is(err, service.ErrCodeRevoked):
			httpx.WriteJSON(w, http.StatusGone, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeCodeRevoked,
				ErrorDescription: "Invite code has been revoked",
			})
		case errors.Is(err, service.ErrCodeExpired):
			httpx.WriteJSON(w, http.StatusGone, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeCodeExpired,
				ErrorDescription: "Invite code has expired",
			})
		case errors.Is(err, service.ErrCodeExhausted):
			httpx.WriteJSON(w, http.StatusConflict, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeCodeExhausted,
				ErrorDescription: "Invite code has no remaining uses",
			})
		case errors.Is(err, service.ErrInvalidInviteRequest):
			httpx.WriteJSON(w, http.StatusBadRequest, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeInvalidRequest,
				ErrorDescription: "code is required",
			})
		default:
			log.Error("failed to redeem invite code", "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeServerError,
				ErrorDescription: "Failed to redeem invite code",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tenancysdk.RedeemInviteCodeResponse{
		Membership: toSDKMembership(m),
	})
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/tenancy/internal/tenancy/service"
	"github.com/aussiebroadwan/tenancy/pkg/httpx"
	"github.com/aussiebroadwan/tenancy/pkg/slogx"
	"github.com/aussiebroadwan/tenancy/pkg/tenancysdk"
)

type SessionHandler struct {
	Sessions *service.SessionService
}

// HandleResolve builds the caller's login session: their organizations, the
// outcome of the pending-invitation sweep, and the auto-selected active
// organization when the choice is unambiguous.
func (h *SessionHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	email := httpx.EmailFromCtx(ctx)

	session, err := h.Sessions.ResolveSession(ctx, userID, email)
	if err != nil {
		log.Error("failed to resolve session", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, tenancysdk.ErrorResponse{
			Error:            tenancysdk.ErrorCodeServerError,
			ErrorDescription: "Failed to resolve session",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toSDKSession(session))
}

// HandleSwitch makes the requested organization the caller's active one.
func (h *SessionHandler) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req tenancysdk.SwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrgID == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, tenancysdk.ErrorResponse{
			Error:            tenancysdk.ErrorCodeInvalidRequest,
			ErrorDescription: "org_id is required",
		})
		return
	}

	octx, err := h.Sessions.SwitchOrganization(ctx, httpx.UserIDFromCtx(ctx), req.OrgID)
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
			log.Error("failed to switch organization", "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeServerError,
				ErrorDescription: "Failed to switch organization",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toSDKOrgContext(octx))
}

// HandleRefresh re-evaluates the caller's role and the organization's
// subscription from fresh store reads.
func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req tenancysdk.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrgID == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, tenancysdk.ErrorResponse{
			Error:            tenancysdk.ErrorCodeInvalidRequest,
			ErrorDescription: "org_id is required",
		})
		return
	}

	octx, err := h.Sessions.RefreshOrganization(ctx, httpx.UserIDFromCtx(ctx), req.OrgID)
	if err != nil {
		if errors.Is(err, service.ErrOrgNotFound) {
			httpx.WriteJSON(w, http.StatusNotFound, tenancysdk.ErrorResponse{
				Error:            tenancysdk.ErrorCodeNotFound,
				ErrorDescription: "Organization not found",
			})
			return
		}
		log.Error("failed to refresh organization", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, tenancysdk.ErrorResponse{
			Error:            tenancysdk.ErrorCodeServerError,
			ErrorDescription: "Failed to refresh organization",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toSDKOrgContext(octx))
}

// HandleLogout forgets the caller's cached organization selection.
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Sessions.Logout(ctx, httpx.UserIDFromCtx(ctx)); err != nil {
		slogx.FromContext(ctx).Error("failed to log out", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, tenancysdk.ErrorResponse{
			Error:            tenancysdk.ErrorCodeServerError,
			ErrorDescription: "Failed to log out",
		})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

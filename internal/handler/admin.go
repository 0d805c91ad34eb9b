package handler

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"wot-clan-dashboard/internal/middleware"
	"wot-clan-dashboard/internal/model"
	"wot-clan-dashboard/internal/repository"
	"wot-clan-dashboard/internal/service"
	"wot-clan-dashboard/pkg/apierror"
	"wot-clan-dashboard/pkg/response"

	"github.com/go-chi/chi/v5"
)

// AdminHandler handles commander-only endpoints.
type AdminHandler struct {
	users repository.UserRepository
	sync  *service.SyncService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(users repository.UserRepository, sync *service.SyncService) *AdminHandler {
	return &AdminHandler{users: users, sync: sync}
}

// Pending handles GET /api/v1/admin/pending: users still on the member role,
// i.e. candidates for promotion.
func (h *AdminHandler) Pending(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListByRole(r.Context(), model.RoleMember)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to list users"))
		return
	}
	if users == nil {
		users = []model.User{}
	}
	response.OK(w, map[string]interface{}{"pending": users})
}

// Promote handles POST /api/v1/admin/promote/{user_id}.
func (h *AdminHandler) Promote(w http.ResponseWriter, r *http.Request) {
	commander := middleware.UserFromContext(r.Context())
	if commander == nil {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	userID, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
	if err != nil {
		response.Error(w, apierror.BadRequest("invalid user id"))
		return
	}

	ctx := r.Context()
	target, err := h.users.GetByID(ctx, userID)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to load user"))
		return
	}
	if target == nil {
		response.Error(w, apierror.NotFound("user not found"))
		return
	}
	if target.Role == model.RoleCommander {
		response.Error(w, apierror.Conflict("user is already a commander"))
		return
	}

	if err := h.users.UpdateRole(ctx, userID, model.RoleCommander); err != nil {
		response.Error(w, apierror.InternalError("failed to update role"))
		return
	}

	// Audit is best-effort: a failed insert must not fail the promotion.
	audit := model.RoleChange{
		UserID:    userID,
		OldRole:   target.Role,
		NewRole:   model.RoleCommander,
		ChangedBy: commander.Username,
		TS:        time.Now().UTC(),
	}
	if err := h.users.InsertRoleChange(ctx, audit); err != nil {
		log.Printf("[AdminHandler] Failed to write role change audit: %v", err)
	}

	response.OK(w, map[string]interface{}{
		"user_id":     userID,
		"old_role":    target.Role,
		"new_role":    model.RoleCommander,
		"promoted_by": commander.Username,
	})
}

// Rehydrate handles POST /api/v1/admin/rehydrate: backfill garage metadata
// columns from the on-disk vehicle cache.
func (h *AdminHandler) Rehydrate(w http.ResponseWriter, r *http.Request) {
	updated, err := h.sync.Rehydrate(r.Context())
	if err != nil {
		response.Error(w, apierror.InternalError("rehydrate failed"))
		return
	}
	response.OK(w, map[string]interface{}{"updated": updated})
}

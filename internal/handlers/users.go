package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gasdash-backend/internal/identity"
	"gasdash-backend/internal/models"
	"gasdash-backend/pkg/utils"
)

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateUserStatus activates or deactivates an account
func UpdateUserStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		var req UpdateStatusRequest
		if !decode(w, r, &req) {
			return
		}
		status := models.UserStatus(req.Status)
		if status != models.UserStatusActive && status != models.UserStatusInactive {
			utils.RespondError(w, http.StatusBadRequest, "Status must be 'active' or 'inactive'")
			return
		}
		id := chi.URLParam(r, "id")
		if err := ws.Users.UpdateStatus(r.Context(), id, status); err != nil {
			utils.RespondErr(w, err)
			return
		}
		log.Printf("✅ User %s status → %s", id, status)
		respondRecord(w, pickUsers(ws), id)
	}
}

// UpdateUserRole changes an account's role
func UpdateUserRole() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		var req UpdateRoleRequest
		if !decode(w, r, &req) {
			return
		}
		if !models.ValidRole(req.Role) {
			log.Printf("❌ Invalid role: %s", req.Role)
			utils.RespondError(w, http.StatusBadRequest, "Role must be 'admin', 'manager', 'driver', or 'customer'")
			return
		}
		id := chi.URLParam(r, "id")
		if err := ws.Users.UpdateRole(r.Context(), id, models.Role(req.Role)); err != nil {
			utils.RespondErr(w, err)
			return
		}
		log.Printf("✅ User %s role → %s", id, req.Role)
		respondRecord(w, pickUsers(ws), id)
	}
}

// RevokeUser ends every live session of the account, on every instance
// subscribed to the revocation channel
func RevokeUser(provider identity.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Printf("🚫 REQUEST: revoke sessions of %s", id)
		if err := provider.Revoke(r.Context(), id); err != nil {
			utils.RespondErr(w, err)
			return
		}
		log.Println("✅ Sessions revoked")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "id": id})
	}
}

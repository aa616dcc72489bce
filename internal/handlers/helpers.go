package handlers

import (
	"encoding/json"
	"net/http"

	"gasdash-backend/internal/middleware"
	"gasdash-backend/internal/workspace"
	"gasdash-backend/pkg/utils"
)

// decode reads a JSON body into dst and answers 400 on failure
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// workspaceOf returns the workspace resolved by middleware.Auth
func workspaceOf(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ws, ok := middleware.WorkspaceFrom(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	return ws, true
}

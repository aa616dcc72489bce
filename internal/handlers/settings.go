package handlers

import (
	"net/http"

	"gasdash-backend/pkg/utils"
)

type ThemeRequest struct {
	DarkMode         *bool  `json:"darkMode,omitempty"`
	SidebarCollapsed *bool  `json:"sidebarCollapsed,omitempty"`
	Toggle           string `json:"toggle,omitempty"` // "darkMode" or "sidebar"
}

type DeviceRequest struct {
	Token string `json:"token"`
}

// GetTheme returns the workspace's display preferences
func GetTheme() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		utils.RespondJSON(w, http.StatusOK, ws.Session.Snapshot().Theme)
	}
}

// UpdateTheme sets or toggles dark mode and the collapsed sidebar
func UpdateTheme() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		var req ThemeRequest
		if !decode(w, r, &req) {
			return
		}
		switch req.Toggle {
		case "":
		case "darkMode":
			ws.Session.ToggleDarkMode()
		case "sidebar":
			ws.Session.ToggleSidebar()
		default:
			utils.RespondError(w, http.StatusBadRequest, "toggle must be 'darkMode' or 'sidebar'")
			return
		}
		if req.DarkMode != nil {
			ws.Session.SetDarkMode(*req.DarkMode)
		}
		if req.SidebarCollapsed != nil {
			ws.Session.SetSidebarCollapsed(*req.SidebarCollapsed)
		}
		utils.RespondJSON(w, http.StatusOK, ws.Session.Snapshot().Theme)
	}
}

// RegisterDevice stores the caller's FCM registration token
func RegisterDevice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		var req DeviceRequest
		if !decode(w, r, &req) {
			return
		}
		if req.Token == "" {
			utils.RespondError(w, http.StatusBadRequest, "token is required")
			return
		}
		if err := ws.Session.RegisterDevice(r.Context(), req.Token); err != nil {
			utils.RespondErr(w, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

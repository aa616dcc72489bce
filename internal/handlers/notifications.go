package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gasdash-backend/internal/models"
	"gasdash-backend/internal/resource"
	"gasdash-backend/pkg/utils"
)

type NotificationsResponse struct {
	resource.State[models.Notification]
	UnreadCount int `json:"unreadCount"`
}

// ListNotifications returns the principal's inbox, newest first
func ListNotifications() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		utils.RespondJSON(w, http.StatusOK, NotificationsResponse{
			State:       ws.Notifications.State(),
			UnreadCount: ws.Notifications.UnreadCount(),
		})
	}
}

// SendNotification stores a notification. Admins and managers may address
// any user; everyone else only themselves.
func SendNotification() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		var note models.Notification
		if !decode(w, r, &note) {
			return
		}
		p := ws.Principal()
		if note.UserID == "" {
			note.UserID = p.ID
		}
		if note.UserID != p.ID && !p.HasRole(models.RoleAdmin, models.RoleManager) {
			utils.RespondErr(w, resource.ErrForbidden)
			return
		}
		if note.Title == "" {
			utils.RespondError(w, http.StatusBadRequest, "Title is required")
			return
		}
		created, err := ws.Notifications.Add(r.Context(), note)
		if err != nil {
			utils.RespondErr(w, err)
			return
		}
		utils.RespondJSON(w, http.StatusCreated, created)
	}
}

// MarkNotificationRead flips one notification of the principal's inbox
func MarkNotificationRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		id := chi.URLParam(r, "id")
		if _, found := ws.Notifications.Find(id); !found {
			utils.RespondError(w, http.StatusNotFound, "Notification not found")
			return
		}
		if err := ws.Notifications.MarkAsRead(r.Context(), id); err != nil {
			utils.RespondErr(w, err)
			return
		}
		respondRecord(w, pickNotifications(ws), id)
	}
}

// MarkAllNotificationsRead flips every unread notification in the inbox
func MarkAllNotificationsRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		if err := ws.Notifications.MarkAllAsRead(r.Context()); err != nil {
			utils.RespondErr(w, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, NotificationsResponse{
			State:       ws.Notifications.State(),
			UnreadCount: ws.Notifications.UnreadCount(),
		})
	}
}

package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"gasdash-backend/internal/identity"
	"gasdash-backend/internal/middleware"
	"gasdash-backend/internal/models"
	"gasdash-backend/internal/session"
	"gasdash-backend/internal/workspace"
	"gasdash-backend/pkg/utils"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
}

type LoginResponse struct {
	OK    bool         `json:"ok"`
	Token string       `json:"token,omitempty"`
	User  *models.User `json:"user,omitempty"`
	Error string       `json:"error,omitempty"`
}

// issueFor signs the dashboard token of a freshly signed-in workspace. The
// token expires with the provider session.
func issueFor(secret string, ws *workspace.Workspace, user *models.User) (string, error) {
	expires := time.Now().Add(7 * 24 * time.Hour)
	if id := ws.Session.Identity(); id != nil && !id.ExpiresAt.IsZero() {
		expires = id.ExpiresAt
	}
	return middleware.IssueToken(secret, middleware.UserClaims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      string(user.Role),
		SessionID: ws.ID,
	}, expires)
}

func authFailure(w http.ResponseWriter, err error) {
	status := utils.StatusFor(err)
	msg := err.Error()
	if errors.Is(err, identity.ErrInvalidCredentials) {
		msg = "Invalid email or password"
	}
	utils.RespondJSON(w, status, LoginResponse{OK: false, Error: msg})
}

// Login signs in on a new workspace and returns its token
func Login(reg *workspace.Registry, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if !decode(w, r, &req) {
			return
		}
		if req.Email == "" || req.Password == "" {
			utils.RespondError(w, http.StatusBadRequest, "Email and password are required")
			return
		}

		ws := reg.Create()
		user, err := ws.Session.SignIn(r.Context(), req.Email, req.Password)
		if err != nil {
			reg.Remove(ws.ID)
			log.Printf("❌ Login failed for %s: %v", req.Email, err)
			authFailure(w, err)
			return
		}
		if user.Status == models.UserStatusInactive {
			_ = ws.Session.SignOut(r.Context())
			reg.Remove(ws.ID)
			log.Printf("❌ Login refused for inactive account: %s", req.Email)
			utils.RespondJSON(w, http.StatusForbidden, LoginResponse{OK: false, Error: "Account is inactive"})
			return
		}

		token, err := issueFor(secret, ws, user)
		if err != nil {
			reg.Remove(ws.ID)
			log.Println("❌ Failed to create token")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create token")
			return
		}

		log.Printf("✅ Login successful: %s (%s)", user.Email, user.Role)
		utils.RespondJSON(w, http.StatusOK, LoginResponse{OK: true, Token: token, User: user})
	}
}

// Register creates a customer account and signs it in. Staff accounts are
// created by admins through /api/users.
func Register(reg *workspace.Registry, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if !decode(w, r, &req) {
			return
		}
		req.Email = strings.TrimSpace(req.Email)
		if req.Email == "" || req.Password == "" || req.Name == "" {
			utils.RespondError(w, http.StatusBadRequest, "Email, password, and name are required")
			return
		}
		if len(req.Password) < 6 {
			utils.RespondError(w, http.StatusBadRequest, "Password must be at least 6 characters")
			return
		}

		ws := reg.Create()
		user, err := ws.Session.Register(r.Context(), req.Email, req.Password, session.Profile{
			Name:  req.Name,
			Phone: req.Phone,
			Role:  models.RoleCustomer,
		})
		if err != nil {
			reg.Remove(ws.ID)
			log.Printf("❌ Registration failed for %s: %v", req.Email, err)
			authFailure(w, err)
			return
		}

		token, err := issueFor(secret, ws, user)
		if err != nil {
			reg.Remove(ws.ID)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create token")
			return
		}
		utils.RespondJSON(w, http.StatusCreated, LoginResponse{OK: true, Token: token, User: user})
	}
}

// Logout ends the provider session and closes the workspace
func Logout(reg *workspace.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		if err := ws.Session.SignOut(r.Context()); err != nil {
			log.Printf("⚠️  Provider sign-out failed for %s: %v", ws.ID, err)
		}
		reg.Remove(ws.ID)
		utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

// AuthStatus returns the session state: principal, loading, error, theme
func AuthStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		utils.RespondJSON(w, http.StatusOK, ws.Session.Snapshot())
	}
}

// RefreshProfile reloads the principal's profile after a role change
func RefreshProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		if err := ws.Session.Refresh(r.Context()); err != nil {
			utils.RespondErr(w, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, ws.Session.Snapshot())
	}
}

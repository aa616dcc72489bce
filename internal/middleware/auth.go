package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gasdash-backend/internal/models"
	"gasdash-backend/internal/workspace"
)

type contextKey string

const (
	UserContextKey      contextKey = "user"
	WorkspaceContextKey contextKey = "workspace"
)

var ErrInvalidToken = errors.New("invalid token")

// UserClaims is what the dashboard token carries. SessionID names the
// server-side workspace created at sign-in.
type UserClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"sid"`
}

// IssueToken signs an HS256 token for a signed-in workspace
func IssueToken(secret string, claims UserClaims, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": claims.UserID,
		"email":   claims.Email,
		"role":    claims.Role,
		"sid":     claims.SessionID,
		"iat":     time.Now().Unix(),
		"exp":     expiresAt.Unix(),
	})
	return token.SignedString([]byte(secret))
}

// ParseToken validates the signature and expiry and extracts the claims
func ParseToken(secret, tokenString string) (UserClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return UserClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return UserClaims{}, ErrInvalidToken
	}
	str := func(k string) string {
		v, _ := claims[k].(string)
		return v
	}
	uc := UserClaims{
		UserID:    str("user_id"),
		Email:     str("email"),
		Role:      str("role"),
		SessionID: str("sid"),
	}
	if uc.UserID == "" || uc.SessionID == "" {
		return UserClaims{}, fmt.Errorf("%w: missing user_id or sid", ErrInvalidToken)
	}
	return uc, nil
}

// WorkspaceLookup resolves the workspace named by a token
type WorkspaceLookup interface {
	Get(id string) (*workspace.Workspace, bool)
	Remove(id string)
}

// bearerToken extracts the token from "Authorization: Bearer <token>"
func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// Auth validates the JWT, resolves its workspace and adds both to the
// request context. A workspace whose principal was cleared (sign-out,
// expiry, revocation) is torn down and the request rejected.
func Auth(secret string, workspaces WorkspaceLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				log.Printf("❌ AUTH: no bearer token on %s %s", r.Method, r.URL.Path)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := ParseToken(secret, tokenString)
			if err != nil {
				log.Printf("❌ AUTH: %v", err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ws, ok := workspaces.Get(claims.SessionID)
			if !ok {
				log.Printf("❌ AUTH: session %s not found (signed out or server restarted)", claims.SessionID)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			principal := ws.Principal()
			if principal == nil || principal.ID != claims.UserID {
				log.Printf("❌ AUTH: session %s no longer signed in", claims.SessionID)
				workspaces.Remove(claims.SessionID)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			// Role may have changed since the token was issued
			claims.Role = string(principal.Role)

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			ctx = context.WithValue(ctx, WorkspaceContextKey, ws)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole middleware checks if user has one of the roles (must be used after Auth)
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userClaims, ok := r.Context().Value(UserContextKey).(UserClaims)
			if !ok {
				log.Println("❌ User claims not found in context")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			for _, role := range roles {
				if userClaims.Role == string(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			log.Printf("❌ Insufficient permissions: required %v, got %s", roles, userClaims.Role)
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(r *http.Request) (UserClaims, bool) {
	userClaims, ok := r.Context().Value(UserContextKey).(UserClaims)
	return userClaims, ok
}

// WorkspaceFrom returns the workspace resolved by Auth
func WorkspaceFrom(r *http.Request) (*workspace.Workspace, bool) {
	ws, ok := r.Context().Value(WorkspaceContextKey).(*workspace.Workspace)
	return ws, ok
}

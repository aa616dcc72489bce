package utils

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"gasdash-backend/internal/docstore"
	"gasdash-backend/internal/identity"
	"gasdash-backend/internal/models"
	"gasdash-backend/internal/resource"
	"gasdash-backend/internal/session"
	"gasdash-backend/internal/workspace"
)

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError sends an error response
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// StatusFor maps a domain error to its HTTP status. Anything unrecognized
// is a failure of the backing store or identity provider.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, docstore.ErrNotFound), errors.Is(err, workspace.ErrUnknownView):
		return http.StatusNotFound
	case errors.Is(err, resource.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, identity.ErrEmailExists):
		return http.StatusConflict
	case errors.Is(err, identity.ErrInvalidCredentials), errors.Is(err, session.ErrNotSignedIn):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrProfileMissing):
		return http.StatusForbidden
	case errors.Is(err, docstore.ErrInvalidField):
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

// RespondErr logs err and sends it with the status StatusFor picks
func RespondErr(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("❌ Backend error: %v", err)
	}
	RespondError(w, status, err.Error())
}

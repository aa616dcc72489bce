package handlers

import (
	"net/http"
	"strings"

	"gasdash-backend/internal/models"
	"gasdash-backend/pkg/utils"
)

// ListCustomers returns the customer book, narrowed by ?search= when given
func ListCustomers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspaceOf(w, r)
		if !ok {
			return
		}
		text := strings.TrimSpace(r.URL.Query().Get("search"))
		if text == "" {
			utils.RespondJSON(w, http.StatusOK, ws.Customers.State())
			return
		}
		matches := ws.Customers.Search(text)
		if matches == nil {
			matches = []models.Customer{}
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"data": matches})
	}
}
